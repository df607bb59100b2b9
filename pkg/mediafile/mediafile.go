// Package mediafile routes audio files to the tag and container readers that
// understand them.
package mediafile

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/pkg/audiobook"
	"github.com/shishobooks/cyprus/pkg/config"
	"github.com/shishobooks/cyprus/pkg/id3"
	"github.com/shishobooks/cyprus/pkg/mp4"
)

type Format string

const (
	FormatMP4 Format = "mp4"
	FormatMP3 Format = "mp3"
)

// ErrUnsupportedFormat is returned for files that are neither MP4 nor MPEG
// audio.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

var mimeTypeFormats = map[string]Format{
	"audio/mp4":   FormatMP4,
	"audio/x-m4a": FormatMP4,
	"video/mp4":   FormatMP4,
	"audio/mpeg":  FormatMP3,
}

var extensionFormats = map[string]Format{
	".m4b": FormatMP4,
	".m4a": FormatMP4,
	".mp4": FormatMP4,
	".mp3": FormatMP3,
}

// DetectFormat sniffs the content of path, falling back to its extension when
// the content isn't recognized.
func DetectFormat(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if format, ok := mimeTypeFormats[m.String()]; ok {
			return format, nil
		}
	}
	if format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return format, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%s (%s)", path, mtype.String())
}

var tagReaders = map[Format]audiobook.TagReader{
	FormatMP4: mp4.TagReader(),
	FormatMP3: id3.TagReader(),
}

// ReadTags reads the tags of path with the reader matching its format.
func ReadTags(ctx context.Context, path string) (audiobook.TaggedFile, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return tagReaders[format].ReadTags(ctx, path)
}

// NewBuilder returns an audiobook builder backed by the mp4 and id3 readers.
func NewBuilder(cfg *config.Config) *audiobook.Builder {
	return audiobook.NewBuilder(
		audiobook.TagReaderFunc(ReadTags),
		mp4.ContainerOpener(),
		audiobook.BuilderOptions{DisableCoverArt: !cfg.CoverArtEnabled},
	)
}
