// Package id3 reads ID3v2 tags and the playing time of MP3 files.
package id3

import (
	"context"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/pkg/audiobook"
)

// textFrames maps ID3v2 text frames to the item keys they store.
var textFrames = map[audiobook.ItemKey]string{
	audiobook.AlbumTitle:           "TALB",
	audiobook.AlbumTitleSortOrder:  "TSOA",
	audiobook.OriginalAlbumTitle:   "TOAL",
	audiobook.TrackTitle:           "TIT2",
	audiobook.TrackTitleSortOrder:  "TSOT",
	audiobook.TrackSubtitle:        "TIT3",
	audiobook.AlbumArtist:          "TPE2",
	audiobook.AlbumArtistSortOrder: "TSO2",
	audiobook.OriginalArtist:       "TOPE",
	audiobook.TrackArtist:          "TPE1",
	audiobook.TrackArtistSortOrder: "TSOP",
}

// Tags is the ID3v2 tag of an MP3 file along with its playing time.
type Tags struct {
	items    map[audiobook.ItemKey]string
	pictures []audiobook.Picture
	hasTag   bool
	duration time.Duration
}

// ReadTags reads the ID3v2 tag and audio duration of the file at path.
func ReadTags(ctx context.Context, path string) (*Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read id3 tag of %s", path)
	}
	defer tag.Close()

	tags := &Tags{
		items:  make(map[audiobook.ItemKey]string),
		hasTag: tag.HasFrames(),
	}

	for key, id := range textFrames {
		if len(tag.GetFrames(id)) == 0 {
			continue
		}
		tags.items[key] = firstValue(tag.GetTextFrame(id).Text)
	}

	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		tags.pictures = append(tags.pictures, audiobook.Picture{
			Type:     audiobook.PictureType(pic.PictureType),
			MIMEType: pic.MimeType,
			Data:     pic.Picture,
		})
	}

	duration, err := Duration(ctx, path)
	if err != nil {
		return nil, err
	}
	tags.duration = duration

	return tags, nil
}

// firstValue returns the first of the NUL separated values of a v2.4 text
// frame.
func firstValue(text string) string {
	text = strings.TrimRight(text, "\x00")
	value, _, _ := strings.Cut(text, "\x00")
	return value
}

// PrimaryTag returns the ID3v2 tag, or nil when the file carries none.
func (t *Tags) PrimaryTag() audiobook.TagSource {
	if !t.hasTag {
		return nil
	}
	return t
}

func (t *Tags) Get(key audiobook.ItemKey) (string, bool) {
	v, ok := t.items[key]
	return v, ok
}

func (t *Tags) Pictures() []audiobook.Picture {
	return t.pictures
}

func (t *Tags) Duration() time.Duration {
	return t.duration
}

// TagReader reads MP3 tags for the audiobook builder.
func TagReader() audiobook.TagReader {
	return audiobook.TagReaderFunc(func(ctx context.Context, path string) (audiobook.TaggedFile, error) {
		tags, err := ReadTags(ctx, path)
		if err != nil {
			return nil, err
		}
		return tags, nil
	})
}
