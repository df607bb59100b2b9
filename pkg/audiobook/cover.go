package audiobook

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// picturePriority is the order in which embedded pictures are considered for
// the cached cover. When none of these types is present the first picture is
// used.
var picturePriority = []PictureType{
	PictureCoverFront,
	PictureOther,
	PictureIcon,
	PictureIllustration,
}

var coverNameReplacer = strings.NewReplacer("/", "_", string(filepath.Separator), "_")

// CoverArtPath returns where the cached cover of the book named name, built
// from source, lives: cover_<name>.jpg next to source.
func CoverArtPath(name, source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil || !info.Mode().IsRegular() {
		return "", NewError(NotAFile, source, err)
	}

	dir := filepath.Dir(source)
	if dir == source || dir == "" {
		return "", NewError(NoParentDirectory, source, nil)
	}

	return filepath.Join(dir, "cover_"+coverNameReplacer.Replace(name)+".jpg"), nil
}

// ExtractCoverArt returns the path of the cached cover for the book, writing it
// from the tag's pictures if it isn't cached yet. A nil path means there is no
// cover. Failing to write the cache file is logged and reported as no cover.
func ExtractCoverArt(ctx context.Context, tag TagSource, name, source string) (*string, error) {
	log := logger.FromContext(ctx)

	path, err := CoverArtPath(name, source)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return &path, nil
	}

	picture := SelectPicture(tag.Pictures())
	if picture == nil {
		return nil, nil
	}

	if err := writeCoverFile(path, picture.Data); err != nil {
		log.Warn("cover art write error", logger.Data{"path": path, "error": err.Error()})
		return nil, nil
	}

	log.Debug("cover art extracted", logger.Data{
		"path":      path,
		"mime_type": mimetype.Detect(picture.Data).String(),
		"tag_mime":  picture.MIMEType,
		"size":      len(picture.Data),
	})

	return &path, nil
}

// SelectPicture picks the cover picture by type priority, falling back to the
// first picture. It returns nil when there are none.
func SelectPicture(pictures []Picture) *Picture {
	for _, t := range picturePriority {
		for i := range pictures {
			if pictures[i].Type == t {
				return &pictures[i]
			}
		}
	}
	if len(pictures) > 0 {
		return &pictures[0]
	}
	return nil
}

func writeCoverFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644) //nolint:gosec
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return errors.WithStack(err)
	}

	return nil
}
