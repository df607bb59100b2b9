package mp4

import (
	"context"
	"os"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/pkg/audiobook"
)

// itemAtoms maps iTunes ilst atoms to the item keys they store.
var itemAtoms = map[[4]byte]audiobook.ItemKey{
	AtomAlbum:           audiobook.AlbumTitle,
	AtomSortAlbum:       audiobook.AlbumTitleSortOrder,
	AtomTitle:           audiobook.TrackTitle,
	AtomSortTitle:       audiobook.TrackTitleSortOrder,
	AtomAlbumArtist:     audiobook.AlbumArtist,
	AtomSortAlbumArtist: audiobook.AlbumArtistSortOrder,
	AtomArtist:          audiobook.TrackArtist,
	AtomSortArtist:      audiobook.TrackArtistSortOrder,
}

// Tags is the iTunes metadata of an MP4 file along with its movie duration.
type Tags struct {
	items    map[audiobook.ItemKey]string
	pictures []audiobook.Picture
	freeform map[string]string
	hasIlst  bool
	duration time.Duration
}

// ReadTags reads the ilst item list and movie header of the file at path.
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	if err := checkFileType(f); err != nil {
		return nil, err
	}

	tags := &Tags{
		items:    make(map[audiobook.ItemKey]string),
		freeform: make(map[string]string),
	}
	foundMvhd := false

	_, err = gomp4.ReadBoxStructure(f, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case BoxTypeMoov, BoxTypeUdta, BoxTypeMeta:
			return h.Expand()

		case BoxTypeIlst:
			tags.hasIlst = true
			return h.Expand()

		case BoxTypeMvhd:
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mvhd, ok := payload.(*gomp4.Mvhd); ok {
				foundMvhd = true
				tags.duration = toDuration(mvhdDuration(mvhd), mvhd.Timescale)
			}
			return nil, nil
		}

		// Path includes the current box, so the parent sits one above it.
		if len(h.Path) < 2 || h.Path[len(h.Path)-2] != BoxTypeIlst {
			return nil, nil
		}
		data, err := readRaw(h)
		if err != nil {
			return nil, err
		}
		tags.readItem(h.BoxInfo.Type, data)
		return nil, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !foundMvhd {
		return nil, errors.WithStack(ErrNoMetadata)
	}

	return tags, nil
}

func (t *Tags) readItem(boxType gomp4.BoxType, data []byte) {
	atom := [4]byte(boxType)

	switch {
	case atom == AtomCover:
		for _, child := range childBoxes(data) {
			if string(child.boxType[:]) != "data" {
				continue
			}
			image, mimeType, ok := parseImageData(child.payload)
			if !ok {
				continue
			}
			t.pictures = append(t.pictures, audiobook.Picture{
				Type:     audiobook.PictureOther,
				MIMEType: mimeType,
				Data:     image,
			})
		}

	case atom == AtomFreeform:
		key, value, ok := parseFreeform(data)
		if !ok {
			return
		}
		t.freeform[key] = value
		if key == freeformSubtitle {
			t.items[audiobook.TrackSubtitle] = value
		}

	default:
		key, ok := itemAtoms[atom]
		if !ok {
			return
		}
		for _, child := range childBoxes(data) {
			if string(child.boxType[:]) == "data" {
				t.items[key] = parseTextData(child.payload)
				return
			}
		}
	}
}

// parseFreeform parses the [mean][name][data] children of a ---- atom.
func parseFreeform(data []byte) (key, value string, ok bool) {
	var mean, name string
	var content []byte
	for _, child := range childBoxes(data) {
		switch string(child.boxType[:]) {
		case "mean":
			// Skip version/flags (4 bytes)
			if len(child.payload) > 4 {
				mean = string(child.payload[4:])
			}
		case "name":
			if len(child.payload) > 4 {
				name = string(child.payload[4:])
			}
		case "data":
			if content == nil {
				content = child.payload
			}
		}
	}
	if mean == "" || name == "" || len(content) == 0 {
		return "", "", false
	}
	return mean + ":" + name, parseTextData(content), true
}

// PrimaryTag returns the ilst tag, or nil when the file has no item list.
func (t *Tags) PrimaryTag() audiobook.TagSource {
	if !t.hasIlst {
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

// Duration is the movie header duration.
func (t *Tags) Duration() time.Duration {
	return t.duration
}

// Freeform returns the value of a "mean:name" freeform atom.
func (t *Tags) Freeform(key string) (string, bool) {
	v, ok := t.freeform[key]
	return v, ok
}

// TagReader reads MP4 tags for the audiobook builder.
func TagReader() audiobook.TagReader {
	return audiobook.TagReaderFunc(func(_ context.Context, path string) (audiobook.TaggedFile, error) {
		tags, err := ReadTags(path)
		if err != nil {
			return nil, err
		}
		return tags, nil
	})
}

// ContainerOpener opens MP4 files as audiobook containers.
func ContainerOpener() audiobook.ContainerOpener {
	return audiobook.ContainerOpenerFunc(func(_ context.Context, path string) (audiobook.ContainerSource, error) {
		c, err := Open(path)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
