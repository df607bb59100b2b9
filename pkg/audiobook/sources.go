package audiobook

import (
	"context"
	"time"
)

// ItemKey names a metadata field independently of the tag format storing it.
type ItemKey int

const (
	AlbumTitle ItemKey = iota + 1
	AlbumTitleSortOrder
	OriginalAlbumTitle
	TrackTitle
	TrackTitleSortOrder
	TrackSubtitle
	AlbumArtist
	AlbumArtistSortOrder
	OriginalArtist
	TrackArtist
	TrackArtistSortOrder
)

var itemKeyNames = map[ItemKey]string{
	AlbumTitle:           "album_title",
	AlbumTitleSortOrder:  "album_title_sort_order",
	OriginalAlbumTitle:   "original_album_title",
	TrackTitle:           "track_title",
	TrackTitleSortOrder:  "track_title_sort_order",
	TrackSubtitle:        "track_subtitle",
	AlbumArtist:          "album_artist",
	AlbumArtistSortOrder: "album_artist_sort_order",
	OriginalArtist:       "original_artist",
	TrackArtist:          "track_artist",
	TrackArtistSortOrder: "track_artist_sort_order",
}

func (k ItemKey) String() string {
	if name, ok := itemKeyNames[k]; ok {
		return name
	}
	return "unknown"
}

// PictureType follows the ID3v2 APIC picture type numbering.
type PictureType byte

const (
	PictureOther         PictureType = 0x00
	PictureIcon          PictureType = 0x01
	PictureOtherIcon     PictureType = 0x02
	PictureCoverFront    PictureType = 0x03
	PictureCoverBack     PictureType = 0x04
	PictureLeaflet       PictureType = 0x05
	PictureMedia         PictureType = 0x06
	PictureLeadArtist    PictureType = 0x07
	PictureArtist        PictureType = 0x08
	PictureConductor     PictureType = 0x09
	PictureBand          PictureType = 0x0A
	PictureComposer      PictureType = 0x0B
	PictureLyricist      PictureType = 0x0C
	PictureRecordingLoc  PictureType = 0x0D
	PictureDuringRec     PictureType = 0x0E
	PictureDuringPerf    PictureType = 0x0F
	PictureScreenCapture PictureType = 0x10
	PictureBrightFish    PictureType = 0x11
	PictureIllustration  PictureType = 0x12
	PictureBandLogo      PictureType = 0x13
	PicturePublisherLogo PictureType = 0x14
)

// Picture is an image embedded in a tag.
type Picture struct {
	Type     PictureType
	MIMEType string
	Data     []byte
}

// TagSource is a single metadata record: field lookup plus embedded pictures.
type TagSource interface {
	// Get returns the value stored under key and whether the key is present.
	Get(key ItemKey) (string, bool)
	Pictures() []Picture
}

// TaggedFile is the result of reading the tags of a file.
type TaggedFile interface {
	// PrimaryTag returns the authoritative tag, or nil when the file has none.
	PrimaryTag() TagSource
	// Duration is the media duration reported by the file's properties.
	Duration() time.Duration
}

// TagReader reads the tags of the file at path.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (TaggedFile, error)
}

// TagReaderFunc adapts a function to TagReader.
type TagReaderFunc func(ctx context.Context, path string) (TaggedFile, error)

func (f TagReaderFunc) ReadTags(ctx context.Context, path string) (TaggedFile, error) {
	return f(ctx, path)
}

// MediaType identifies the kind of data a container track carries.
type MediaType string

const (
	MediaTypeAAC   MediaType = "aac"
	MediaTypeALAC  MediaType = "alac"
	MediaTypeAC3   MediaType = "ac3"
	MediaTypeEAC3  MediaType = "eac3"
	MediaTypeH264  MediaType = "h264"
	MediaTypeH265  MediaType = "h265"
	MediaTypeVP9   MediaType = "vp9"
	MediaTypeMPEG4 MediaType = "mpeg4"
	MediaTypeTTXT  MediaType = "ttxt"
)

// Track is one stream of a container.
type Track interface {
	ID() uint32
	// MediaType classifies the track. It fails for tracks whose sample
	// description is not a known media type.
	MediaType() (MediaType, error)
	SampleCount() uint32
}

// Sample is a single decoded sample of a track.
type Sample struct {
	Bytes     []byte
	Duration  time.Duration
	StartTime time.Duration
}

// ContainerSource gives access to the tracks of an open container.
type ContainerSource interface {
	Tracks() []Track
	// ReadSample reads the sample with the given 1-based id.
	ReadSample(trackID, sampleID uint32) (*Sample, error)
	Close() error
}

// ContainerOpener opens the file at path as a container.
type ContainerOpener interface {
	OpenContainer(ctx context.Context, path string) (ContainerSource, error)
}

// ContainerOpenerFunc adapts a function to ContainerOpener.
type ContainerOpenerFunc func(ctx context.Context, path string) (ContainerSource, error)

func (f ContainerOpenerFunc) OpenContainer(ctx context.Context, path string) (ContainerSource, error) {
	return f(ctx, path)
}
