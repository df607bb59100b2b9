package mp4

import "errors"

// Errors returned by the mp4 package.
var (
	// ErrNotMP4 is returned when the file is not a valid MP4/M4B file.
	ErrNotMP4 = errors.New("not a valid MP4/M4B file")

	// ErrNoMetadata is returned when the file has no movie header.
	ErrNoMetadata = errors.New("no metadata found")

	// ErrInvalidBox is returned when a sample table is inconsistent.
	ErrInvalidBox = errors.New("invalid box structure")

	// ErrUnknownMediaType is returned when a track's sample entry isn't a
	// known audio, video or subtitle format.
	ErrUnknownMediaType = errors.New("unknown media type")

	// ErrTrackNotFound is returned when reading a sample of a missing track.
	ErrTrackNotFound = errors.New("track not found")

	// ErrSampleOutOfRange is returned for sample ids outside 1..SampleCount.
	ErrSampleOutOfRange = errors.New("sample out of range")
)
