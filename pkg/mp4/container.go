package mp4

import (
	"io"
	"os"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/pkg/audiobook"
)

// maxSampleSize bounds a single sample read so a corrupt size table can't
// trigger a huge allocation.
const maxSampleSize = 16 << 20

// Container is an open MP4 file with its track tables loaded.
type Container struct {
	f              *os.File
	movieTimescale uint32
	movieDuration  uint64
	tracks         []*Track
}

// Open opens an MP4 file and reads the sample tables of every track.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	c := &Container{f: f}
	if err := checkFileType(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := c.readTracks(); err != nil {
		f.Close()
		return nil, err
	}

	return c, nil
}

// checkFileType verifies the file starts with an ftyp box and rewinds it.
func checkFileType(r io.ReadSeeker) error {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrap(ErrNotMP4, err.Error())
	}
	if !atomTypeEquals(BoxTypeFtyp, [4]byte{header[4], header[5], header[6], header[7]}) {
		return errors.WithStack(ErrNotMP4)
	}
	_, err := r.Seek(0, io.SeekStart)
	return errors.WithStack(err)
}

func (c *Container) readTracks() error {
	var current *Track

	_, err := gomp4.ReadBoxStructure(c.f, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case BoxTypeMoov, BoxTypeMdia, BoxTypeMinf, BoxTypeStbl:
			return h.Expand()

		case BoxTypeMvhd:
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mvhd, ok := payload.(*gomp4.Mvhd); ok {
				c.movieTimescale = mvhd.Timescale
				c.movieDuration = mvhdDuration(mvhd)
			}
			return nil, nil

		case BoxTypeTrak:
			current = &Track{}
			c.tracks = append(c.tracks, current)
			return h.Expand()
		}

		if current == nil {
			return nil, nil
		}
		return nil, current.readBox(h)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Tracks returns every track in file order.
func (c *Container) Tracks() []audiobook.Track {
	tracks := make([]audiobook.Track, 0, len(c.tracks))
	for _, t := range c.tracks {
		tracks = append(tracks, t)
	}
	return tracks
}

// Track returns the track with the given id, or nil.
func (c *Container) Track(id uint32) *Track {
	for _, t := range c.tracks {
		if t.id == id {
			return t
		}
	}
	return nil
}

// Duration is the movie header duration.
func (c *Container) Duration() time.Duration {
	return toDuration(c.movieDuration, c.movieTimescale)
}

// ReadSample reads the payload and timing of the 1-based sample sampleID.
func (c *Container) ReadSample(trackID, sampleID uint32) (*audiobook.Sample, error) {
	t := c.Track(trackID)
	if t == nil {
		return nil, errors.Wrapf(ErrTrackNotFound, "track %d", trackID)
	}
	if sampleID == 0 || sampleID > t.sampleCount {
		return nil, errors.Wrapf(ErrSampleOutOfRange, "track %d sample %d of %d", trackID, sampleID, t.sampleCount)
	}
	if err := t.resolve(); err != nil {
		return nil, err
	}

	idx := sampleID - 1
	size := t.sampleSize(idx)
	if size > maxSampleSize {
		return nil, errors.Wrapf(ErrInvalidBox, "track %d sample %d is %d bytes", trackID, sampleID, size)
	}

	data := make([]byte, size)
	// #nosec G115 -- offset is from file structure, within safe range
	if _, err := c.f.ReadAt(data, int64(t.sampleOffsets[idx])); err != nil {
		return nil, errors.Wrapf(err, "read track %d sample %d", trackID, sampleID)
	}

	timescale := t.effectiveTimescale(c.movieTimescale)
	return &audiobook.Sample{
		Bytes:     data,
		Duration:  toDuration(uint64(t.sampleDelta(idx)), timescale),
		StartTime: toDuration(t.sampleStarts[idx], timescale),
	}, nil
}

func (c *Container) Close() error {
	return errors.WithStack(c.f.Close())
}

func mvhdDuration(mvhd *gomp4.Mvhd) uint64 {
	if mvhd.Version == 0 {
		return uint64(mvhd.DurationV0)
	}
	return mvhd.DurationV1
}

// toDuration converts units of timescale per second to a duration without
// overflowing on long files.
func toDuration(units uint64, timescale uint32) time.Duration {
	if timescale == 0 {
		return 0
	}
	ts := uint64(timescale)
	// #nosec G115 -- media durations fit comfortably in int64 nanoseconds
	return time.Duration(units/ts)*time.Second + time.Duration(units%ts)*time.Second/time.Duration(ts)
}
