package mp4

import (
	"bytes"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/pkg/audiobook"
)

// sampleEntryMediaTypes maps stsd sample entries to the media they carry.
// Sample entries missing here, such as QuickTime "text" chapter tracks, fail
// classification.
var sampleEntryMediaTypes = map[gomp4.BoxType]audiobook.MediaType{
	gomp4.StrToBoxType("mp4a"): audiobook.MediaTypeAAC,
	gomp4.StrToBoxType("alac"): audiobook.MediaTypeALAC,
	gomp4.StrToBoxType("ac-3"): audiobook.MediaTypeAC3,
	gomp4.StrToBoxType("ec-3"): audiobook.MediaTypeEAC3,
	gomp4.StrToBoxType("avc1"): audiobook.MediaTypeH264,
	gomp4.StrToBoxType("avc3"): audiobook.MediaTypeH264,
	gomp4.StrToBoxType("hev1"): audiobook.MediaTypeH265,
	gomp4.StrToBoxType("hvc1"): audiobook.MediaTypeH265,
	gomp4.StrToBoxType("vp09"): audiobook.MediaTypeVP9,
	gomp4.StrToBoxType("mp4v"): audiobook.MediaTypeMPEG4,
	gomp4.StrToBoxType("tx3g"): audiobook.MediaTypeTTXT,
}

// Track holds the header and sample tables of one trak box.
type Track struct {
	id          uint32
	timescale   uint32
	handlerType string
	sampleEntry gomp4.BoxType

	sampleCount     uint32
	constantSize    uint32
	sampleSizes     []uint32    // from stsz
	timeToSample    []sttsEntry // from stts
	chunkOffsets    []uint64    // from stco/co64
	samplesPerChunk []stscEntry // from stsc

	resolved      bool
	sampleOffsets []uint64
	sampleStarts  []uint64
}

type sttsEntry struct {
	sampleCount uint32
	sampleDelta uint32
}

// stscEntry represents a sample-to-chunk entry.
type stscEntry struct {
	firstChunk      uint32
	samplesPerChunk uint32
}

func (t *Track) ID() uint32 {
	return t.id
}

func (t *Track) SampleCount() uint32 {
	return t.sampleCount
}

// HandlerType is the hdlr handler of the track ("soun", "text", ...).
func (t *Track) HandlerType() string {
	return t.handlerType
}

// SampleEntry is the four character code of the first stsd entry.
func (t *Track) SampleEntry() string {
	return t.sampleEntry.String()
}

func (t *Track) Timescale() uint32 {
	return t.timescale
}

// MediaType classifies the track from its sample entry.
func (t *Track) MediaType() (audiobook.MediaType, error) {
	if mt, ok := sampleEntryMediaTypes[t.sampleEntry]; ok {
		return mt, nil
	}
	return "", errors.Wrapf(ErrUnknownMediaType, "track %d sample entry %q", t.id, t.sampleEntry.String())
}

// readBox records the track level boxes found while walking a trak.
func (t *Track) readBox(h *gomp4.ReadHandle) error {
	switch h.BoxInfo.Type {
	case BoxTypeTkhd:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if tkhd, ok := payload.(*gomp4.Tkhd); ok {
			t.id = tkhd.TrackID
		}

	case BoxTypeMdhd:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if mdhd, ok := payload.(*gomp4.Mdhd); ok {
			t.timescale = mdhd.Timescale
		}

	case BoxTypeHdlr:
		// [4 bytes version/flags][4 bytes pre_defined][4 bytes handler_type]
		data, err := readRaw(h)
		if err != nil {
			return err
		}
		if len(data) >= 12 {
			t.handlerType = string(data[8:12])
		}

	case BoxTypeStsd:
		// [4 bytes version/flags][4 bytes entry_count][4 bytes size][4 bytes type]
		data, err := readRaw(h)
		if err != nil {
			return err
		}
		if len(data) >= 16 {
			copy(t.sampleEntry[:], data[12:16])
		}

	case BoxTypeStts:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if stts, ok := payload.(*gomp4.Stts); ok {
			for _, entry := range stts.Entries {
				t.timeToSample = append(t.timeToSample, sttsEntry{entry.SampleCount, entry.SampleDelta})
			}
		}

	case BoxTypeStsz:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if stsz, ok := payload.(*gomp4.Stsz); ok {
			t.sampleCount = stsz.SampleCount
			t.constantSize = stsz.SampleSize
			if stsz.SampleSize == 0 {
				t.sampleSizes = stsz.EntrySize
			}
		}

	case BoxTypeStsc:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if stsc, ok := payload.(*gomp4.Stsc); ok {
			for _, entry := range stsc.Entries {
				t.samplesPerChunk = append(t.samplesPerChunk, stscEntry{
					firstChunk:      entry.FirstChunk,
					samplesPerChunk: entry.SamplesPerChunk,
				})
			}
		}

	case BoxTypeStco:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if stco, ok := payload.(*gomp4.Stco); ok {
			for _, offset := range stco.ChunkOffset {
				t.chunkOffsets = append(t.chunkOffsets, uint64(offset))
			}
		}

	case BoxTypeCo64:
		payload, _, err := h.ReadPayload()
		if err != nil {
			return err
		}
		if co64, ok := payload.(*gomp4.Co64); ok {
			t.chunkOffsets = co64.ChunkOffset
		}
	}

	return nil
}

func readRaw(h *gomp4.ReadHandle) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := h.ReadData(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Track) effectiveTimescale(movieTimescale uint32) uint32 {
	if t.timescale != 0 {
		return t.timescale
	}
	if movieTimescale != 0 {
		return movieTimescale
	}
	return 1000
}

func (t *Track) sampleSize(idx uint32) uint32 {
	if t.constantSize != 0 {
		return t.constantSize
	}
	return t.sampleSizes[idx]
}

// sampleDelta returns the stts duration of the sample at idx, or zero when the
// table doesn't cover it.
func (t *Track) sampleDelta(idx uint32) uint32 {
	remaining := idx
	for _, entry := range t.timeToSample {
		if remaining < entry.sampleCount {
			return entry.sampleDelta
		}
		remaining -= entry.sampleCount
	}
	return 0
}

// resolve computes the file offset and start time of every sample.
func (t *Track) resolve() error {
	if t.resolved {
		return nil
	}

	if t.constantSize == 0 && uint32(len(t.sampleSizes)) < t.sampleCount {
		return errors.Wrapf(ErrInvalidBox, "track %d has %d sizes for %d samples", t.id, len(t.sampleSizes), t.sampleCount)
	}

	offsets := calculateSampleOffsets(t)
	if uint32(len(offsets)) < t.sampleCount {
		return errors.Wrapf(ErrInvalidBox, "track %d chunks cover %d of %d samples", t.id, len(offsets), t.sampleCount)
	}

	starts := make([]uint64, t.sampleCount)
	var current uint64
	idx := uint32(0)
	for _, entry := range t.timeToSample {
		for i := uint32(0); i < entry.sampleCount && idx < t.sampleCount; i++ {
			starts[idx] = current
			current += uint64(entry.sampleDelta)
			idx++
		}
	}
	for ; idx < t.sampleCount; idx++ {
		starts[idx] = current
	}

	t.sampleOffsets = offsets
	t.sampleStarts = starts
	t.resolved = true

	return nil
}

// calculateSampleOffsets calculates the file offset for each sample.
func calculateSampleOffsets(t *Track) []uint64 {
	if len(t.chunkOffsets) == 0 {
		return nil
	}

	offsets := make([]uint64, 0, t.sampleCount)

	sampleIndex := uint32(0)
	chunkNum := uint32(0)
	for _, chunkOffset := range t.chunkOffsets {
		// Chunk numbers are 1-based.
		chunkNum++
		samplesInChunk := uint32(1)
		for _, entry := range t.samplesPerChunk {
			if chunkNum >= entry.firstChunk {
				samplesInChunk = entry.samplesPerChunk
			}
		}

		currentOffset := chunkOffset
		for s := uint32(0); s < samplesInChunk && sampleIndex < t.sampleCount; s++ {
			offsets = append(offsets, currentOffset)
			currentOffset += uint64(t.sampleSize(sampleIndex))
			sampleIndex++
		}
	}

	return offsets
}
