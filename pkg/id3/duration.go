package id3

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/simonhull/audiometa"
)

// ErrNoFrames is returned when no MPEG audio frame follows the tag.
var ErrNoFrames = errors.New("no mpeg audio frame found")

// Layer III bitrates in kbps by bitrate index.
var (
	mpeg1Bitrates = []int64{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg2Bitrates = []int64{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

// Sample rates by version bits then sample rate index. Version 1 is reserved.
var sampleRates = [4][4]int64{
	0: {11025, 12000, 8000, 0},
	2: {22050, 24000, 16000, 0},
	3: {44100, 48000, 32000, 0},
}

const (
	mpegVersion1 = 3
	channelMono  = 3
	// frameSearchLimit bounds how far past the tag the first frame may start.
	frameSearchLimit = 64 << 10
)

// frameInfo is what a Layer III frame header says about the stream.
type frameInfo struct {
	bitrate         int64
	sampleRate      int64
	samplesPerFrame int64
	// xingOffset is where a Xing header starts: after the 4 byte frame header
	// and the side info.
	xingOffset int64
}

// parseFrameHeader decodes an MPEG-1, MPEG-2 or MPEG-2.5 Layer III header.
func parseFrameHeader(header uint32) (frameInfo, bool) {
	if header&0xFFE00000 != 0xFFE00000 {
		return frameInfo{}, false
	}
	version := (header >> 19) & 0x3
	layer := (header >> 17) & 0x3
	if version == 1 || layer != 1 {
		return frameInfo{}, false
	}

	bitrateIndex := (header >> 12) & 0xF
	mono := (header>>6)&0x3 == channelMono

	info := frameInfo{sampleRate: sampleRates[version][(header>>10)&0x3]}
	if version == mpegVersion1 {
		info.bitrate = mpeg1Bitrates[bitrateIndex] * 1000
		info.samplesPerFrame = 1152
		info.xingOffset = 4 + 32
		if mono {
			info.xingOffset = 4 + 17
		}
	} else {
		info.bitrate = mpeg2Bitrates[bitrateIndex] * 1000
		info.samplesPerFrame = 576
		info.xingOffset = 4 + 17
		if mono {
			info.xingOffset = 4 + 9
		}
	}

	if info.bitrate == 0 || info.sampleRate == 0 {
		return frameInfo{}, false
	}
	return info, true
}

// Duration returns the playing time of the MP3 file at path. audiometa is
// asked first; when it can't report a duration the first frame's Xing header,
// or failing that its bitrate, is used.
func Duration(ctx context.Context, path string) (time.Duration, error) {
	log := logger.FromContext(ctx)

	file, err := audiometa.OpenContext(ctx, path)
	if err == nil {
		d := file.Audio.Duration
		file.Close()
		if d > 0 {
			return d, nil
		}
	} else {
		log.Debug("audiometa could not read file, estimating from frames", logger.Data{"path": path, "error": err.Error()})
	}

	return estimateDuration(path)
}

func estimateDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	fileSize := stat.Size()

	tagSize, err := tagLength(f)
	if err != nil {
		return 0, err
	}

	offset, info, err := findFrame(f, tagSize, fileSize)
	if err != nil {
		return 0, err
	}

	if frames, ok := xingFrames(f, offset+info.xingOffset); ok {
		samples := int64(frames) * info.samplesPerFrame
		return time.Duration(samples) * time.Second / time.Duration(info.sampleRate), nil
	}

	audioBytes := fileSize - tagSize
	return time.Duration(audioBytes*8) * time.Second / time.Duration(info.bitrate), nil
}

// tagLength returns the size of a leading ID3v2 tag including its header and
// footer, or zero when the file doesn't start with one.
func tagLength(r io.ReaderAt) (int64, error) {
	var header [10]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}
	if string(header[:3]) != "ID3" {
		return 0, nil
	}

	size := int64(header[6]&0x7F)<<21 | int64(header[7]&0x7F)<<14 | int64(header[8]&0x7F)<<7 | int64(header[9]&0x7F)
	size += 10
	if header[5]&0x10 != 0 {
		size += 10
	}
	return size, nil
}

// findFrame scans for the first valid Layer III frame header at or after
// start.
func findFrame(r io.ReaderAt, start, fileSize int64) (int64, frameInfo, error) {
	limit := start + frameSearchLimit
	if limit > fileSize-4 {
		limit = fileSize - 4
	}

	var buf [4]byte
	for offset := start; offset <= limit; offset++ {
		if _, err := r.ReadAt(buf[:], offset); err != nil {
			break
		}
		if info, ok := parseFrameHeader(binary.BigEndian.Uint32(buf[:])); ok {
			return offset, info, nil
		}
	}

	return 0, frameInfo{}, errors.WithStack(ErrNoFrames)
}

// xingFrames reads the frame count from a Xing or Info header at offset.
func xingFrames(r io.ReaderAt, offset int64) (uint32, bool) {
	var buf [12]byte
	if _, err := r.ReadAt(buf[:], offset); err != nil {
		return 0, false
	}
	if marker := string(buf[:4]); marker != "Xing" && marker != "Info" {
		return 0, false
	}
	if binary.BigEndian.Uint32(buf[4:8])&0x1 == 0 {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[8:12]), true
}
