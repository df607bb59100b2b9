package testgen

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"
)

const audioSampleSize = 16

// GenerateM4B writes an M4B file with an audio track, an optional chapter
// text track and an iTunes item list. The layout is ftyp, mdat, moov so chunk
// offsets are known before the moov box is built.
func GenerateM4B(t *testing.T, dir, filename string, opts M4BOptions) string {
	t.Helper()

	timescale := opts.Timescale
	if timescale == 0 {
		timescale = 1000
	}
	chapterTimescale := opts.ChapterTimescale
	if chapterTimescale == 0 {
		chapterTimescale = timescale
	}
	duration := opts.Duration
	if duration == 0 {
		for _, ch := range opts.Chapters {
			duration += ch.Duration
		}
	}
	if duration == 0 {
		duration = time.Second
	}
	audioEntry := opts.AudioSampleEntry
	if audioEntry == "" {
		audioEntry = "mp4a"
	}
	chapterEntry := opts.ChapterSampleEntry
	if chapterEntry == "" {
		chapterEntry = "text"
	}

	ftyp := box("ftyp", []byte("M4B "), u32(0x200), []byte("isomM4B "))

	// mdat payload: the audio sample, then one sample per chapter.
	dataStart := uint32(len(ftyp) + 8)
	var mdat bytes.Buffer
	mdat.Write(make([]byte, audioSampleSize))

	var chapterSizes, chapterOffsets, chapterDeltas []uint32
	for _, ch := range opts.Chapters {
		payload := ch.Payload
		if payload == nil {
			payload = ChapterSample(ch.Title)
		}
		chapterOffsets = append(chapterOffsets, dataStart+uint32(mdat.Len()))
		chapterSizes = append(chapterSizes, uint32(len(payload)))
		chapterDeltas = append(chapterDeltas, toUnits(ch.Duration, chapterTimescale))
		mdat.Write(payload)
	}

	movieUnits := toUnits(duration, timescale)
	traks := [][]byte{
		trak(1, "soun", audioEntry, timescale, []uint32{movieUnits}, []uint32{audioSampleSize}, []uint32{dataStart}),
	}
	if len(opts.Chapters) > 0 {
		traks = append(traks, trak(2, "text", chapterEntry, chapterTimescale, chapterDeltas, chapterSizes, chapterOffsets))
	}

	moovChildren := [][]byte{mvhd(timescale, movieUnits, uint32(len(traks)+1))}
	moovChildren = append(moovChildren, traks...)
	if !opts.NoItemList {
		moovChildren = append(moovChildren, udta(t, opts))
	}

	var file bytes.Buffer
	file.Write(ftyp)
	file.Write(box("mdat", mdat.Bytes()))
	file.Write(box("moov", moovChildren...))

	return WriteFile(t, dir, filepath.Base(filename), file.Bytes())
}

// ChapterSample encodes a chapter title the way QuickTime text samples are
// stored: a 16-bit length, the text, then a 12 byte encd atom.
func ChapterSample(title string) []byte {
	var buf bytes.Buffer
	buf.Write(u16(uint16(len(title))))
	buf.WriteString(title)
	buf.Write([]byte{0, 0, 0, 0x0C, 'e', 'n', 'c', 'd', 0, 0, 1, 0})
	return buf.Bytes()
}

func udta(t *testing.T, opts M4BOptions) []byte {
	t.Helper()

	var items [][]byte
	addText := func(atom, value string) {
		if value != "" {
			items = append(items, box(atom, dataBox(1, []byte(value))))
		}
	}
	addText("\xa9nam", opts.Title)
	addText("\xa9alb", opts.Album)
	addText("\xa9ART", opts.Artist)
	addText("aART", opts.AlbumArtist)
	addText("sonm", opts.SortTitle)
	addText("soal", opts.SortAlbum)
	addText("soar", opts.SortArtist)

	if opts.Subtitle != "" {
		items = append(items, box("----",
			box("mean", u32(0), []byte("com.apple.iTunes")),
			box("name", u32(0), []byte("SUBTITLE")),
			dataBox(1, []byte(opts.Subtitle)),
		))
	}

	if opts.HasCover {
		mimeType := opts.CoverMimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		dataType := uint32(13)
		if mimeType == "image/png" {
			dataType = 14
		}
		items = append(items, box("covr", dataBox(dataType, GenerateImage(t, mimeType))))
	}

	hdlr := box("hdlr", u32(0), u32(0), []byte("mdir"), []byte("appl"), u32(0), u32(0), []byte{0})
	meta := box("meta", u32(0), hdlr, box("ilst", items...))
	return box("udta", meta)
}

func dataBox(dataType uint32, value []byte) []byte {
	return box("data", u32(dataType), u32(0), value)
}

func mvhd(timescale, duration, nextTrackID uint32) []byte {
	// version/flags, creation and modification time, then rate 1.0 and
	// volume 1.0.
	return box("mvhd",
		u32(0),
		u32(0), u32(0),
		u32(timescale),
		u32(duration),
		u32(0x00010000),
		u16(0x0100),
		make([]byte, 10),
		identityMatrix(),
		make([]byte, 24),
		u32(nextTrackID),
	)
}

func trak(id uint32, handler, sampleEntry string, timescale uint32, deltas, sizes, offsets []uint32) []byte {
	var total uint32
	for _, d := range deltas {
		total += d
	}

	// Version 0 with the enabled and in_movie flags.
	tkhd := box("tkhd",
		u32(3),
		u32(0), u32(0),
		u32(id),
		u32(0),
		u32(total),
		make([]byte, 8),
		u16(0), u16(0), u16(0x0100), u16(0),
		identityMatrix(),
		u32(0), u32(0),
	)
	mdhd := box("mdhd",
		u32(0),
		u32(0), u32(0),
		u32(timescale),
		u32(total),
		u16(0x55C4), // "und"
		u16(0),
	)
	hdlr := box("hdlr", u32(0), u32(0), []byte(handler), make([]byte, 12), []byte{0})

	entry := box(sampleEntry, make([]byte, 6), u16(1))
	stsd := box("stsd", u32(0), u32(1), entry)

	var stts bytes.Buffer
	stts.Write(u32(0))
	stts.Write(u32(uint32(len(deltas))))
	for _, d := range deltas {
		stts.Write(u32(1))
		stts.Write(u32(d))
	}

	// One sample per chunk.
	stsc := box("stsc", u32(0), u32(1), u32(1), u32(1), u32(1))

	var stsz bytes.Buffer
	stsz.Write(u32(0))
	stsz.Write(u32(0))
	stsz.Write(u32(uint32(len(sizes))))
	for _, s := range sizes {
		stsz.Write(u32(s))
	}

	var stco bytes.Buffer
	stco.Write(u32(0))
	stco.Write(u32(uint32(len(offsets))))
	for _, o := range offsets {
		stco.Write(u32(o))
	}

	stbl := box("stbl", stsd, box("stts", stts.Bytes()), stsc, box("stsz", stsz.Bytes()), box("stco", stco.Bytes()))
	minf := box("minf", stbl)
	mdia := box("mdia", mdhd, hdlr, minf)
	return box("trak", tkhd, mdia)
}

func identityMatrix() []byte {
	var buf bytes.Buffer
	for _, v := range []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		buf.Write(u32(v))
	}
	return buf.Bytes()
}

func box(boxType string, payload ...[]byte) []byte {
	size := 8
	for _, p := range payload {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, u32(uint32(size))...)
	buf = append(buf, boxType[:4]...)
	for _, p := range payload {
		buf = append(buf, p...)
	}
	return buf
}

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func u16(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func toUnits(d time.Duration, timescale uint32) uint32 {
	return uint32(d * time.Duration(timescale) / time.Second)
}
