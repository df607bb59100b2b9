package testgen

import (
	"bytes"
	"testing"

	"github.com/bogem/id3v2"
)

type mp3Layout struct {
	header     []byte
	frameSize  int
	xingOffset int
}

var (
	// MPEG-1 Layer III, 128 kbps, 48 kHz, stereo, no CRC. 144 * 128000 / 48000
	// bytes per frame, Xing after the 32 byte side info.
	mpeg1Layout = mp3Layout{header: []byte{0xFF, 0xFB, 0x94, 0x00}, frameSize: 384, xingOffset: 36}
	// MPEG-2 Layer III, 64 kbps, 22.05 kHz, stereo, no CRC. 72 * 64000 / 22050
	// bytes per frame, Xing after the 17 byte side info.
	mpeg2Layout = mp3Layout{header: []byte{0xFF, 0xF3, 0x80, 0x00}, frameSize: 208, xingOffset: 21}
)

const defaultMP3Frames = 2500

// GenerateMP3 writes an MP3 file with an ID3v2.4 tag followed by silent
// frames. By default the first frame carries a Xing header advertising
// opts.Frames frames.
func GenerateMP3(t *testing.T, dir, filename string, opts MP3Options) string {
	t.Helper()

	var file bytes.Buffer
	if !opts.NoTag {
		tag := id3v2.NewEmptyTag()
		tag.SetDefaultEncoding(id3v2.EncodingUTF8)

		addText := func(id, value string) {
			if value != "" {
				tag.AddTextFrame(id, tag.DefaultEncoding(), value)
			}
		}
		addText("TIT2", opts.Title)
		addText("TIT3", opts.Subtitle)
		addText("TALB", opts.Album)
		addText("TOAL", opts.OriginalAlbum)
		addText("TPE1", opts.Artist)
		addText("TPE2", opts.AlbumArtist)
		addText("TOPE", opts.OriginalArtist)
		addText("TSOT", opts.SortTitle)

		if opts.HasCover {
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    "image/jpeg",
				PictureType: id3v2.PTFrontCover,
				Description: "Front cover",
				Picture:     GenerateImage(t, "image/jpeg"),
			})
		}

		if _, err := tag.WriteTo(&file); err != nil {
			t.Fatalf("failed to write ID3 tag: %v", err)
		}
	}

	frames := opts.Frames
	if frames == 0 {
		frames = defaultMP3Frames
	}

	layout := mpeg1Layout
	if opts.MPEG2 {
		layout = mpeg2Layout
	}

	if opts.CBR {
		for i := uint32(0); i < frames; i++ {
			file.Write(layout.frame())
		}
	} else {
		xing := layout.frame()
		copy(xing[layout.xingOffset:], "Xing")
		copy(xing[layout.xingOffset+4:], u32(1)) // frames field present
		copy(xing[layout.xingOffset+8:], u32(frames))
		file.Write(xing)
		file.Write(layout.frame())
	}

	return WriteFile(t, dir, filename, file.Bytes())
}

func (l mp3Layout) frame() []byte {
	frame := make([]byte, l.frameSize)
	copy(frame, l.header)
	return frame
}
