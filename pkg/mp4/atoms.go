package mp4

import (
	"encoding/binary"
	"unicode/utf16"

	gomp4 "github.com/abema/go-mp4"
)

// MP4 data types used in iTunes metadata atoms.
const (
	DataTypeReserved = 0  // Reserved, should not be used
	DataTypeUTF8     = 1  // UTF-8 text (most common)
	DataTypeUTF16BE  = 2  // UTF-16 big-endian text
	DataTypeJPEG     = 13 // JPEG image data
	DataTypePNG      = 14 // PNG image data
	DataTypeGenre    = 18 // Genre, stored as UTF-8 text
	DataTypeBMP      = 27 // BMP image data
)

// iTunes atom type names (4-byte codes).
// Note: © symbol is encoded as 0xA9 in MacRoman.
var (
	AtomTitle  = [4]byte{0xA9, 'n', 'a', 'm'} // ©nam - Track title
	AtomArtist = [4]byte{0xA9, 'A', 'R', 'T'} // ©ART - Track artist
	AtomAlbum  = [4]byte{0xA9, 'a', 'l', 'b'} // ©alb - Album title

	AtomAlbumArtist     = [4]byte{'a', 'A', 'R', 'T'} // aART - Album artist
	AtomSortTitle       = [4]byte{'s', 'o', 'n', 'm'} // sonm - Track title sort order
	AtomSortArtist      = [4]byte{'s', 'o', 'a', 'r'} // soar - Track artist sort order
	AtomSortAlbum       = [4]byte{'s', 'o', 'a', 'l'} // soal - Album title sort order
	AtomSortAlbumArtist = [4]byte{'s', 'o', 'a', 'a'} // soaa - Album artist sort order
	AtomCover           = [4]byte{'c', 'o', 'v', 'r'} // covr - Cover artwork
	AtomFreeform        = [4]byte{'-', '-', '-', '-'} // ---- - Freeform/custom atom
)

// Freeform key holding the track subtitle.
const freeformSubtitle = "com.apple.iTunes:SUBTITLE"

// Box types for navigation.
var (
	BoxTypeFtyp = gomp4.BoxTypeFtyp() // ftyp - File type
	BoxTypeMoov = gomp4.BoxTypeMoov() // moov - Movie box
	BoxTypeUdta = gomp4.BoxTypeUdta() // udta - User data box
	BoxTypeMeta = gomp4.BoxTypeMeta() // meta - Metadata box
	BoxTypeIlst = gomp4.BoxTypeIlst() // ilst - Item list box
	BoxTypeMvhd = gomp4.BoxTypeMvhd() // mvhd - Movie header
	BoxTypeTrak = gomp4.BoxTypeTrak() // trak - Track box
	BoxTypeTkhd = gomp4.BoxTypeTkhd() // tkhd - Track header
	BoxTypeHdlr = gomp4.BoxTypeHdlr() // hdlr - Handler box
	BoxTypeMdia = gomp4.BoxTypeMdia() // mdia - Media box
	BoxTypeMdhd = gomp4.BoxTypeMdhd() // mdhd - Media header
	BoxTypeMinf = gomp4.BoxTypeMinf() // minf - Media information
	BoxTypeStbl = gomp4.BoxTypeStbl() // stbl - Sample table
	BoxTypeStsd = gomp4.BoxTypeStsd() // stsd - Sample description
	BoxTypeStts = gomp4.BoxTypeStts() // stts - Time to sample
	BoxTypeStsc = gomp4.BoxTypeStsc() // stsc - Sample to chunk
	BoxTypeStsz = gomp4.BoxTypeStsz() // stsz - Sample sizes
	BoxTypeStco = gomp4.BoxTypeStco() // stco - Chunk offsets
	BoxTypeCo64 = gomp4.BoxTypeCo64() // co64 - 64-bit chunk offsets
)

// parseDataValue extracts the value from a data atom based on its type.
// The data format is: [1 byte version][3 bytes type][4 bytes locale][...data...].
func parseDataValue(data []byte) (dataType int, value []byte, ok bool) {
	if len(data) < 8 {
		return 0, nil, false
	}

	dataType = int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	value = data[8:]

	return dataType, value, true
}

// parseTextData extracts text from a data atom, handling various data types.
func parseTextData(data []byte) string {
	dataType, value, ok := parseDataValue(data)
	if !ok || len(value) == 0 {
		return ""
	}

	if dataType == DataTypeUTF16BE && len(value) >= 2 {
		return decodeUTF16BE(value)
	}

	return string(value)
}

// parseImageData extracts image data and determines the MIME type.
func parseImageData(data []byte) (imageData []byte, mimeType string, ok bool) {
	dataType, value, ok := parseDataValue(data)
	if !ok || len(value) == 0 {
		return nil, "", false
	}

	switch dataType {
	case DataTypeJPEG:
		return value, "image/jpeg", true
	case DataTypePNG:
		return value, "image/png", true
	case DataTypeBMP:
		return value, "image/bmp", true
	default:
		return detectImageType(value)
	}
}

// detectImageType attempts to determine image type from magic bytes.
func detectImageType(data []byte) (imageData []byte, mimeType string, ok bool) {
	if len(data) < 4 {
		return nil, "", false
	}

	// JPEG magic bytes: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return data, "image/jpeg", true
	}

	// PNG magic bytes: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G' {
		return data, "image/png", true
	}

	// BMP magic bytes: 42 4D
	if data[0] == 'B' && data[1] == 'M' {
		return data, "image/bmp", true
	}

	return nil, "", false
}

// decodeUTF16BE decodes UTF-16 big-endian bytes to a string. Surrogate pairs
// are combined and decoding stops at a NUL.
func decodeUTF16BE(data []byte) string {
	start := 0
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		start = 2
	}

	units := make([]uint16, 0, (len(data)-start)/2)
	for i := start; i+1 < len(data); i += 2 {
		u := binary.BigEndian.Uint16(data[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}

	return string(utf16.Decode(units))
}

// childBoxes splits a run of boxes into (type, payload) pairs. Parsing stops at
// the first malformed header.
func childBoxes(data []byte) []rawBox {
	var boxes []rawBox
	offset := 0
	for offset+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[offset:]))
		if size < 8 || offset+size > len(data) {
			break
		}
		var t [4]byte
		copy(t[:], data[offset+4:offset+8])
		boxes = append(boxes, rawBox{boxType: t, payload: data[offset+8 : offset+size]})
		offset += size
	}
	return boxes
}

type rawBox struct {
	boxType [4]byte
	payload []byte
}

// atomTypeEquals checks if an atom type matches a reference type.
func atomTypeEquals(boxType gomp4.BoxType, atomType [4]byte) bool {
	return boxType[0] == atomType[0] &&
		boxType[1] == atomType[1] &&
		boxType[2] == atomType[2] &&
		boxType[3] == atomType[3]
}
