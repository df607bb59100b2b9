// Package testgen builds M4B and MP3 files with configurable metadata for
// tests of the audiobook builder.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// M4BOptions configures the generated M4B file.
type M4BOptions struct {
	Title       string // ©nam
	Album       string // ©alb
	Artist      string // ©ART
	AlbumArtist string // aART
	SortTitle   string // sonm
	SortAlbum   string // soal
	SortArtist  string // soar
	Subtitle    string // ----:com.apple.iTunes:SUBTITLE

	// NoItemList omits udta/meta/ilst entirely.
	NoItemList    bool
	HasCover      bool
	CoverMimeType string // "image/jpeg" or "image/png", defaults to "image/jpeg"

	Timescale uint32        // movie timescale, defaults to 1000
	Duration  time.Duration // movie duration, defaults to the sum of the chapters

	// Chapters adds a chapter text track with one sample per chapter.
	Chapters []M4BChapter
	// ChapterSampleEntry is the chapter track's stsd entry, defaults to "text".
	ChapterSampleEntry string
	// ChapterTimescale is the chapter track's mdhd timescale, defaults to
	// Timescale.
	ChapterTimescale uint32
	// AudioSampleEntry is the audio track's stsd entry, defaults to "mp4a".
	AudioSampleEntry string
}

// M4BChapter is one chapter sample.
type M4BChapter struct {
	Title    string
	Duration time.Duration
	// Payload replaces the encoded title when non-nil.
	Payload []byte
}

// MP3Options configures the generated MP3 file.
type MP3Options struct {
	Title          string // TIT2
	Subtitle       string // TIT3
	Album          string // TALB
	OriginalAlbum  string // TOAL
	Artist         string // TPE1
	AlbumArtist    string // TPE2
	OriginalArtist string // TOPE
	SortTitle      string // TSOT

	// NoTag writes the audio frames without an ID3v2 tag.
	NoTag    bool
	HasCover bool

	// Frames is the frame count advertised by the Xing header, defaults to
	// 2500 (60 seconds).
	Frames uint32
	// CBR omits the Xing header and writes Frames audio frames instead.
	CBR bool
	// MPEG2 writes 64 kbps 22.05 kHz MPEG-2 frames instead of the default
	// 128 kbps 48 kHz MPEG-1 frames.
	MPEG2 bool
}

// TempDir creates a temporary directory for testing and registers cleanup.
// The directory is automatically removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// CreateSubDir creates a subdirectory within the given parent directory.
// Returns the full path to the created subdirectory.
func CreateSubDir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create subdirectory %s: %v", dir, err)
	}
	return dir
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}
