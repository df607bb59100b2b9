// Package audiobook builds canonical book descriptions from chaptered
// containers and folders of single-track files.
package audiobook

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
)

// Book is the canonical description of one audiobook produced by a Builder.
type Book struct {
	Name         string
	Author       string
	Duration     time.Duration
	CoverArtPath *string
	Files        []BookFile
}

// BookFile is one on-disk audio file contributing chapters to a Book.
type BookFile struct {
	Path     string
	Chapters []Chapter
}

// Chapter is a named span of audio within a BookFile.
type Chapter struct {
	Title    string
	Duration time.Duration
}

// chapterBuilder holds a decoded chapter before the title default is applied.
type chapterBuilder struct {
	title    *string
	duration time.Duration
}

// buildChapters resolves builders into chapters. Untitled entries are named
// after their 1-based position.
func buildChapters(builders []chapterBuilder) []Chapter {
	chapters := make([]Chapter, 0, len(builders))
	for i, b := range builders {
		title := fmt.Sprintf("Chapter %d", i+1)
		if b.title != nil {
			title = *b.title
		}
		chapters = append(chapters, Chapter{Title: title, Duration: b.duration})
	}
	return chapters
}

// ChapterCount returns the number of chapters across every file.
func (b *Book) ChapterCount() int {
	count := 0
	for _, f := range b.Files {
		count += len(f.Chapters)
	}
	return count
}

// Chapters returns every chapter of the book in playback order.
func (b *Book) Chapters() []Chapter {
	chapters := make([]Chapter, 0, b.ChapterCount())
	for _, f := range b.Files {
		chapters = append(chapters, f.Chapters...)
	}
	return chapters
}

// DurationMicros returns the total duration in whole microseconds, the unit the
// catalog persists.
func (b *Book) DurationMicros() int64 {
	return b.Duration.Microseconds()
}

func (b *Book) recomputeDuration() {
	var total time.Duration
	for _, f := range b.Files {
		for _, c := range f.Chapters {
			total += c.Duration
		}
	}
	b.Duration = total
}

type chapterJSON struct {
	Title      string `json:"title"`
	DurationUS int64  `json:"duration_us"`
}

type bookFileJSON struct {
	Path     string        `json:"path"`
	Chapters []chapterJSON `json:"chapters"`
}

type bookJSON struct {
	Name         string         `json:"name"`
	Author       string         `json:"author"`
	DurationUS   int64          `json:"duration_us"`
	CoverArtPath *string        `json:"cover_art_path"`
	Files        []bookFileJSON `json:"files"`
}

// MarshalJSON encodes durations as integer microseconds.
func (b Book) MarshalJSON() ([]byte, error) {
	out := bookJSON{
		Name:         b.Name,
		Author:       b.Author,
		DurationUS:   b.Duration.Microseconds(),
		CoverArtPath: b.CoverArtPath,
		Files:        make([]bookFileJSON, 0, len(b.Files)),
	}
	for _, f := range b.Files {
		file := bookFileJSON{Path: f.Path, Chapters: make([]chapterJSON, 0, len(f.Chapters))}
		for _, c := range f.Chapters {
			file.Chapters = append(file.Chapters, chapterJSON{Title: c.Title, DurationUS: c.Duration.Microseconds()})
		}
		out.Files = append(out.Files, file)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *Book) UnmarshalJSON(data []byte) error {
	var in bookJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Name = in.Name
	b.Author = in.Author
	b.Duration = time.Duration(in.DurationUS) * time.Microsecond
	b.CoverArtPath = in.CoverArtPath
	b.Files = make([]BookFile, 0, len(in.Files))
	for _, f := range in.Files {
		file := BookFile{Path: f.Path, Chapters: make([]Chapter, 0, len(f.Chapters))}
		for _, c := range f.Chapters {
			file.Chapters = append(file.Chapters, Chapter{Title: c.Title, Duration: time.Duration(c.DurationUS) * time.Microsecond})
		}
		b.Files = append(b.Files, file)
	}
	return nil
}
