package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is a stored audiobook. Durations are kept in microseconds.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID           string    `bun:",pk" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `bun:",notnull" json:"name"`
	Author       string    `bun:",notnull" json:"author"`
	DurationUs   int64     `bun:"duration_us,notnull" json:"duration_us"`
	FileLocation string    `bun:",notnull" json:"file_location"`
	CoverArtPath *string   `json:"cover_art_path"`
	FileCount    int       `bun:",notnull" json:"file_count"`
	ChapterCount int       `bun:",notnull" json:"chapter_count"`
}

// Duration converts the stored microseconds back to a time.Duration.
func (b *Book) Duration() time.Duration {
	return time.Duration(b.DurationUs) * time.Microsecond
}
