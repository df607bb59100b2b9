package audiobook

import (
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChapters_DefaultTitles(t *testing.T) {
	t.Parallel()

	builders := []chapterBuilder{
		{title: nil, duration: time.Second},
		{title: strPtr("Interlude"), duration: 2 * time.Second},
		{title: nil, duration: 3 * time.Second},
		{title: strPtr(""), duration: 0},
		{title: nil, duration: 0},
	}

	chapters := buildChapters(builders)
	require.Len(t, chapters, 5)
	assert.Equal(t, "Chapter 1", chapters[0].Title)
	assert.Equal(t, "Interlude", chapters[1].Title)
	assert.Equal(t, "Chapter 3", chapters[2].Title)
	assert.Equal(t, "", chapters[3].Title)
	assert.Equal(t, "Chapter 5", chapters[4].Title)
	assert.Equal(t, 2*time.Second, chapters[1].Duration)
}

func TestBook_RecomputeDuration(t *testing.T) {
	t.Parallel()

	book := &Book{
		Duration: time.Hour,
		Files: []BookFile{
			{Path: "a.mp3", Chapters: []Chapter{{Title: "a", Duration: time.Minute}}},
			{Path: "b.mp3", Chapters: []Chapter{{Title: "b", Duration: 2 * time.Minute}, {Title: "c", Duration: 1500 * time.Microsecond}}},
		},
	}
	book.recomputeDuration()

	assert.Equal(t, 3*time.Minute+1500*time.Microsecond, book.Duration)
	assert.Equal(t, 3, book.ChapterCount())
	assert.Len(t, book.Chapters(), 3)
	assert.Equal(t, int64(180001500), book.DurationMicros())
}

func TestBook_JSON(t *testing.T) {
	t.Parallel()

	book := Book{
		Name:         "The Lathe of Heaven",
		Author:       "Ursula K. Le Guin",
		Duration:     90*time.Second + 250*time.Microsecond,
		CoverArtPath: strPtr("/books/cover_The Lathe of Heaven.jpg"),
		Files: []BookFile{{
			Path: "/books/lathe.m4b",
			Chapters: []Chapter{
				{Title: "One", Duration: 60 * time.Second},
				{Title: "Two", Duration: 30*time.Second + 250*time.Microsecond},
			},
		}},
	}

	data, err := json.Marshal(book)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "The Lathe of Heaven",
		"author": "Ursula K. Le Guin",
		"duration_us": 90000250,
		"cover_art_path": "/books/cover_The Lathe of Heaven.jpg",
		"files": [{
			"path": "/books/lathe.m4b",
			"chapters": [
				{"title": "One", "duration_us": 60000000},
				{"title": "Two", "duration_us": 30000250}
			]
		}]
	}`, string(data))

	var decoded Book
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, book, decoded)
}
