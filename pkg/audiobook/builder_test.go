package audiobook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFile_PrefersContainer(t *testing.T) {
	t.Parallel()

	src, path, _ := containerFixture(t, []*Sample{
		{Bytes: chapterPayload("One"), Duration: 10 * time.Second},
		{Bytes: chapterPayload("Two"), Duration: 20 * time.Second, StartTime: 10 * time.Second},
	})

	book, err := src.builder().FromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, book.Chapters(), 2)
	assert.Equal(t, 30*time.Second, book.Duration)
}

func TestFromFile_FallsBackToSingleTrack(t *testing.T) {
	t.Parallel()

	src, path, c := containerFixture(t, nil)
	c.tracks = []*fakeTrack{audioTrack(1)}
	src.tags[path].tag.fields[TrackTitle] = "The Finder"
	src.tags[path].tag.pictures = []Picture{{Type: PictureCoverFront, Data: []byte("img")}}

	book, err := src.builder().FromFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "A Wizard of Earthsea", book.Name)
	assert.Equal(t, "Ursula K. Le Guin", book.Author)
	assert.Nil(t, book.CoverArtPath)
	require.Len(t, book.Files, 1)
	assert.Equal(t, []Chapter{{Title: "The Finder", Duration: 3600 * time.Second}}, book.Files[0].Chapters)
	assert.Equal(t, 3600*time.Second, book.Duration)
}

func TestFromFile_SingleTrackDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := touch(t, dir, "track.mp3")
	src := newFakeSources()
	src.tags[path] = &fakeTaggedFile{tag: &fakeTag{fields: map[ItemKey]string{}}, duration: 5 * time.Second}

	book, err := src.builder().FromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBookName, book.Name)
	assert.Equal(t, DefaultAuthor, book.Author)
	assert.Equal(t, DefaultChapterTitle, book.Chapters()[0].Title)
	assert.Equal(t, 5*time.Second, book.Duration)
}

func TestFromFile_SingleTrackErrorPropagates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := touch(t, dir, "track.mp3")
	src := newFakeSources()
	src.tags[path] = &fakeTaggedFile{duration: time.Second}

	book, err := src.builder().FromFile(context.Background(), path)
	assert.Nil(t, book)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrimaryTagMissing)
}

func TestFromFile_TagReadErrorIsTagDecode(t *testing.T) {
	t.Parallel()

	src := newFakeSources()

	_, err := src.builder().FromFile(context.Background(), "/nowhere/track.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTagDecode)
	assert.Equal(t, TagDecode, KindOf(err))
}

func TestError_Is(t *testing.T) {
	t.Parallel()

	err := NewError(EmptyFolder, "/books/empty", nil)
	assert.ErrorIs(t, err, ErrEmptyFolder)
	assert.NotErrorIs(t, err, ErrNotADirectory)
	assert.Equal(t, "folder has no audio files: /books/empty", err.Error())
	assert.Equal(t, Kind(0), KindOf(assert.AnError))
}
