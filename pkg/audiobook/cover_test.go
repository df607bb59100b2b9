package audiobook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverArtPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := touch(t, dir, "book.m4b")

	path, err := CoverArtPath("Tehanu", source)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cover_Tehanu.jpg"), path)

	path, err = CoverArtPath("AC/DC Live", source)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cover_AC_DC Live.jpg"), path)

	_, err = CoverArtPath("Tehanu", dir)
	assert.ErrorIs(t, err, ErrNotAFile)

	_, err = CoverArtPath("Tehanu", filepath.Join(dir, "missing.m4b"))
	assert.ErrorIs(t, err, ErrNotAFile)
}

func TestExtractCoverArt_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	source := touch(t, dir, "book.m4b")
	first := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'f', 'i', 'r', 's', 't'}
	tag := &fakeTag{pictures: []Picture{{Type: PictureCoverFront, MIMEType: "image/jpeg", Data: first}}}

	path, err := ExtractCoverArt(ctx, tag, "Tehanu", source)
	require.NoError(t, err)
	require.NotNil(t, path)
	data, err := os.ReadFile(*path)
	require.NoError(t, err)
	assert.Equal(t, first, data)

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(*path, old, old))

	tag.pictures[0].Data = []byte("second")
	again, err := ExtractCoverArt(ctx, tag, "Tehanu", source)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, *path, *again)

	data, err = os.ReadFile(*again)
	require.NoError(t, err)
	assert.Equal(t, first, data)
	info, err := os.Stat(*again)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))
}

func TestExtractCoverArt_NoPictures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := touch(t, dir, "book.m4b")

	path, err := ExtractCoverArt(context.Background(), &fakeTag{}, "Tehanu", source)
	require.NoError(t, err)
	assert.Nil(t, path)
	_, err = os.Stat(filepath.Join(dir, "cover_Tehanu.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractCoverArt_WriteFailureIsNoCover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := touch(t, dir, "book.m4b")
	tag := &fakeTag{pictures: []Picture{{Type: PictureCoverFront, Data: []byte("img")}}}

	// File names over 255 bytes can't be created.
	path, err := ExtractCoverArt(context.Background(), tag, strings.Repeat("n", 300), source)
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestSelectPicture(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pictures []Picture
		expected []byte
	}{
		{
			name:     "none",
			pictures: nil,
			expected: nil,
		},
		{
			name: "front cover wins",
			pictures: []Picture{
				{Type: PictureOther, Data: []byte("other")},
				{Type: PictureCoverFront, Data: []byte("front")},
			},
			expected: []byte("front"),
		},
		{
			name: "other before icon",
			pictures: []Picture{
				{Type: PictureIcon, Data: []byte("icon")},
				{Type: PictureOther, Data: []byte("other")},
			},
			expected: []byte("other"),
		},
		{
			name: "icon before illustration",
			pictures: []Picture{
				{Type: PictureIllustration, Data: []byte("illustration")},
				{Type: PictureIcon, Data: []byte("icon")},
			},
			expected: []byte("icon"),
		},
		{
			name: "falls back to first picture",
			pictures: []Picture{
				{Type: PictureCoverBack, Data: []byte("back")},
				{Type: PictureArtist, Data: []byte("artist")},
			},
			expected: []byte("back"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			picture := SelectPicture(tc.pictures)
			if tc.expected == nil {
				assert.Nil(t, picture)
				return
			}
			require.NotNil(t, picture)
			assert.Equal(t, tc.expected, picture.Data)
		})
	}
}
