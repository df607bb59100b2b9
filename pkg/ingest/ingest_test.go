package ingest

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/internal/testgen"
	"github.com/shishobooks/cyprus/pkg/audiobook"
	"github.com/shishobooks/cyprus/pkg/catalog"
	"github.com/shishobooks/cyprus/pkg/config"
	"github.com/shishobooks/cyprus/pkg/mediafile"
	"github.com/shishobooks/cyprus/pkg/migrations"
	"github.com/shishobooks/cyprus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type fakeBuilder struct {
	delay   time.Duration
	active  int32
	maxSeen int32
	mu      sync.Mutex
	calls   []string
}

func (b *fakeBuilder) build(path string) (*audiobook.Book, error) {
	n := atomic.AddInt32(&b.active, 1)
	defer atomic.AddInt32(&b.active, -1)
	for {
		m := atomic.LoadInt32(&b.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&b.maxSeen, m, n) {
			break
		}
	}

	b.mu.Lock()
	b.calls = append(b.calls, path)
	b.mu.Unlock()

	time.Sleep(b.delay)
	return &audiobook.Book{Name: filepath.Base(path), Author: "Author", Duration: time.Minute}, nil
}

func (b *fakeBuilder) FromFile(_ context.Context, path string) (*audiobook.Book, error) {
	return b.build(path)
}

func (b *fakeBuilder) FromFolder(_ context.Context, dir string) (*audiobook.Book, error) {
	return b.build(dir)
}

type memoryStore struct {
	mu    sync.Mutex
	books map[string]*audiobook.Book
}

func (s *memoryStore) CreateBook(_ context.Context, location string, book *audiobook.Book) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.books == nil {
		s.books = map[string]*audiobook.Book{}
	}
	s.books[location] = book
	return &models.Book{ID: location, Name: book.Name, DurationUs: book.DurationMicros()}, nil
}

func TestRun_StoresBooks(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "ingest-run-*")

	m4b := testgen.GenerateM4B(t, dir, "dune.m4b", testgen.M4BOptions{
		Album:       "Dune",
		AlbumArtist: "Frank Herbert",
		Duration:    time.Hour,
		Chapters: []testgen.M4BChapter{
			{Title: "Book One", Duration: 30 * time.Minute},
			{Title: "Book Two", Duration: 30 * time.Minute},
		},
	})

	folder := testgen.CreateSubDir(t, dir, "messiah")
	testgen.GenerateMP3(t, folder, "01.mp3", testgen.MP3Options{Title: "Part 1", Album: "Dune Messiah", Artist: "Frank Herbert"})
	testgen.GenerateMP3(t, folder, "02.mp3", testgen.MP3Options{Title: "Part 2", Album: "Dune Messiah", Artist: "Frank Herbert"})

	cfg := config.NewForTest()
	cfg.WorkerProcesses = 2
	svc := catalog.NewService(newTestDB(t))
	w := New(cfg, mediafile.NewBuilder(cfg), svc)

	results := w.Run(context.Background(), []string{m4b, folder})
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, m4b, results[0].Path)
	assert.Equal(t, "Dune", results[0].Book.Name)
	require.NotNil(t, results[0].Stored)
	assert.Equal(t, 2, results[0].Stored.ChapterCount)

	require.NoError(t, results[1].Err)
	assert.Equal(t, folder, results[1].Path)
	assert.Equal(t, "Dune Messiah", results[1].Book.Name)
	require.Len(t, results[1].Book.Files, 2)

	books, err := svc.ListBooks(context.Background(), catalog.ListBooksOptions{})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Name)
	assert.Equal(t, "Dune Messiah", books[1].Name)
}

func TestRun_FailuresAreIsolated(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "ingest-isolated-*")

	good := testgen.GenerateMP3(t, dir, "good.mp3", testgen.MP3Options{Title: "Good", Album: "Good Book"})
	notes := testgen.WriteFile(t, dir, "notes.txt", []byte("not audio"))
	missing := filepath.Join(dir, "missing.mp3")

	cfg := config.NewForTest()
	store := &memoryStore{}
	w := New(cfg, mediafile.NewBuilder(cfg), store)

	results := w.Run(context.Background(), []string{notes, good, missing})
	require.Len(t, results, 3)

	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Book)

	require.NoError(t, results[1].Err)
	assert.Equal(t, "Good Book", results[1].Book.Name)

	require.ErrorIs(t, results[2].Err, audiobook.ErrIO)

	assert.Len(t, store.books, 1)
	assert.Contains(t, store.books, good)
}

func TestRun_DuplicateLocation(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "ingest-duplicate-*")

	path := testgen.GenerateMP3(t, dir, "track.mp3", testgen.MP3Options{Title: "Track", Album: "Album"})

	cfg := config.NewForTest()
	w := New(cfg, mediafile.NewBuilder(cfg), catalog.NewService(newTestDB(t)))

	results := w.Run(context.Background(), []string{path, path})
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, catalog.ErrBookExists)
	assert.NotNil(t, results[1].Book)
	assert.Nil(t, results[1].Stored)
}

func TestRun_RespectsWorkerLimit(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "ingest-limit-*")

	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		paths = append(paths, testgen.WriteFile(t, dir, name+".m4b", []byte(name)))
	}

	cfg := config.NewForTest()
	cfg.WorkerProcesses = 2
	builder := &fakeBuilder{delay: 20 * time.Millisecond}
	w := New(cfg, builder, &memoryStore{})

	results := w.Run(context.Background(), paths)
	require.Len(t, results, len(paths))
	for i, result := range results {
		require.NoError(t, result.Err)
		assert.Equal(t, paths[i], result.Path)
		assert.Equal(t, filepath.Base(paths[i]), result.Book.Name)
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&builder.maxSeen), int32(2))
	assert.Len(t, builder.calls, len(paths))
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "ingest-canceled-*")

	a := testgen.WriteFile(t, dir, "a.m4b", []byte("a"))
	b := testgen.WriteFile(t, dir, "b.m4b", []byte("b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder := &fakeBuilder{}
	w := New(config.NewForTest(), builder, &memoryStore{})

	results := w.Run(ctx, []string{a, b})
	require.Len(t, results, 2)
	for _, result := range results {
		assert.True(t, errors.Is(result.Err, context.Canceled))
		assert.Nil(t, result.Book)
	}
	assert.Empty(t, builder.calls)
}
