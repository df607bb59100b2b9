// Package ingest builds and stores many audiobooks in parallel.
package ingest

import (
	"context"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/cyprus/pkg/audiobook"
	"github.com/shishobooks/cyprus/pkg/config"
	"github.com/shishobooks/cyprus/pkg/models"
	"golang.org/x/sync/errgroup"
)

var processID = randStringBytes(8)

// Builder turns a path into a Book.
type Builder interface {
	FromFile(ctx context.Context, path string) (*audiobook.Book, error)
	FromFolder(ctx context.Context, dir string) (*audiobook.Book, error)
}

// Store persists built books.
type Store interface {
	CreateBook(ctx context.Context, location string, book *audiobook.Book) (*models.Book, error)
}

// Result is the outcome of ingesting one path.
type Result struct {
	Path   string
	Book   *audiobook.Book
	Stored *models.Book
	Err    error
}

type Worker struct {
	config  *config.Config
	log     logger.Logger
	builder Builder
	store   Store
}

func New(cfg *config.Config, builder Builder, store Store) *Worker {
	return &Worker{
		config:  cfg,
		log:     logger.NewWithLevel(cfg.LogLevel),
		builder: builder,
		store:   store,
	}
}

// Run ingests every path with at most WorkerProcesses builds in flight and
// returns one Result per path in input order. A failing path doesn't stop the
// others. Once ctx is done no new path is started and the remaining ones
// report the context error.
func (w *Worker) Run(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	limit := w.config.WorkerProcesses
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Path: path, Err: errors.WithStack(err)}
			continue
		}
		g.Go(func() error {
			results[i] = w.ingest(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (w *Worker) ingest(ctx context.Context, path string) Result {
	result := Result{Path: path}

	id, err := uuid.NewRandom()
	if err != nil {
		result.Err = errors.WithStack(err)
		return result
	}
	log := w.log.ID(id.String()).Root(logger.Data{"path": path, "process_id": processID})
	ctx = log.WithContext(ctx)

	if err := ctx.Err(); err != nil {
		result.Err = errors.WithStack(err)
		return result
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Err = audiobook.NewError(audiobook.IO, path, err)
		log.Err(result.Err).Error("stat error")
		return result
	}

	var book *audiobook.Book
	if info.IsDir() {
		book, err = w.builder.FromFolder(ctx, path)
	} else {
		book, err = w.builder.FromFile(ctx, path)
	}
	if err != nil {
		result.Err = err
		log.Err(err).Error("build error")
		return result
	}
	result.Book = book

	stored, err := w.store.CreateBook(ctx, path, book)
	if err != nil {
		result.Err = err
		log.Err(err).Error("store error")
		return result
	}
	result.Stored = stored

	log.Info("book ingested", logger.Data{
		"book_id":     stored.ID,
		"name":        book.Name,
		"author":      book.Author,
		"duration_us": stored.DurationUs,
		"files":       len(book.Files),
		"chapters":    book.ChapterCount(),
	})

	return result
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
