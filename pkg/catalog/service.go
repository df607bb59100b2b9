// Package catalog stores built audiobooks.
package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shishobooks/cyprus/pkg/audiobook"
	"github.com/shishobooks/cyprus/pkg/errcodes"
	"github.com/shishobooks/cyprus/pkg/models"
	"github.com/uptrace/bun"
)

// ErrBookExists is returned when a book is already stored for a file location.
var ErrBookExists = errcodes.AlreadyExists("Book")

type RetrieveBookOptions struct {
	ID           *string
	FileLocation *string
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook stores book under location, the path it was ingested from.
func (svc *Service) CreateBook(ctx context.Context, location string, book *audiobook.Book) (*models.Book, error) {
	row := &models.Book{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now(),
		Name:         book.Name,
		Author:       book.Author,
		DurationUs:   book.DurationMicros(),
		FileLocation: location,
		CoverArtPath: book.CoverArtPath,
		FileCount:    len(book.Files),
		ChapterCount: book.ChapterCount(),
	}

	_, err := svc.db.
		NewInsert().
		Model(row).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(ErrBookExists, "file location %s", location)
		}
		return nil, errors.WithStack(err)
	}

	return row, nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.FileLocation != nil {
		q = q.Where("b.file_location = ?", *opts.FileLocation)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		OrderExpr("b.name COLLATE NOCASE ASC").
		Order("b.created_at ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
