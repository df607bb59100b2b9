package audiobook

import (
	"context"
)

// fromSingleTrack treats path as exactly one chapter. Cover art is not
// extracted on this path.
func (b *Builder) fromSingleTrack(ctx context.Context, path string) (*Book, error) {
	tagged, tag, err := b.readPrimaryTag(ctx, path)
	if err != nil {
		return nil, err
	}

	book := &Book{
		Name:   ResolveBookName(tag),
		Author: ResolveAuthor(tag),
		Files: []BookFile{{
			Path: path,
			Chapters: []Chapter{{
				Title:    ResolveChapterTitle(tag),
				Duration: tagged.Duration(),
			}},
		}},
	}
	book.recomputeDuration()

	return book, nil
}
