package audiobook

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
)

// BuilderOptions tunes a Builder.
type BuilderOptions struct {
	// DisableCoverArt skips cover extraction on the container path.
	DisableCoverArt bool
}

// Builder turns files and folders into Books using the given tag and container
// readers.
type Builder struct {
	tags       TagReader
	containers ContainerOpener
	opts       BuilderOptions
}

func NewBuilder(tags TagReader, containers ContainerOpener, opts BuilderOptions) *Builder {
	return &Builder{tags, containers, opts}
}

// FromFile builds a Book from a single file. It tries the container decoder
// first and falls back to treating the file as a single chapter when that
// fails for any reason.
func (b *Builder) FromFile(ctx context.Context, path string) (*Book, error) {
	log := logger.FromContext(ctx)

	book, err := b.fromContainer(ctx, path)
	if err == nil {
		return book, nil
	}

	log.Info("container decode failed, reading as single track", logger.Data{
		"path":  path,
		"error": err.Error(),
	})

	return b.fromSingleTrack(ctx, path)
}

// readPrimaryTag reads the tags of path and returns them with the primary tag,
// failing when there's no primary tag.
func (b *Builder) readPrimaryTag(ctx context.Context, path string) (TaggedFile, TagSource, error) {
	tagged, err := b.tags.ReadTags(ctx, path)
	if err != nil {
		if KindOf(err) != 0 {
			return nil, nil, err
		}
		return nil, nil, NewError(TagDecode, path, err)
	}

	tag := tagged.PrimaryTag()
	if tag == nil {
		return nil, nil, NewError(PrimaryTagMissing, path, nil)
	}

	return tagged, tag, nil
}
