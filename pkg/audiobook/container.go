package audiobook

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/robinjoseph08/golib/logger"
)

// Chapter text samples carry a 2 byte length prefix and a trailing 12 byte
// encoding atom around the title.
const (
	sampleEnvelopeHead = 2
	sampleEnvelopeTail = 12
)

func (b *Builder) fromContainer(ctx context.Context, path string) (*Book, error) {
	log := logger.FromContext(ctx)

	tagged, tag, err := b.readPrimaryTag(ctx, path)
	if err != nil {
		return nil, err
	}

	src, err := b.containers.OpenContainer(ctx, path)
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, NewError(ContainerDecode, path, err)
	}
	defer src.Close()

	track := chapterTrack(src.Tracks())
	if track == nil {
		return nil, NewError(NoChapterTrack, path, nil)
	}

	total := tagged.Duration()
	builders := make([]chapterBuilder, 0, track.SampleCount())
	for id := uint32(1); id <= track.SampleCount(); id++ {
		sample, err := src.ReadSample(track.ID(), id)
		if err != nil {
			return nil, NewError(ContainerDecode, path, err)
		}
		builders = append(builders, decodeChapterSample(sample, total))
	}

	log.Debug("decoded chapter track", logger.Data{
		"path":     path,
		"track_id": track.ID(),
		"samples":  len(builders),
	})

	name := ResolveBookName(tag)
	book := &Book{
		Name:   name,
		Author: ResolveAuthor(tag),
		Files: []BookFile{{
			Path:     path,
			Chapters: buildChapters(builders),
		}},
	}
	book.recomputeDuration()

	if !b.opts.DisableCoverArt {
		book.CoverArtPath, err = ExtractCoverArt(ctx, tag, name, path)
		if err != nil {
			return nil, err
		}
	}

	return book, nil
}

// chapterTrack returns the first track whose media type can't be classified.
// Audio and video tracks classify, the chapter text track doesn't.
func chapterTrack(tracks []Track) Track {
	for _, t := range tracks {
		if _, err := t.MediaType(); err != nil {
			return t
		}
	}
	return nil
}

func decodeChapterSample(sample *Sample, total time.Duration) chapterBuilder {
	duration := sample.Duration
	if duration == 0 {
		duration = total - sample.StartTime
		if duration < 0 {
			duration = 0
		}
	}
	return chapterBuilder{title: sampleTitle(sample.Bytes), duration: duration}
}

func sampleTitle(payload []byte) *string {
	if len(payload) < sampleEnvelopeHead+sampleEnvelopeTail {
		return nil
	}
	body := payload[sampleEnvelopeHead : len(payload)-sampleEnvelopeTail]
	if !utf8.Valid(body) {
		return nil
	}
	title := string(body)
	return &title
}
