package audiobook

const (
	DefaultChapterTitle = "Unnamed Chapter"
	DefaultAuthor       = "Uncredited Author"
	DefaultBookName     = "Untitled Book"
)

var (
	chapterTitleKeys = []ItemKey{
		TrackTitle,
		TrackTitleSortOrder,
		TrackSubtitle,
	}

	authorKeys = []ItemKey{
		AlbumArtist,
		AlbumArtistSortOrder,
		OriginalArtist,
		TrackArtist,
		TrackArtistSortOrder,
	}

	bookNameKeys = []ItemKey{
		AlbumTitle,
		AlbumTitleSortOrder,
		OriginalAlbumTitle,
		TrackTitle,
		TrackTitleSortOrder,
		TrackSubtitle,
	}
)

// Resolve returns the value of the first key in keys that is present with a
// non-empty value, or def when none is.
func Resolve(tag TagSource, keys []ItemKey, def string) string {
	for _, key := range keys {
		if value, ok := tag.Get(key); ok && value != "" {
			return value
		}
	}
	return def
}

func ResolveChapterTitle(tag TagSource) string {
	return Resolve(tag, chapterTitleKeys, DefaultChapterTitle)
}

func ResolveAuthor(tag TagSource) string {
	return Resolve(tag, authorKeys, DefaultAuthor)
}

func ResolveBookName(tag TagSource) string {
	return Resolve(tag, bookNameKeys, DefaultBookName)
}
