package audiobook

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robinjoseph08/golib/logger"
)

// SingleTrackExtension is the extension of files collected from a folder.
const SingleTrackExtension = ".mp3"

// FromFolder builds one Book out of every single-track file directly inside
// dir. All files must agree on name and author.
func (b *Builder) FromFolder(ctx context.Context, dir string) (*Book, error) {
	log := logger.FromContext(ctx)

	paths, err := folderTracks(dir)
	if err != nil {
		return nil, err
	}

	log.Debug("collected folder tracks", logger.Data{"dir": dir, "count": len(paths)})

	if len(paths) == 1 {
		return b.FromFile(ctx, paths[0])
	}

	acc, err := b.FromFile(ctx, paths[0])
	if err != nil {
		return nil, err
	}

	for _, path := range paths[1:] {
		book, err := b.FromFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if book.Name != acc.Name || book.Author != acc.Author {
			log.Warn("folder mixes books", logger.Data{
				"dir":             dir,
				"path":            path,
				"expected_name":   acc.Name,
				"expected_author": acc.Author,
				"name":            book.Name,
				"author":          book.Author,
			})
			return nil, NewError(MixedFilesInFolder, dir, nil)
		}
		acc.Files = append(acc.Files, book.Files...)
	}

	acc.recomputeDuration()

	return acc, nil
}

// folderTracks lists the regular files directly in dir with the single-track
// extension, sorted by path.
func folderTracks(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, NewError(NotADirectory, dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewError(IO, dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name()), SingleTrackExtension) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// Stat follows symlinks so linked tracks are kept.
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, NewError(EmptyFolder, dir, nil)
	}

	sort.Strings(paths)

	return paths, nil
}
