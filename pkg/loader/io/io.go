package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/docgraph/pkg/loader"
)

// IOGraphFileLoader loads documents directly from a local directory with
// caching. Only the top level of the directory is scanned.
type IOGraphFileLoader struct {
	dir   string
	cache *loader.Cache
}

// NewIOGraphFileLoader creates a new filesystem-based file loader for dir.
func NewIOGraphFileLoader(dir string) *IOGraphFileLoader {
	return &IOGraphFileLoader{
		dir:   dir,
		cache: loader.NewCache(),
	}
}

// ListFiles returns every JSON document in the directory ordered by name.
func (l *IOGraphFileLoader) ListFiles(ctx context.Context) ([]loader.GraphFile, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir %s: %w", l.dir, err)
	}

	var files []loader.GraphFile
	for _, e := range entries {
		if e.IsDir() || !loader.IsDocument(e.Name()) {
			continue
		}
		files = append(files, loader.NewGraphFile(loader.NewGraphFileParams{
			ID:       e.Name(),
			FilePath: filepath.Join(l.dir, e.Name()),
			Loader:   l,
		}))
	}
	loader.SortFiles(files)
	return files, nil
}

// GetFileText reads the file content from the filesystem. Results are cached.
func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(loader.CacheKey(file), func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(file.FilePath)
	})
}
