package loader

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DocumentExt is the extension of input documents. Other files in a source
// are ignored.
const DocumentExt = ".json"

// GraphFile is one input document of a run. The actual file content is
// retrieved via the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new
// GraphFile.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

func NewGraphFile(params NewGraphFileParams) GraphFile {
	id := params.ID
	if id == "" {
		id = params.FilePath
	}
	return GraphFile{
		ID:       id,
		FilePath: params.FilePath,
		Loader:   params.Loader,
	}
}

// GetText retrieves the raw content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for a source of input documents.
// Implementations may load files from disk, cloud storage, or other sources.
type GraphFileLoader interface {
	// ListFiles returns every document of the source ordered by path.
	ListFiles(ctx context.Context) ([]GraphFile, error)
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// CacheKey generates a unique cache key for a GraphFile based on its ID and path.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}

// IsDocument reports whether path names an input document.
func IsDocument(path string) bool {
	return strings.EqualFold(pathExt(path), DocumentExt)
}

func pathExt(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 || strings.ContainsAny(path[i:], "/\\") {
		return ""
	}
	return path[i:]
}

// SortFiles orders files by path so every source yields a stable run order.
func SortFiles(files []GraphFile) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].FilePath < files[j].FilePath
	})
}

// Cache memoizes file contents. Concurrent loads of the same key share a
// single fetch.
type Cache struct {
	mu    sync.RWMutex
	data  map[string][]byte
	group singleflight.Group
}

func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.data[key]
	return b, ok
}

// Load returns the cached content of key or calls fetch to load it. Failed
// fetches are not cached.
func (c *Cache) Load(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if cached, ok := c.get(key); ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.get(key); ok {
			return cached, nil
		}

		b, err := fetch()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.data[key] = b
		c.mu.Unlock()

		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops key from the cache.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}
