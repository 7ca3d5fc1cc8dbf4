package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheKey identifies the content of a file inside a loader cache.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}

// Cache memoizes file contents. Concurrent loads of the same key share one
// fetch. The zero value is ready to use.
type Cache struct {
	mu    sync.RWMutex
	data  map[string][]byte
	group singleflight.Group
}

// Load returns the cached content of key or calls fetch once to fill it.
// Failed fetches are not cached.
func (c *Cache) Load(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if cached, ok := c.get(key); ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.get(key); ok {
			return cached, nil
		}

		data, err := fetch()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.data == nil {
			c.data = make(map[string][]byte)
		}
		c.data[key] = data
		c.mu.Unlock()

		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[key]
	return data, ok
}
