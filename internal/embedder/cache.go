package embedder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Backing is where a Cache reads and writes its serialized form.
type Backing interface {
	// Load returns the stored bytes. A missing store returns an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	Load() ([]byte, error)
	// Store replaces the stored bytes.
	Store(data []byte) error
}

// FileBacking keeps the cache in a single JSON file.
type FileBacking struct {
	Path string
}

func (f FileBacking) Load() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Store writes to a temporary file next to Path and renames it into place,
// so an interrupted write never truncates the previous cache.
func (f FileBacking) Store(data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// MemoryBacking keeps the serialized cache in memory
type MemoryBacking struct {
	mu     sync.Mutex
	data   []byte
	stores int
}

// NewMemoryBacking returns a backing preloaded with data (may be nil).
func NewMemoryBacking(data []byte) *MemoryBacking {
	return &MemoryBacking{data: data}
}

func (m *MemoryBacking) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBacking) Store(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.stores++
	return nil
}

// Bytes returns the last stored payload.
func (m *MemoryBacking) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Stores returns how many times Store was called.
func (m *MemoryBacking) Stores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores
}

// Cache maps normalized text to its embedding. It grows without bound, is
// loaded once at construction and written through to its Backing on every Put.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Vector
	backing Backing
}

// NewCache loads the cache from backing. A missing or malformed payload
// yields an empty cache; the condition is only logged at debug level.
func NewCache(backing Backing, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Cache{
		entries: make(map[string]Vector),
		backing: backing,
	}

	data, err := backing.Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("embedding cache not found, starting empty")
		return c
	case err != nil:
		logger.Debug("embedding cache unreadable, starting empty", "error", err)
		return c
	}

	var entries map[string]Vector
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Debug("embedding cache malformed, starting empty", "error", err)
		return c
	}
	if entries != nil {
		c.entries = entries
	}
	logger.Debug("embedding cache loaded", "entries", len(c.entries))
	return c
}

// Get returns a copy of the vector stored under key.
func (c *Cache) Get(key string) (Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// Put stores a copy of v under key and flushes the whole cache. The entry
// stays in memory even when the flush fails.
func (c *Cache) Put(key string, v Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v.Clone()
	return c.flushLocked()
}

// Flush rewrites the backing with the current contents.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode embedding cache: %w", err)
	}
	if err := c.backing.Store(data); err != nil {
		return fmt.Errorf("store embedding cache: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
