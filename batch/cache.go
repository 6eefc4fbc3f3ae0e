package batch

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const cacheFile = "rewrite_cache.gob"

type cacheEntry struct {
	Hash       uint64
	Statements []Statement
	CreatedAt  time.Time
}

// cacheState is what gets persisted.
type cacheState struct {
	Settings     uint64
	Dependencies map[string]uint64
	Entries      map[string]cacheEntry
}

// Cache remembers the statements of files that rewrote cleanly. An entry is
// keyed by path and is dropped once the file's content changes, it is older
// than the maximum age, or the settings string or one of the dependency files
// (rule file, operator table) changed since the cache was created.
//
// A cache with an empty directory lives in memory only.
type Cache struct {
	dir    string
	mu     sync.Mutex
	state  cacheState
	maxAge time.Duration
}

// NewCache opens the cache stored in dir, creating dir if needed.
// settings describes every option that changes a rewrite's output, and
// dependencies are files whose content the cached results depend on.
func NewCache(dir, settings string, dependencies ...string) (*Cache, error) {
	deps := make(map[string]uint64, len(dependencies))
	for _, dep := range dependencies {
		if dep == "" {
			continue
		}
		h, err := fileHash(dep)
		if err != nil {
			return nil, fmt.Errorf("failed to hash dependency %s: %w", dep, err)
		}
		deps[dep] = h
	}

	c := &Cache{
		dir:   dir,
		state: cacheState{
			Settings:     xxhash.Sum64String(settings),
			Dependencies: deps,
			Entries:      make(map[string]cacheEntry),
		},
	}
	if dir == "" {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.dir, cacheFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	var stored cacheState
	if err := gob.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	if stored.Settings != c.state.Settings || !sameHashes(stored.Dependencies, c.state.Dependencies) {
		return nil
	}
	if stored.Entries != nil {
		c.state.Entries = stored.Entries
	}
	return nil
}

func (c *Cache) save() error {
	if c.dir == "" {
		return nil
	}
	file, err := os.Create(filepath.Join(c.dir, cacheFile))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.state); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Set records the statements rewritten from content.
func (c *Cache) Set(path string, content []byte, statements []Statement) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Entries[path] = cacheEntry{
		Hash:       xxhash.Sum64(content),
		Statements: statements,
		CreatedAt:  time.Now(),
	}
	return c.save()
}

// Get returns the statements recorded for path if they were rewritten from
// the same content.
func (c *Cache) Get(path string, content []byte) ([]Statement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.state.Entries[path]
	if !ok {
		return nil, false
	}
	if entry.Hash != xxhash.Sum64(content) ||
		(c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge) {
		delete(c.state.Entries, path)
		return nil, false
	}
	return entry.Statements, true
}

// SetMaxAge bounds how long an entry stays valid. Zero means no bound.
func (c *Cache) SetMaxAge(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxAge = d
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Entries = make(map[string]cacheEntry)
	return c.save()
}

// Len reports the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.state.Entries)
}

// Cached wraps processor so that files whose content is unchanged since
// their last clean rewrite are answered from c. Results carrying an error
// or a statement that ran out of steps are never cached.
func Cached(c *Cache, processor Processor) Processor {
	return func(path string) (*FileResult, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if statements, ok := c.Get(path, data); ok {
			return &FileResult{Path: path, Source: string(data), Statements: statements}, nil
		}

		res, err := processor(path)
		if err != nil || res.Err != nil || !converged(res.Statements) {
			return res, err
		}
		// the processor reads the file again, so key by what it rewrote
		if err := c.Set(path, []byte(res.Source), res.Statements); err != nil {
			return nil, err
		}
		return res, nil
	}
}

func converged(statements []Statement) bool {
	for _, st := range statements {
		if !st.Converged {
			return false
		}
	}
	return true
}

func fileHash(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func sameHashes(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
