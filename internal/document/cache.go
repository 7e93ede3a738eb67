// Package document loads JSON flag documents from disk and keeps them fresh
// by modification time. Each cache owns exactly one file path; adapters never
// share a cache even when they conceptually read the same file.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// ErrNotFound reports that the document file does not exist on disk.
var ErrNotFound = errors.New("document file not found")

// entry pairs a decoded document with the modification time it was read at.
// Entries are immutable; reloads publish a fresh entry by pointer swap so
// concurrent readers always observe a coherent (doc, mtime) pair.
type entry[T any] struct {
	doc   *T
	mtime time.Time
}

// Cache reloads a JSON document when the file's modification time strictly
// increases. Staleness is time-based, not content-based: two writes within
// the same timestamp granularity may be missed.
//
// Loads are safe for concurrent use. Two goroutines reloading at the same
// instant may both re-read the file; parsing is idempotent so the race is
// benign, merely wasteful.
type Cache[T any] struct {
	path     string
	validate func(*T) error
	current  atomic.Pointer[entry[T]]
}

// NewCache creates a cache for path. validate, if non-nil, runs against every
// freshly decoded document; a validation failure rejects that reload and the
// previously published document stays in service.
func NewCache[T any](path string, validate func(*T) error) *Cache[T] {
	return &Cache[T]{path: path, validate: validate}
}

// Path returns the file path this cache reads.
func (c *Cache[T]) Path() string { return c.path }

// Mtime returns the modification time of the currently published document,
// or the zero time when nothing has been loaded yet.
func (c *Cache[T]) Mtime() time.Time {
	if e := c.current.Load(); e != nil {
		return e.mtime
	}
	return time.Time{}
}

// Load returns the current document, re-reading the file first if its
// modification time advanced past the published one. The reloaded result
// reports whether this call re-read the file.
func (c *Cache[T]) Load() (doc *T, reloaded bool, err error) {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, fmt.Errorf("%w: %s", ErrNotFound, c.path)
		}
		return nil, false, fmt.Errorf("stat %s: %w", c.path, err)
	}

	prev := c.current.Load()
	if prev != nil && !info.ModTime().After(prev.mtime) {
		return prev.doc, false, nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", c.path, err)
	}

	fresh := new(T)
	if err := json.Unmarshal(raw, fresh); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", c.path, err)
	}
	if c.validate != nil {
		if err := c.validate(fresh); err != nil {
			return nil, false, fmt.Errorf("validate %s: %w", c.path, err)
		}
	}

	c.current.Store(&entry[T]{doc: fresh, mtime: info.ModTime()})
	return fresh, true, nil
}
