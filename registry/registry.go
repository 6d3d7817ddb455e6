// Package registry provides a typed plugin catalog. Constructors are
// registered in code under stable ids; a discovery pass over a
// configured set of search paths reads plugin manifests and resolves
// them against the catalog, producing the set of plugins available to
// the surrounding application.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateID is returned when an id is registered twice or two
	// discovered manifests share an id.
	ErrDuplicateID = errors.New("duplicate plugin id")

	// ErrUnknownID is returned when a requested or discovered id has
	// no registered constructor.
	ErrUnknownID = errors.New("unknown plugin id")

	// ErrEmptyID is returned for registrations or manifests without an
	// id.
	ErrEmptyID = errors.New("plugin id must not be empty")
)

// Catalog maps stable plugin ids to constructors. F is the constructor
// type, typically a function producing a processing function or an
// application; the catalog itself is agnostic.
//
// A Catalog is safe for concurrent use.
type Catalog[F any] struct {
	mu      sync.RWMutex
	entries map[string]F
}

// NewCatalog creates an empty catalog.
func NewCatalog[F any]() *Catalog[F] {
	return &Catalog[F]{
		entries: make(map[string]F),
	}
}

// Register adds a constructor under the given id.
func (c *Catalog[F]) Register(id string, ctor F) error {
	if id == "" {
		return ErrEmptyID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	c.entries[id] = ctor
	return nil
}

// Get returns the constructor registered under id.
func (c *Catalog[F]) Get(id string) (F, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctor, ok := c.entries[id]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	return ctor, nil
}

// IDs returns all registered ids, sorted.
func (c *Catalog[F]) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered constructors.
func (c *Catalog[F]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entry pairs a discovered manifest with its resolved constructor.
type Entry[F any] struct {
	Manifest Manifest
	New      F
}

// Resolve matches discovered manifests against the catalog. Every
// manifest id must have a registered constructor; an unknown id is an
// error rather than a silent skip, so a typo in a manifest cannot make
// a plugin quietly disappear.
func (c *Catalog[F]) Resolve(manifests []Manifest) ([]Entry[F], error) {
	entries := make([]Entry[F], 0, len(manifests))
	for _, m := range manifests {
		ctor, err := c.Get(m.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve manifest %s: %w", m.source, err)
		}
		entries = append(entries, Entry[F]{Manifest: m, New: ctor})
	}
	return entries, nil
}
