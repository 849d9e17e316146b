// Package adaptive holds the self-healing selector machinery: a per-site
// store of recorded replacement selectors and the resolution engine that
// decides which selector to apply and when to persist an adaptation.
package adaptive

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atlas-codex/scrapling/models"
)

// Backend is the durable storage collaborator for selector mappings. The
// in-process store works without one; a production deployment points this at
// keyed storage (e.g. DynamoDB) so adaptations survive restarts.
type Backend interface {
	// Load returns all mappings stored for a site identity.
	Load(ctx context.Context, site string) (map[string]models.SelectorMapping, error)

	// Save persists one mapping (idempotent overwrite).
	Save(ctx context.Context, site, field string, m models.SelectorMapping) error
}

// Store is the in-memory adaptive selector store: site identity → field name
// → SelectorMapping. Entries are created lazily on first adaptation, replaced
// on every subsequent one, and never expire. Same-key writes are
// last-write-wins. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	sites   map[string]map[string]models.SelectorMapping
	loaded  map[string]bool
	backend Backend
}

// NewStore creates an empty Store. backend may be nil for a purely
// in-memory store.
func NewStore(backend Backend) *Store {
	return &Store{
		sites:   make(map[string]map[string]models.SelectorMapping),
		loaded:  make(map[string]bool),
		backend: backend,
	}
}

// Get returns a copy of all mappings for a site identity. The result is
// possibly empty, never nil.
func (s *Store) Get(ctx context.Context, site string) map[string]models.SelectorMapping {
	s.ensureLoaded(ctx, site)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.SelectorMapping, len(s.sites[site]))
	for field, m := range s.sites[site] {
		out[field] = m
	}
	return out
}

// Lookup returns the mapping for one (site, field) key. A miss is not an
// error: it simply means no adaptation is available.
func (s *Store) Lookup(ctx context.Context, site, field string) (models.SelectorMapping, bool) {
	s.ensureLoaded(ctx, site)

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.sites[site][field]
	return m, ok
}

// Put overwrites the mapping for a (site, field) key and write-through saves
// it to the backend when one is configured. Backend failures are logged,
// never surfaced: the in-memory write always wins.
func (s *Store) Put(ctx context.Context, site, field string, m models.SelectorMapping) {
	s.mu.Lock()
	if s.sites[site] == nil {
		s.sites[site] = make(map[string]models.SelectorMapping)
	}
	s.sites[site][field] = m
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Save(ctx, site, field, m); err != nil {
			slog.Warn("adaptive store: backend save failed",
				"site", site, "field", field, "error", err)
		}
	}
}

// Count returns the number of site identities tracked.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sites)
}

// ensureLoaded pulls a site's mappings from the backend the first time the
// site is touched. Load failures are logged and the site is treated as
// empty; it will be retried on the next access.
func (s *Store) ensureLoaded(ctx context.Context, site string) {
	if s.backend == nil {
		return
	}

	s.mu.RLock()
	done := s.loaded[site]
	s.mu.RUnlock()
	if done {
		return
	}

	mappings, err := s.backend.Load(ctx, site)
	if err != nil {
		slog.Warn("adaptive store: backend load failed", "site", site, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[site] {
		return
	}
	for field, m := range mappings {
		// In-memory writes that raced the load win.
		if _, exists := s.sites[site][field]; exists {
			continue
		}
		if s.sites[site] == nil {
			s.sites[site] = make(map[string]models.SelectorMapping)
		}
		s.sites[site][field] = m
	}
	s.loaded[site] = true
}
