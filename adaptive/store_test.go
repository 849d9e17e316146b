package adaptive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atlas-codex/scrapling/models"
)

func newMapping(original, adapted string) models.SelectorMapping {
	return models.SelectorMapping{
		Original:    original,
		Adapted:     adapted,
		Confidence:  0.95,
		LastUpdated: time.Now(),
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	s.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))
	s.Put(ctx, "site-a", "title", newMapping("h1", ".article-title"))

	mappings := s.Get(ctx, "site-a")
	if len(mappings) != 1 {
		t.Fatalf("expected 1 mapping after two puts for the same key, got %d", len(mappings))
	}
	if mappings["title"].Adapted != ".article-title" {
		t.Errorf("expected last write to win, got adapted=%q", mappings["title"].Adapted)
	}
}

func TestStore_CountTracksSites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	if s.Count() != 0 {
		t.Fatalf("empty store count = %d, want 0", s.Count())
	}

	s.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))
	s.Put(ctx, "site-a", "price", newMapping(".price", ".cost"))
	s.Put(ctx, "site-b", "title", newMapping("h1", ".title"))

	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2 (fields do not add sites)", s.Count())
	}
}

func TestStore_GetMissingSiteIsEmpty(t *testing.T) {
	s := NewStore(nil)
	mappings := s.Get(context.Background(), "nope")
	if mappings == nil || len(mappings) != 0 {
		t.Errorf("Get on unknown site = %v, want empty non-nil map", mappings)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	s.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	got := s.Get(ctx, "site-a")
	got["title"] = newMapping("mutated", "mutated")
	got["extra"] = newMapping("x", "y")

	fresh := s.Get(ctx, "site-a")
	if len(fresh) != 1 || fresh["title"].Original != "h1" {
		t.Error("mutating a Get result must not affect the store")
	}
}

func TestStore_ConcurrentSameKeyWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Put(ctx, "site-a", "title", newMapping("h1", fmt.Sprintf(".v%d", i)))
		}(i)
	}
	wg.Wait()

	mappings := s.Get(ctx, "site-a")
	if len(mappings) != 1 {
		t.Fatalf("concurrent same-key writes left %d entries, want 1", len(mappings))
	}
}

// fakeBackend is an in-memory Backend recording Save calls.
type fakeBackend struct {
	mu    sync.Mutex
	data  map[string]map[string]models.SelectorMapping
	saves int
	fail  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string]map[string]models.SelectorMapping)}
}

func (b *fakeBackend) Load(_ context.Context, site string) (map[string]models.SelectorMapping, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errors.New("backend unavailable")
	}
	out := make(map[string]models.SelectorMapping, len(b.data[site]))
	for k, v := range b.data[site] {
		out[k] = v
	}
	return out, nil
}

func (b *fakeBackend) Save(_ context.Context, site, field string, m models.SelectorMapping) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.fail {
		return errors.New("backend unavailable")
	}
	if b.data[site] == nil {
		b.data[site] = make(map[string]models.SelectorMapping)
	}
	b.data[site][field] = m
	return nil
}

func TestStore_BackendWriteThrough(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	s := NewStore(b)

	s.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	if b.saves != 1 {
		t.Errorf("backend saves = %d, want 1", b.saves)
	}
	if b.data["site-a"]["title"].Adapted != ".headline" {
		t.Error("mapping not persisted to backend")
	}
}

func TestStore_BackendLazyLoad(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.data["site-a"] = map[string]models.SelectorMapping{
		"title": newMapping("h1", ".headline"),
	}
	s := NewStore(b)

	m, ok := s.Lookup(ctx, "site-a", "title")
	if !ok {
		t.Fatal("expected mapping loaded from backend on first access")
	}
	if m.Adapted != ".headline" {
		t.Errorf("loaded adapted = %q, want .headline", m.Adapted)
	}
}

func TestStore_BackendFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.fail = true
	s := NewStore(b)

	// Both paths must degrade to in-memory behavior.
	s.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))
	if _, ok := s.Lookup(ctx, "site-a", "title"); !ok {
		t.Error("in-memory write must win even when the backend fails")
	}
}
