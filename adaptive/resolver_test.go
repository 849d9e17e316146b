package adaptive

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// fakePage implements fetch.Page with canned selector results.
type fakePage struct {
	matches  map[string][]string
	invalid  map[string]bool
	queryLog []string
}

func (p *fakePage) HTML() string    { return "<html></html>" }
func (p *fakePage) Title() string   { return "fake" }
func (p *fakePage) StatusCode() int { return 200 }

func (p *fakePage) Query(selector string) ([]string, error) {
	p.queryLog = append(p.queryLog, selector)
	if p.invalid[selector] {
		return nil, errors.New("invalid selector syntax")
	}
	return p.matches[selector], nil
}

func TestResolver_RequestedSelectorWins(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	// A stored adaptation exists but must not be touched when the
	// requested selector matches.
	store.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	page := &fakePage{matches: map[string][]string{"h1": {"Hello"}}}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "title", "h1", page, true)
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Adapted {
		t.Error("Adapted = true, want false when the requested selector matches")
	}
	if out.SelectorUsed != "h1" {
		t.Errorf("SelectorUsed = %q, want h1", out.SelectorUsed)
	}
	if len(page.queryLog) != 1 {
		t.Errorf("page queried %d times, want 1 (no fallback attempt)", len(page.queryLog))
	}
	if got := store.Get(ctx, "site-a")["title"].Original; got != "h1" {
		t.Errorf("store mutated on non-adapted path: original=%q", got)
	}
}

func TestResolver_FallsBackToStoredSelector(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	page := &fakePage{matches: map[string][]string{".headline": {"Rescued"}}}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "title", "h1.old", page, false)
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if !out.Adapted {
		t.Fatal("Adapted = false, want true")
	}
	if out.SelectorUsed != ".headline" {
		t.Errorf("SelectorUsed = %q, want .headline", out.SelectorUsed)
	}
	if !reflect.DeepEqual(out.Values, []string{"Rescued"}) {
		t.Errorf("Values = %v, want [Rescued]", out.Values)
	}
}

func TestResolver_AutoSavePersistsRequestedAsOriginal(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	page := &fakePage{matches: map[string][]string{".headline": {"Rescued"}}}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "title", "h1.v2", page, true)
	if !out.Adapted {
		t.Fatal("expected adaptation")
	}

	m, ok := store.Lookup(ctx, "site-a", "title")
	if !ok {
		t.Fatal("mapping missing after auto-save")
	}
	if m.Original != "h1.v2" {
		t.Errorf("Original = %q, want the requested selector h1.v2", m.Original)
	}
	if m.Adapted != ".headline" {
		t.Errorf("Adapted = %q, want .headline", m.Adapted)
	}
	if m.Confidence != adaptedConfidence {
		t.Errorf("Confidence = %v, want the fixed constant %v", m.Confidence, adaptedConfidence)
	}
	if len(store.Get(ctx, "site-a")) != 1 {
		t.Error("auto-save must overwrite, not append")
	}
}

func TestResolver_NoSaveWithoutAutoSave(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	page := &fakePage{matches: map[string][]string{".headline": {"Rescued"}}}
	r := NewResolver(store)

	r.ResolveAndApply(ctx, "site-a", "title", "h1.v2", page, false)

	m, _ := store.Lookup(ctx, "site-a", "title")
	if m.Original != "h1" {
		t.Errorf("store mutated with autoSave=false: original=%q", m.Original)
	}
}

func TestResolver_NoMatchDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	page := &fakePage{}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "title", "h1", page, true)
	if out.Err != nil {
		t.Errorf("no match is not an error, got %v", out.Err)
	}
	if len(out.Values) != 0 || out.Adapted {
		t.Errorf("expected empty non-adapted outcome, got %+v", out)
	}
	if store.Count() != 0 {
		t.Error("no-match path must not mutate the store")
	}
}

func TestResolver_StoredSelectorAlsoMisses(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.Put(ctx, "site-a", "title", newMapping("h1", ".gone-too"))

	page := &fakePage{}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "title", "h1", page, true)
	if out.Adapted || len(out.Values) != 0 {
		t.Errorf("expected empty outcome when both selectors miss, got %+v", out)
	}
}

func TestResolver_InvalidSelectorIsFieldScoped(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	page := &fakePage{invalid: map[string]bool{"div[[[": true}}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "price", "div[[[", page, true)
	if out.Err == nil {
		t.Error("expected an error outcome for invalid selector syntax")
	}
	if store.Count() != 0 {
		t.Error("selector failure must not mutate the store")
	}
}

func TestResolver_InvalidSelectorNotHealedByStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	// A stored adaptation exists and would match, but broken selector
	// syntax must fail the field, not get rescued.
	store.Put(ctx, "site-a", "title", newMapping("h1", ".headline"))

	page := &fakePage{
		matches: map[string][]string{".headline": {"Rescued"}},
		invalid: map[string]bool{"div[[[": true},
	}
	r := NewResolver(store)

	out := r.ResolveAndApply(ctx, "site-a", "title", "div[[[", page, true)
	if out.Err == nil {
		t.Fatal("expected an error outcome for invalid selector syntax")
	}
	if out.Adapted {
		t.Error("Adapted = true, want false: stored selectors must not heal broken syntax")
	}
	if len(out.Values) != 0 {
		t.Errorf("Values = %v, want empty", out.Values)
	}
	if len(page.queryLog) != 1 {
		t.Errorf("page queried %d times, want 1 (store not consulted)", len(page.queryLog))
	}
	if m, _ := store.Lookup(ctx, "site-a", "title"); m.Original != "h1" {
		t.Errorf("invalid selector persisted as original: %q", m.Original)
	}
}

func TestResolver_BrokenStoredSelectorDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.Put(ctx, "site-a", "title", newMapping("h1", "span[[["))

	page := &fakePage{invalid: map[string]bool{"span[[[": true}}
	r := NewResolver(store)

	// Requested selector is valid but matches nothing; the stored
	// replacement has broken syntax. The field degrades to empty.
	out := r.ResolveAndApply(ctx, "site-a", "title", "h1", page, true)
	if out.Err != nil {
		t.Errorf("a broken stored selector must not fail the field, got %v", out.Err)
	}
	if out.Adapted || len(out.Values) != 0 {
		t.Errorf("expected empty non-adapted outcome, got %+v", out)
	}
	if m, _ := store.Lookup(ctx, "site-a", "title"); m.Original != "h1" {
		t.Errorf("store mutated on failed adaptation: original=%q", m.Original)
	}
}

func TestResolver_Value_Shaping(t *testing.T) {
	cases := []struct {
		values []string
		want   any
	}{
		{nil, nil},
		{[]string{"one"}, "one"},
		{[]string{"one", "two"}, []string{"one", "two"}},
	}
	for _, c := range cases {
		got := (Outcome{Values: c.values}).Value()
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Value(%v) = %v, want %v", c.values, got, c.want)
		}
	}
}
