package adaptive

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlas-codex/scrapling/fetch"
	"github.com/atlas-codex/scrapling/models"
)

// adaptedConfidence is the score recorded for every saved adaptation. There
// is no learned confidence model: replaying a stored selector either matches
// or it does not.
const adaptedConfidence = 0.95

// Outcome is the per-field result of selector resolution. Failure is part of
// the data model: Err marks that field only and never aborts the request.
type Outcome struct {
	// Values are the matched elements' text, in document order.
	Values []string

	// SelectorUsed is the selector that actually produced Values.
	SelectorUsed string

	// Adapted is true when a stored replacement selector was applied
	// because the requested one matched nothing.
	Adapted bool

	// Err is set when selector application itself failed (e.g. invalid
	// syntax for both requested and stored selectors).
	Err error
}

// Resolver decides which selector to apply for a field and records
// successful adaptations. It never discovers new selectors: "adaptive" means
// replaying a previously recorded replacement, not inference.
type Resolver struct {
	store *Store
}

// NewResolver creates a Resolver over the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveAndApply runs the resolution algorithm for one field:
//
//  1. Apply the requested selector. An invalid selector fails the field
//     immediately; any match wins outright and the store is never
//     consulted.
//  2. On zero matches from a valid selector, replay the stored adapted
//     selector for (site, field), if one exists.
//  3. If neither matches, the field degrades to an empty result rather than
//     failing the request.
//
// When autoSave is set and the stored selector rescued the field, the
// mapping is overwritten with the requested selector as original and a fresh
// timestamp.
func (r *Resolver) ResolveAndApply(ctx context.Context, site, field, requested string, page fetch.Page, autoSave bool) Outcome {
	values, err := page.Query(requested)
	if err != nil {
		// Invalid selector: the field fails outright. A stored mapping
		// only rescues selectors that stopped matching, never broken
		// syntax, and recording one here would poison the store.
		return Outcome{SelectorUsed: requested, Err: err}
	}
	if len(values) > 0 {
		return Outcome{Values: values, SelectorUsed: requested}
	}

	mapping, ok := r.store.Lookup(ctx, site, field)
	if !ok || mapping.Adapted == "" {
		// No adaptation available: the selector was valid but matched
		// nothing, so the field degrades to an empty result.
		return Outcome{SelectorUsed: requested}
	}

	adaptedValues, adaptedErr := page.Query(mapping.Adapted)
	if adaptedErr != nil {
		slog.Warn("stored adapted selector failed to apply",
			"site", site, "field", field,
			"selector", mapping.Adapted, "error", adaptedErr)
		return Outcome{SelectorUsed: requested}
	}
	if len(adaptedValues) == 0 {
		return Outcome{SelectorUsed: requested}
	}

	if autoSave {
		r.store.Put(ctx, site, field, models.SelectorMapping{
			Original:    requested,
			Adapted:     mapping.Adapted,
			Confidence:  adaptedConfidence,
			LastUpdated: time.Now(),
		})
	}

	return Outcome{
		Values:       adaptedValues,
		SelectorUsed: mapping.Adapted,
		Adapted:      true,
	}
}

// Value shapes the outcome for the response envelope: a scalar for a single
// match, an ordered list for several, nil for none.
func (o Outcome) Value() any {
	switch len(o.Values) {
	case 0:
		return nil
	case 1:
		return o.Values[0]
	default:
		return o.Values
	}
}
