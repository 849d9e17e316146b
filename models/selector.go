package models

import "time"

// SelectorMapping records the replacement selector for one field on one site.
// At most one mapping exists per (site identity, field) pair; updates replace
// the previous entry.
type SelectorMapping struct {
	// Original is the selector the client requested when the adaptation
	// was recorded.
	Original string `json:"original"`

	// Adapted is the replacement selector applied when Original stopped
	// matching. Empty means no replacement is known.
	Adapted string `json:"adapted,omitempty"`

	// Confidence is the reliability score in [0,1]. Recorded adaptations
	// use a fixed high-confidence constant; no learned scoring.
	Confidence float64 `json:"confidence"`

	// LastUpdated is when this mapping was last written.
	LastUpdated time.Time `json:"last_updated"`
}
