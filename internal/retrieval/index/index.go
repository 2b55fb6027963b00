// Package index defines the nearest-neighbour index contract used by the retrieval store.
package index

import "context"

// Entry is one stored vector with its document and metadata.
type Entry struct {
	ID       string
	Vector   []float64
	Document string
	Metadata map[string]any
}

// Match is a query hit. Distance is cosine distance (1 - cosine similarity).
type Match struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Index persists vectors and supports cosine nearest-neighbour search.
// Implementations must tolerate concurrent Query calls.
type Index interface {
	// Upsert inserts or replaces entries keyed by ID.
	Upsert(ctx context.Context, entries []Entry) error
	// Query returns at most k matches ordered by increasing distance.
	Query(ctx context.Context, vector []float64, k int) ([]Match, error)
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}
