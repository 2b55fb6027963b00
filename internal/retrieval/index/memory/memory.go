// Package memory is an in-process index using brute-force cosine distance.
package memory

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/travelbot-core/server/internal/retrieval/index"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

type Index struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	entries   map[string]index.Entry
}

func New() *Index {
	return &Index{entries: make(map[string]index.Entry)}
}

func (s *Index) Upsert(_ context.Context, entries []index.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.dimension == 0 {
			s.dimension = len(e.Vector)
		}
		if len(e.Vector) != s.dimension {
			return ErrDimensionMismatch
		}
	}
	for _, e := range entries {
		if _, exists := s.entries[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		e.Vector = slices.Clone(e.Vector)
		s.entries[e.ID] = e
	}
	return nil
}

func (s *Index) Query(ctx context.Context, vector []float64, k int) ([]index.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.entries) == 0 {
		return []index.Match{}, nil
	}
	if len(vector) != s.dimension {
		return nil, ErrDimensionMismatch
	}

	matches := make([]index.Match, 0, len(s.entries))
	for _, id := range s.order {
		e := s.entries[id]
		matches = append(matches, index.Match{
			ID:       e.ID,
			Document: e.Document,
			Metadata: e.Metadata,
			Distance: 1 - cosine(e.Vector, vector),
		})
	}
	// stable: equal distances keep insertion order
	slices.SortStableFunc(matches, func(a, b index.Match) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Index) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ index.Index = (*Index)(nil)
