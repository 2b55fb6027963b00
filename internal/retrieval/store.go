// Package retrieval stores book chunks as embeddings and answers similarity searches.
package retrieval

import (
	"context"
	"fmt"
	"slices"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/travelbot-core/server/internal/agent/model"
	errx "github.com/travelbot-core/server/internal/core/error"
	"github.com/travelbot-core/server/internal/retrieval/index"
)

// EntryID is the index key of a chunk.
func EntryID(chunkID int) string {
	return fmt.Sprintf("chunk_%d", chunkID)
}

// Store pairs an embedder with a vector index. Search is safe for concurrent use
// as long as the index is.
type Store struct {
	embedder embedding.Embedder
	index    index.Index
}

func NewStore(embedder embedding.Embedder, idx index.Index) *Store {
	return &Store{embedder: embedder, index: idx}
}

// Add embeds the chunks and upserts them keyed by chunk ID.
func (s *Store) Add(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return errx.WrapRetrieval(fmt.Errorf("embed chunks: %w", err))
	}
	if len(vectors) != len(chunks) {
		return errx.WrapRetrieval(fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{
			ID:       EntryID(c.ChunkID),
			Vector:   vectors[i],
			Document: c.Text,
			Metadata: c.Metadata,
		}
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return errx.WrapRetrieval(fmt.Errorf("upsert chunks: %w", err))
	}
	return nil
}

// Search returns at most k passages ordered by non-increasing similarity.
// An empty result is not an error; an unreachable embedder or index is ErrRetrievalUnavailable.
func (s *Store) Search(ctx context.Context, query string, k int) ([]model.Passage, error) {
	if k <= 0 {
		return []model.Passage{}, nil
	}
	vectors, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, errx.WrapRetrieval(fmt.Errorf("embed query: %w", err))
	}
	if len(vectors) != 1 {
		return nil, errx.WrapRetrieval(fmt.Errorf("embed query: got %d vectors", len(vectors)))
	}

	matches, err := s.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, errx.WrapRetrieval(fmt.Errorf("query index: %w", err))
	}

	passages := make([]model.Passage, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, model.Passage{
			Text:       m.Document,
			Metadata:   m.Metadata,
			Similarity: max(-1, min(1, 1-m.Distance)),
		})
	}
	slices.SortStableFunc(passages, func(a, b model.Passage) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return 0, errx.WrapRetrieval(err)
	}
	return n, nil
}
