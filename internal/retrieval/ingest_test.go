package retrieval_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelbot-core/server/internal/retrieval"
	"github.com/travelbot-core/server/internal/retrieval/chunker"
	"github.com/travelbot-core/server/internal/retrieval/index"
	"github.com/travelbot-core/server/internal/retrieval/index/memory"
)

const book = "We left for Paris.\n\nParis was grand. Rome came next.\n\nThe ship sailed on to Venice and the desert."

func writeBook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "innocents.txt")
	require.NoError(t, os.WriteFile(path, []byte(book), 0o600))
	return path
}

// flakyIndex fails Count a fixed number of times before delegating.
type flakyIndex struct {
	*memory.Index
	failures int
	counts   int
}

func (f *flakyIndex) Count(ctx context.Context) (int, error) {
	f.counts++
	if f.counts <= f.failures {
		return brokenIndex{}.Count(ctx)
	}
	return f.Index.Count(ctx)
}

var _ index.Index = (*flakyIndex)(nil)

func TestEnsureIngestedLoadsOnce(t *testing.T) {
	ctx := context.Background()
	path := writeBook(t)
	splitter, err := chunker.NewSplitter(40, 10)
	require.NoError(t, err)

	emb := &bagEmbedder{}
	store := retrieval.NewStore(emb, memory.New())
	opts := retrieval.IngestOptions{BatchSize: 2, RetryDelay: time.Millisecond}

	n, err := retrieval.EnsureIngested(ctx, store, splitter, path, opts)
	require.NoError(t, err)
	assert.Equal(t, len(splitter.Chunk(book)), n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	got, err := store.Search(ctx, "paris", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "innocents.txt", got[0].Metadata["source"])

	calls := emb.calls
	n, err = retrieval.EnsureIngested(ctx, store, splitter, path, opts)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, calls, emb.calls)
}

func TestEnsureIngestedWaitsForIndex(t *testing.T) {
	idx := &flakyIndex{Index: memory.New(), failures: 2}
	store := retrieval.NewStore(&bagEmbedder{}, idx)
	splitter, err := chunker.NewSplitter(40, 10)
	require.NoError(t, err)

	n, err := retrieval.EnsureIngested(context.Background(), store, splitter, writeBook(t),
		retrieval.IngestOptions{ReadyRetries: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, 3, idx.counts)
}

func TestEnsureIngestedGivesUp(t *testing.T) {
	idx := &flakyIndex{Index: memory.New(), failures: 10}
	store := retrieval.NewStore(&bagEmbedder{}, idx)
	splitter, err := chunker.NewSplitter(40, 10)
	require.NoError(t, err)

	_, err = retrieval.EnsureIngested(context.Background(), store, splitter, writeBook(t),
		retrieval.IngestOptions{ReadyRetries: 2, RetryDelay: time.Millisecond})
	assert.Error(t, err)
	assert.Equal(t, 2, idx.counts)
}

func TestEnsureIngestedMissingFile(t *testing.T) {
	store := retrieval.NewStore(&bagEmbedder{}, memory.New())
	splitter, err := chunker.NewSplitter(40, 10)
	require.NoError(t, err)

	_, err = retrieval.EnsureIngested(context.Background(), store, splitter,
		filepath.Join(t.TempDir(), "missing.txt"), retrieval.IngestOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
