package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/travelbot-core/server/internal/agent/model"
	logx "github.com/travelbot-core/server/pkg/logger"
)

type Chunker interface {
	Chunk(text string) []string
}

type IngestOptions struct {
	// ReadyRetries bounds the Count attempts made while the index comes up.
	ReadyRetries int
	RetryDelay   time.Duration
	BatchSize    int
}

func (o IngestOptions) withDefaults() IngestOptions {
	if o.ReadyRetries <= 0 {
		o.ReadyRetries = 1
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	return o
}

// EnsureIngested loads the book at path into the store unless the store already holds chunks.
// It returns the number of chunks written.
func EnsureIngested(ctx context.Context, store *Store, chunker Chunker, path string, opts IngestOptions) (int, error) {
	opts = opts.withDefaults()

	count, err := waitReady(ctx, store, opts)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logx.Info().Int("count", count).Msg("book already ingested, skipping")
		return 0, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read book %s: %w", path, err)
	}
	source := filepath.Base(path)
	texts := chunker.Chunk(string(raw))

	chunks := make([]model.DocumentChunk, len(texts))
	for i, t := range texts {
		chunks[i] = model.DocumentChunk{
			Text:     t,
			ChunkID:  i,
			Metadata: map[string]any{"source": source},
		}
	}

	for start := 0; start < len(chunks); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(chunks))
		if err := store.Add(ctx, chunks[start:end]); err != nil {
			return start, fmt.Errorf("ingest chunks %d-%d: %w", start, end, err)
		}
		logx.Debug().Int("done", end).Int("total", len(chunks)).Msg("ingested batch")
	}

	logx.Info().Str("source", source).Int("chunks", len(chunks)).Msg("book ingested")
	return len(chunks), nil
}

func waitReady(ctx context.Context, store *Store, opts IngestOptions) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.ReadyRetries; attempt++ {
		n, err := store.Count(ctx)
		if err == nil {
			return n, nil
		}
		lastErr = err
		logx.Warn().Err(err).Int("attempt", attempt).Msg("vector index not ready")

		if attempt == opts.ReadyRetries {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	return 0, fmt.Errorf("vector index not ready after %d attempts: %w", opts.ReadyRetries, lastErr)
}
