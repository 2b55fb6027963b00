// Package qdrant is a minimal REST client for a Qdrant collection using cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/travelbot-core/server/internal/retrieval/index"
)

const (
	payloadEntryID  = "entry_id"
	payloadDocument = "document"
	payloadMetadata = "metadata"
)

// ErrStatus is returned when Qdrant answers with a non-2xx status.
var ErrStatus = errors.New("qdrant: unexpected status")

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type Index struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client

	mu    sync.Mutex
	ready bool
}

func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID maps an entry ID to the deterministic UUID Qdrant stores it under.
func PointID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(entryID)).String()
}

func (q *Index) collectionURL(suffix string) string {
	return q.baseURL + "/collections/" + url.PathEscape(q.collection) + suffix
}

// ensureCollection creates the collection on first write if it does not exist yet.
func (q *Index) ensureCollection(ctx context.Context, dimension int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	status, err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	if status == http.StatusNotFound {
		body := map[string]any{
			"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
		}
		if _, err := q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil); err != nil {
			return fmt.Errorf("create collection %s: %w", q.collection, err)
		}
	}
	q.ready = true
	return nil
}

func (q *Index) Upsert(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return err
	}

	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     PointID(e.ID),
			"vector": e.Vector,
			"payload": map[string]any{
				payloadEntryID:  e.ID,
				payloadDocument: e.Document,
				payloadMetadata: e.Metadata,
			},
		}
	}
	_, err := q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil)
	return err
}

func (q *Index) Query(ctx context.Context, vector []float64, k int) ([]index.Match, error) {
	if k <= 0 {
		return []index.Match{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	matches := make([]index.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := index.Match{Distance: 1 - r.Score}
		if v, ok := r.Payload[payloadEntryID].(string); ok {
			m.ID = v
		}
		if v, ok := r.Payload[payloadDocument].(string); ok {
			m.Document = v
		}
		if v, ok := r.Payload[payloadMetadata].(map[string]any); ok {
			m.Metadata = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Count returns 0 when the collection does not exist yet.
func (q *Index) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodPost, q.collectionURL("/points/count"), map[string]any{"exact": true}, &resp)
	if status == http.StatusNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (q *Index) do(ctx context.Context, method, target string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %s", ErrStatus, method, target, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

var _ index.Index = (*Index)(nil)
