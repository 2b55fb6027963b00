// Package embedding turns text into vectors through the Gemini embedding API.
package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"
)

const defaultBatchSize = 64

// ContentEmbedder is the subset of genai.Models used here.
type ContentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Config struct {
	Model     string
	Dimension int32
	BatchSize int
}

// Gemini implements embedding.Embedder on top of a genai client.
type Gemini struct {
	api       ContentEmbedder
	model     string
	dimension int32
	batchSize int
}

func NewGemini(api ContentEmbedder, cfg Config) *Gemini {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Gemini{api: api, model: cfg.Model, dimension: cfg.Dimension, batchSize: batch}
}

// NewGeminiFromClient uses client.Models as the embedding backend.
func NewGeminiFromClient(client *genai.Client, cfg Config) *Gemini {
	return NewGemini(client.Models, cfg)
}

func (g *Gemini) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := embedding.GetCommonOptions(&embedding.Options{Model: &g.model}, opts...)
	model := g.model
	if options.Model != nil && *options.Model != "" {
		model = *options.Model
	}

	var cfg *genai.EmbedContentConfig
	if g.dimension > 0 {
		dim := g.dimension
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		resp, err := g.api.EmbedContent(ctx, model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if resp == nil || len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("embed batch %d-%d: expected %d embeddings", start, end, len(contents))
		}
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("embed batch %d-%d: empty embedding", start, end)
			}
			vec := make([]float64, len(e.Values))
			for i, v := range e.Values {
				vec[i] = float64(v)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

var _ embedding.Embedder = (*Gemini)(nil)
