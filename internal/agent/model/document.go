package model

// DocumentChunk is a segment of the book prepared for embedding.
// Created once at ingestion; ChunkID is unique and monotonic.
type DocumentChunk struct {
	Text     string         `json:"text"`
	ChunkID  int            `json:"chunk_id"`
	Metadata map[string]any `json:"metadata"`
}

// Passage is a retrieved chunk with its cosine similarity to the query.
type Passage struct {
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}
