package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL      time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	MaxTurns int           `envconfig:"CONVERSATION_MAX_TURNS" default:"10"`
}

// ClassifierModelConfig drives the JSON-producing calls: intent and location extraction.
type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

// ResponseModelConfig drives the free-text calls: synthesis and chitchat.
type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.5"`
}

type EmbeddingConfig struct {
	Model     string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	Dimension int32  `envconfig:"EMBEDDING_DIMENSION" default:"768"`
	BatchSize int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"64"`
}

type VectorStoreConfig struct {
	// Type selects the index backend: memory or qdrant.
	Type             string `envconfig:"VECTOR_STORE" default:"qdrant"`
	QdrantURL        string `envconfig:"QDRANT_URL" default:"http://localhost:6333"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"twain_book"`
}

type RetrievalConfig struct {
	TopK         int    `envconfig:"RAG_RESULTS" default:"5"`
	BookPath     string `envconfig:"BOOK_PATH" default:"data/book.txt"`
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	ReadyRetries int    `envconfig:"INGEST_READY_RETRIES" default:"30"`
	IngestBatch  int    `envconfig:"INGEST_BATCH_SIZE" default:"64"`
}

type WeatherConfig struct {
	APIKey         string `envconfig:"WEATHERAPI_KEY"`
	BaseURL        string `envconfig:"WEATHERAPI_BASE_URL" default:"http://api.weatherapi.com/v1/current.json"`
	MaxConcurrency int    `envconfig:"WEATHER_MAX_CONCURRENCY" default:"8"`
}

// TimeoutConfig bounds each outbound call.
type TimeoutConfig struct {
	LLM       time.Duration `envconfig:"TIMEOUT_LLM" default:"30s"`
	Retrieval time.Duration `envconfig:"TIMEOUT_RETRIEVAL" default:"10s"`
	Weather   time.Duration `envconfig:"TIMEOUT_WEATHER" default:"10s"`
}
