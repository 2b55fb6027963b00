package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/travelbot-core/server/internal/agent/graph"
	"github.com/travelbot-core/server/internal/agent/graph/nodes"
	"github.com/travelbot-core/server/internal/agent/graph/tools"
	"github.com/travelbot-core/server/internal/agent/model"
	"github.com/travelbot-core/server/internal/agent/repo"
	"github.com/travelbot-core/server/internal/api"
	"github.com/travelbot-core/server/internal/core"
	"github.com/travelbot-core/server/internal/retrieval"
	"github.com/travelbot-core/server/internal/retrieval/chunker"
	"github.com/travelbot-core/server/internal/retrieval/embedding"
	"github.com/travelbot-core/server/internal/retrieval/index"
	"github.com/travelbot-core/server/internal/retrieval/index/memory"
	"github.com/travelbot-core/server/internal/retrieval/index/qdrant"
	"github.com/travelbot-core/server/internal/weather"
	logx "github.com/travelbot-core/server/pkg/logger"
	pkgredis "github.com/travelbot-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// HTTP
	Addr           string        `envconfig:"HTTP_ADDR" default:":8000"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"120s"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Response     model.ResponseModelConfig
	Embedding    model.EmbeddingConfig
	VectorStore  model.VectorStoreConfig
	Retrieval    model.RetrievalConfig
	Weather      model.WeatherConfig
	Conversation model.ConversationConfig
	Timeouts     model.TimeoutConfig
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	genaiClient, err := nodes.NewGenAIClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return err
	}

	store := retrieval.NewStore(
		embedding.NewGeminiFromClient(genaiClient, embedding.Config{
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		}),
		newIndex(cfg.VectorStore, cfg.Timeouts.Retrieval),
	)

	splitter, err := chunker.NewSplitter(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		return err
	}
	added, err := retrieval.EnsureIngested(ctx, store, splitter, cfg.Retrieval.BookPath, retrieval.IngestOptions{
		ReadyRetries: cfg.Retrieval.ReadyRetries,
		BatchSize:    cfg.Retrieval.IngestBatch,
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", cfg.Retrieval.BookPath, err)
	}
	logx.Info().Int("chunks_added", added).Str("path", cfg.Retrieval.BookPath).Msg("book index ready")

	fetcher := weather.NewFetcher(
		weather.NewClient(weather.Config{
			APIKey:  cfg.Weather.APIKey,
			BaseURL: cfg.Weather.BaseURL,
			Timeout: cfg.Timeouts.Weather,
		}),
		weather.FetcherConfig{
			MaxConcurrency: cfg.Weather.MaxConcurrency,
			CallTimeout:    cfg.Timeouts.Weather,
		},
	)

	chatModels, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Client:     genaiClient,
		Classifier: &cfg.Classifier,
		Response:   &cfg.Response,
	})
	if err != nil {
		return err
	}

	runner, err := graph.BuildTravelGraph(ctx, graph.Config{
		ChatModels:   chatModels,
		Tools:        tools.NewToolset(fetcher, store, cfg.Retrieval.TopK),
		Conversation: cfg.Conversation,
		Timeouts:     cfg.Timeouts,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	var sessions model.ConversationRepository
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		sessions = repo.NewRedisConversationRepository(rdb, cfg.Conversation)
		logx.Info().Msg("conversation sessions enabled")
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(api.NewHandler(runner, sessions), api.RouterConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logx.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func newIndex(cfg model.VectorStoreConfig, timeout time.Duration) index.Index {
	if cfg.Type == "memory" {
		return memory.New()
	}
	return qdrant.New(qdrant.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Timeout:    timeout,
	})
}
