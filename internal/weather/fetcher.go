package weather

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/travelbot-core/server/internal/agent/model"
	logx "github.com/travelbot-core/server/pkg/logger"
)

// Provider fetches the current weather for one location.
type Provider interface {
	Fetch(ctx context.Context, location string) (model.WeatherRecord, error)
}

type FetcherConfig struct {
	MaxConcurrency int
	// CallTimeout bounds each lookup; zero leaves it to the provider.
	CallTimeout time.Duration
}

// Fetcher runs lookups concurrently and keeps only the successes.
type Fetcher struct {
	provider Provider
	limit    int
	timeout  time.Duration
}

func NewFetcher(provider Provider, cfg FetcherConfig) *Fetcher {
	return &Fetcher{provider: provider, limit: cfg.MaxConcurrency, timeout: cfg.CallTimeout}
}

// FetchAll looks up every location and waits for all of them. Failed lookups are
// logged and dropped; the successes keep their input order.
func (f *Fetcher) FetchAll(ctx context.Context, locations []string) []model.WeatherRecord {
	if len(locations) == 0 {
		return []model.WeatherRecord{}
	}

	slots := make([]*model.WeatherRecord, len(locations))
	// errgroup.Group without WithContext: one failure must not cancel the siblings.
	var g errgroup.Group
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}
	for i, loc := range locations {
		g.Go(func() error {
			callCtx, cancel := f.callContext(ctx)
			defer cancel()

			rec, err := f.provider.Fetch(callCtx, loc)
			if err != nil {
				logx.Warn().Err(err).Str("location", loc).Msg("weather lookup dropped")
				return nil
			}
			slots[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	records := make([]model.WeatherRecord, 0, len(locations))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

func (f *Fetcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout > 0 {
		return context.WithTimeout(ctx, f.timeout)
	}
	return context.WithCancel(ctx)
}
