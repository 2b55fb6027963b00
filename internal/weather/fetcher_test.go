package weather_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelbot-core/server/internal/agent/model"
	"github.com/travelbot-core/server/internal/weather"
)

type stubProvider struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	delay   time.Duration
	active  atomic.Int32
	peak    atomic.Int32
	blocked bool
}

func (s *stubProvider) Fetch(ctx context.Context, location string) (model.WeatherRecord, error) {
	s.mu.Lock()
	s.calls = append(s.calls, location)
	s.mu.Unlock()

	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if s.blocked {
		<-ctx.Done()
		return model.WeatherRecord{}, ctx.Err()
	}
	time.Sleep(s.delay)
	if s.fail[location] {
		return model.WeatherRecord{}, errors.New("boom")
	}
	return model.WeatherRecord{LocationName: location, Condition: "Sunny"}, nil
}

func names(records []model.WeatherRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.LocationName
	}
	return out
}

func TestFetchAllEmptyInputMakesNoCalls(t *testing.T) {
	p := &stubProvider{}
	got := weather.NewFetcher(p, weather.FetcherConfig{}).FetchAll(context.Background(), nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, p.calls)
}

func TestFetchAllDropsFailures(t *testing.T) {
	p := &stubProvider{fail: map[string]bool{"Atlantis": true}}
	got := weather.NewFetcher(p, weather.FetcherConfig{}).FetchAll(context.Background(), []string{"Paris", "Atlantis"})

	assert.Equal(t, []string{"Paris"}, names(got))
	assert.ElementsMatch(t, []string{"Paris", "Atlantis"}, p.calls)
}

func TestFetchAllKeepsInputOrder(t *testing.T) {
	p := &stubProvider{delay: 5 * time.Millisecond}
	locs := []string{"Paris", "Rome", "Venice", "Florence", "Naples"}
	got := weather.NewFetcher(p, weather.FetcherConfig{}).FetchAll(context.Background(), locs)
	assert.Equal(t, locs, names(got))
}

func TestFetchAllRunsConcurrentlyWithinLimit(t *testing.T) {
	p := &stubProvider{delay: 20 * time.Millisecond}
	locs := []string{"a", "b", "c", "d", "e", "f"}

	got := weather.NewFetcher(p, weather.FetcherConfig{MaxConcurrency: 3}).FetchAll(context.Background(), locs)
	assert.Len(t, got, 6)
	assert.LessOrEqual(t, p.peak.Load(), int32(3))
	assert.Greater(t, p.peak.Load(), int32(1))
}

func TestFetchAllPerCallTimeout(t *testing.T) {
	p := &stubProvider{blocked: true}
	start := time.Now()
	got := weather.NewFetcher(p, weather.FetcherConfig{CallTimeout: 20 * time.Millisecond}).
		FetchAll(context.Background(), []string{"Paris", "Rome"})

	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}
