// Package weather looks up current conditions from weatherapi.com.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/travelbot-core/server/internal/agent/model"
	errx "github.com/travelbot-core/server/internal/core/error"
)

const DefaultBaseURL = "http://api.weatherapi.com/v1/current.json"

// LookupError describes a single failed lookup. It matches errx.ErrLookupFailed.
type LookupError struct {
	Location string
	Status   int
	Err      error
}

func (e *LookupError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("weather lookup for %q: status %d", e.Location, e.Status)
	}
	return fmt.Sprintf("weather lookup for %q: %v", e.Location, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == errx.ErrLookupFailed }

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}
}

type currentResponse struct {
	Location *struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Current *struct {
		TempC      *float64 `json:"temp_c"`
		FeelsLikeC *float64 `json:"feelslike_c"`
		Humidity   *float64 `json:"humidity"`
		WindKph    *float64 `json:"wind_kph"`
		Condition  *struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// Fetch performs one lookup. The record is complete or an error is returned.
func (c *Client) Fetch(ctx context.Context, location string) (model.WeatherRecord, error) {
	fail := func(status int, err error) (model.WeatherRecord, error) {
		return model.WeatherRecord{}, &LookupError{Location: location, Status: status, Err: err}
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("key", c.apiKey)
	q.Set("aqi", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fail(0, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(resp.StatusCode, nil)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fail(0, fmt.Errorf("decode: %w", err))
	}
	return toRecord(body, fail)
}

func toRecord(body currentResponse, fail func(int, error) (model.WeatherRecord, error)) (model.WeatherRecord, error) {
	loc, cur := body.Location, body.Current
	switch {
	case loc == nil || loc.Name == "":
		return fail(0, errors.New("missing location block"))
	case cur == nil:
		return fail(0, errors.New("missing current block"))
	case cur.TempC == nil, cur.FeelsLikeC == nil, cur.Humidity == nil, cur.WindKph == nil:
		return fail(0, errors.New("missing current measurement"))
	case cur.Condition == nil || cur.Condition.Text == "":
		return fail(0, errors.New("missing condition"))
	}

	return model.WeatherRecord{
		LocationName: loc.Name,
		Region:       loc.Region,
		Country:      loc.Country,
		TemperatureC: *cur.TempC,
		FeelsLikeC:   *cur.FeelsLikeC,
		Condition:    cur.Condition.Text,
		HumidityPct:  *cur.Humidity,
		WindKph:      *cur.WindKph,
	}, nil
}
