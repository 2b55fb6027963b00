package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestWeatherRecordString(t *testing.T) {
	r := WeatherRecord{
		LocationName: "Paris",
		Region:       "Ile-de-France",
		Country:      "France",
		TemperatureC: 18.5,
		FeelsLikeC:   17,
		Condition:    "Partly cloudy",
		HumidityPct:  64,
		WindKph:      11.2,
	}
	got := r.String()
	assert.Contains(t, got, "Current weather in Paris, Ile-de-France, France:")
	assert.Contains(t, got, "Temperature: 18.5°C")
	assert.Contains(t, got, "Feels like: 17°C")
	assert.Contains(t, got, "Humidity: 64%")
	assert.Contains(t, got, "Wind Speed: 11.2 kph")
}

func TestWeatherRecordStringSkipsEmptyRegion(t *testing.T) {
	r := WeatherRecord{LocationName: "Monaco", Country: "Monaco", Condition: "Sunny"}
	assert.Contains(t, r.String(), "Current weather in Monaco, Monaco:")
}

func TestFormatWeather(t *testing.T) {
	assert.Equal(t, "", FormatWeather(nil))

	out := FormatWeather([]WeatherRecord{{LocationName: "Rome"}, {LocationName: "Venice"}})
	assert.Contains(t, out, "Rome")
	assert.Contains(t, out, "\n\nCurrent weather in Venice")
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 2_000_000}, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 5.00, out, 1e-9)
	assert.InDelta(t, 5.30, total, 1e-9)

	_, _, total = ComputeCost(nil, ResolvePricing("gemini-2.5-flash"))
	assert.Zero(t, total)
}

func TestMessageCost(t *testing.T) {
	assert.Zero(t, MessageCost(nil, "gemini-2.5-flash"))
	assert.Zero(t, MessageCost(schema.AssistantMessage("hi", nil), "gemini-2.5-flash"))

	msg := schema.AssistantMessage("hi", nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000}}
	assert.InDelta(t, 0.10, MessageCost(msg, "gemini-2.5-flash-lite"), 1e-9)
	assert.Zero(t, MessageCost(msg, "unknown-model"))
}

func TestNewTravelState(t *testing.T) {
	s := NewTravelState("hello", []Turn{{User: "hi", Agent: "hello"}})
	assert.Equal(t, "hello", s.Query)
	assert.NotNil(t, s.Locations)
	assert.NotNil(t, s.WeatherInfo)
	assert.Len(t, s.ChatHistory, 1)
}
