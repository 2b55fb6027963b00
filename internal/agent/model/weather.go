package model

import (
	"fmt"
	"strconv"
	"strings"
)

// WeatherRecord is a complete set of current conditions for one location.
// Lookups that cannot fill every field are dropped instead of producing a record.
type WeatherRecord struct {
	LocationName string  `json:"location_name"`
	Region       string  `json:"region"`
	Country      string  `json:"country"`
	TemperatureC float64 `json:"temperature_c"`
	FeelsLikeC   float64 `json:"feels_like_c"`
	Condition    string  `json:"condition"`
	HumidityPct  float64 `json:"humidity_pct"`
	WindKph      float64 `json:"wind_kph"`
}

// String renders the record as the block used in the synthesis prompt.
func (w WeatherRecord) String() string {
	place := w.LocationName
	for _, part := range []string{w.Region, w.Country} {
		if part != "" {
			place += ", " + part
		}
	}
	return fmt.Sprintf("Current weather in %s:\nTemperature: %s°C\nFeels like: %s°C\nCondition: %s\nHumidity: %s%%\nWind Speed: %s kph",
		place, num(w.TemperatureC), num(w.FeelsLikeC), w.Condition, num(w.HumidityPct), num(w.WindKph))
}

// FormatWeather joins records with a blank line; empty input yields "".
func FormatWeather(records []WeatherRecord) string {
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		blocks = append(blocks, r.String())
	}
	return strings.Join(blocks, "\n\n")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
