package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	errx "github.com/travelbot-core/server/internal/core/error"
	logx "github.com/travelbot-core/server/pkg/logger"
)

// DefaultIntent is used whenever the classifier output cannot be read.
const DefaultIntent = "irrelevant"

// basic safety limits to avoid pathological inputs
const (
	maxContentLen  = 64 * 1024
	maxLocations   = 50
	maxLocationLen = 200
	maxErrSnippet  = 200
)

// ErrMalformedOutput marks model output that is not the expected JSON object.
var ErrMalformedOutput = errors.New("malformed model output")

// ParseIntent reads {"category": "..."} and returns the lowercased, trimmed category.
// On any failure it returns DefaultIntent together with an error matching
// errx.ErrClassificationDegraded.
func ParseIntent(content string) (intent string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "json_parser").Msgf("panic recovered: %v", r)
			intent, err = DefaultIntent, fmt.Errorf("%w: parser panic", errx.ErrClassificationDegraded)
		}
	}()

	obj, err := decodeObject(content)
	if err != nil {
		return DefaultIntent, fmt.Errorf("%w: %w", errx.ErrClassificationDegraded, err)
	}
	raw, ok := obj["category"].(string)
	category := strings.ToLower(strings.TrimSpace(raw))
	if !ok || category == "" {
		return DefaultIntent, fmt.Errorf("%w: missing category in %q", errx.ErrClassificationDegraded, snippet(content))
	}
	return category, nil
}

// ParseLocations reads {"locations": [...]}. Non-string and blank entries are
// dropped and duplicates removed. On failure it returns an empty list and an error.
func ParseLocations(content string) (locations []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "json_parser").Msgf("panic recovered: %v", r)
			locations, err = []string{}, fmt.Errorf("%w: parser panic", ErrMalformedOutput)
		}
	}()

	obj, err := decodeObject(content)
	if err != nil {
		return []string{}, err
	}
	arr, ok := obj["locations"].([]any)
	if !ok {
		return []string{}, fmt.Errorf("%w: locations is not a list in %q", ErrMalformedOutput, snippet(content))
	}

	locations = make([]string, 0, len(arr))
	seen := make(map[string]struct{}, len(arr))
	for _, v := range arr {
		if len(locations) >= maxLocations {
			logx.Warn().Str("component", "json_parser").Int("max_locations", maxLocations).Msg("locations capped")
			break
		}
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" || len(s) > maxLocationLen || !utf8.ValidString(s) {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		locations = append(locations, s)
	}
	return locations, nil
}

// decodeObject finds the outermost JSON object in content, tolerating code fences
// and prose around it.
func decodeObject(content string) (map[string]any, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	s := stripFences(strings.TrimSpace(content))

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrMalformedOutput, snippet(content))
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return obj, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
