// Package prompts renders the travel assistant's LLM prompts through eino's prompt
// component so prompt callbacks fire.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// NotAvailable stands in for empty optional inputs.
const NotAvailable = "N/A"

const (
	ClassifyIntent     = "classify_intent"
	LocationsFromQuery = "locations_from_query"
	LocationsFromBook  = "locations_from_book"
	FinalAnswer        = "final_answer"
	Chitchat           = "chitchat"
)

var (
	//go:embed template/classify_intent.txt
	classifyIntentTpl string
	//go:embed template/locations_from_query.txt
	locationsFromQueryTpl string
	//go:embed template/locations_from_book.txt
	locationsFromBookTpl string
	//go:embed template/final_answer.txt
	finalAnswerTpl string
	//go:embed template/chitchat.txt
	chitchatTpl string
)

type templateDef struct {
	text string
	vars []string
}

var templates = map[string]templateDef{
	ClassifyIntent:     {classifyIntentTpl, []string{"query"}},
	LocationsFromQuery: {locationsFromQueryTpl, []string{"query"}},
	LocationsFromBook:  {locationsFromBookTpl, []string{"query", "context"}},
	FinalAnswer:        {finalAnswerTpl, []string{"query", "context", "weather_info"}},
	Chitchat:           {chitchatTpl, []string{"query", "chat_history"}},
}

// Names lists the template set in a stable order.
func Names() []string {
	return []string{ClassifyIntent, LocationsFromQuery, LocationsFromBook, FinalAnswer, Chitchat}
}

// Render formats the named template as a single user message. Every declared
// variable must be present in vars.
func Render(ctx context.Context, name string, vars map[string]any) ([]*schema.Message, error) {
	s, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}
	for _, v := range s.vars {
		if _, ok := vars[v]; !ok {
			return nil, fmt.Errorf("prompt %s: missing variable %q", name, v)
		}
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(s.text))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("prompt %s render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("prompt %s render: empty result", name)
	}
	return msgs, nil
}

func RenderClassifyIntent(ctx context.Context, query string) ([]*schema.Message, error) {
	return Render(ctx, ClassifyIntent, map[string]any{"query": query})
}

func RenderLocationsFromQuery(ctx context.Context, query string) ([]*schema.Message, error) {
	return Render(ctx, LocationsFromQuery, map[string]any{"query": query})
}

func RenderLocationsFromBook(ctx context.Context, query, bookContext string) ([]*schema.Message, error) {
	return Render(ctx, LocationsFromBook, map[string]any{
		"query":   query,
		"context": orNA(bookContext),
	})
}

func RenderFinalAnswer(ctx context.Context, query, bookContext, weatherInfo string) ([]*schema.Message, error) {
	return Render(ctx, FinalAnswer, map[string]any{
		"query":        query,
		"context":      orNA(bookContext),
		"weather_info": orNA(weatherInfo),
	})
}

func RenderChitchat(ctx context.Context, query, chatHistory string) ([]*schema.Message, error) {
	return Render(ctx, Chitchat, map[string]any{
		"query":        query,
		"chat_history": orNA(chatHistory),
	})
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
