package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

const (
	ToolGetCurrentWeather = "get_current_weather"
	ToolSearchBook        = "search_book"
)

// Toolset groups the tools the graph nodes call.
type Toolset struct {
	Weather tool.InvokableTool
	Book    tool.InvokableTool
}

func NewToolset(fetcher WeatherFetcher, searcher BookSearcher, topK int) *Toolset {
	return &Toolset{
		Weather: NewWeatherTool(fetcher),
		Book:    NewBookSearchTool(searcher, topK),
	}
}

// Infos returns the tool descriptors, e.g. for logging or model binding.
func (ts *Toolset) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	var infos []*schema.ToolInfo
	for _, t := range []tool.InvokableTool{ts.Weather, ts.Book} {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Run invokes t with JSON arguments outside a ToolsNode, firing the tool callbacks
// registered on ctx.
func Run(ctx context.Context, t tool.InvokableTool, argumentsInJSON string) (string, error) {
	info, err := t.Info(ctx)
	if err != nil {
		return "", fmt.Errorf("tool info: %w", err)
	}

	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      info.Name,
		Type:      "LocalTool",
		Component: components.ComponentOfTool,
	})
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: argumentsInJSON})

	out, err := t.InvokableRun(ctx, argumentsInJSON)
	if err != nil {
		callbacks.OnError(ctx, err)
		return "", err
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return out, nil
}

func call[I, O any](ctx context.Context, t tool.InvokableTool, in I) (*O, error) {
	args, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode tool input: %w", err)
	}
	raw, err := Run(ctx, t, string(args))
	if err != nil {
		return nil, err
	}
	var out O
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode tool output: %w", err)
	}
	return &out, nil
}
