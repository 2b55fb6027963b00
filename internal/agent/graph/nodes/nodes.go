package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/travelbot-core/server/internal/agent/graph/conversations"
	"github.com/travelbot-core/server/internal/agent/graph/parsers"
	"github.com/travelbot-core/server/internal/agent/graph/prompts"
	"github.com/travelbot-core/server/internal/agent/graph/tools"
	"github.com/travelbot-core/server/internal/agent/model"
	errx "github.com/travelbot-core/server/internal/core/error"
	logx "github.com/travelbot-core/server/pkg/logger"
)

const (
	NodeClassify                  = "classify"
	NodeExtractLocationsFromQuery = "extract_locations_from_query"
	NodeExtractLocationsFromBook  = "extract_locations_from_book"
	NodeRetrieveBook              = "retrieve_book"
	NodeFetchWeather              = "fetch_weather"
	NodeSynthesize                = "synthesize"
	NodeChitchat                  = "chitchat"
	NodeFallback                  = "fallback"
)

// FallbackMessage is the fixed answer for queries outside the assistant's scope.
const FallbackMessage = "I'm sorry, but I can only assist with travel-related or book-related inquiries. " +
	"If you have any questions about travel destinations, weather, or related topics, feel free to ask!"

// Deps are the collaborators shared by all nodes.
type Deps struct {
	Models   *ChatModels
	Tools    *tools.Toolset
	History  *conversations.HistoryFormatter
	Timeouts model.TimeoutConfig
}

// ===== State handlers =====

// NewVisitPreHandler records the node in the visited path before it runs.
func NewVisitPreHandler(node string) func(context.Context, *model.TravelState, *model.AppState) (*model.TravelState, error) {
	return func(ctx context.Context, in *model.TravelState, state *model.AppState) (*model.TravelState, error) {
		state.Visited = append(state.Visited, node)
		logx.Debug().Str("node", node).Msg("entering node")
		return in, nil
	}
}

// NewTerminalPostHandler copies the run bookkeeping onto the outgoing state.
func NewTerminalPostHandler() func(context.Context, *model.TravelState, *model.AppState) (*model.TravelState, error) {
	return func(ctx context.Context, out *model.TravelState, state *model.AppState) (*model.TravelState, error) {
		if out == nil {
			return out, nil
		}
		out.Path = append([]string(nil), state.Visited...)
		out.UsageCostUSD = state.TotalCostUSD
		return out, nil
	}
}

// ===== Nodes =====

func NewClassifyNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		msgs, err := prompts.RenderClassifyIntent(ctx, s.Query)
		if err != nil {
			return nil, err
		}
		out, err := d.generateJSON(ctx, NodeClassify, msgs)
		if err != nil {
			return nil, err
		}

		intent := parsers.DefaultIntent
		if out != nil {
			intent, err = parsers.ParseIntent(out.Content)
			if err != nil {
				logx.Warn().Err(err).Str("node", NodeClassify).Msg("classification degraded")
			}
		}
		s.Intent = intent
		logx.Debug().Str("node", NodeClassify).Str("intent", intent).Msg("query classified")
		return s, nil
	})
}

func NewExtractLocationsFromQueryNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		msgs, err := prompts.RenderLocationsFromQuery(ctx, s.Query)
		if err != nil {
			return nil, err
		}
		s.Locations, err = d.extractLocations(ctx, NodeExtractLocationsFromQuery, msgs)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// NewExtractLocationsFromBookNode retrieves book context first and asks the model
// for the locations it mentions. Book locations replace any named in the query.
func NewExtractLocationsFromBookNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		bookContext, err := d.searchBook(ctx, s.Query)
		if err != nil {
			return nil, err
		}
		s.Context = bookContext

		msgs, err := prompts.RenderLocationsFromBook(ctx, s.Query, bookContext)
		if err != nil {
			return nil, err
		}
		s.Locations, err = d.extractLocations(ctx, NodeExtractLocationsFromBook, msgs)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func NewRetrieveBookNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		bookContext, err := d.searchBook(ctx, s.Query)
		if err != nil {
			return nil, err
		}
		s.Context = bookContext
		return s, nil
	})
}

func NewFetchWeatherNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		records, err := tools.CallWeather(ctx, d.Tools.Weather, s.Locations)
		if err != nil {
			return nil, fmt.Errorf("weather tool: %w", err)
		}
		s.WeatherInfo = records
		logx.Debug().
			Str("node", NodeFetchWeather).
			Int("requested", len(s.Locations)).
			Int("resolved", len(records)).
			Msg("weather fetched")
		return s, nil
	})
}

func NewSynthesizeNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		msgs, err := prompts.RenderFinalAnswer(ctx, s.Query, s.Context, model.FormatWeather(s.WeatherInfo))
		if err != nil {
			return nil, err
		}
		answer, err := d.generateText(ctx, NodeSynthesize, msgs)
		if err != nil {
			return nil, err
		}
		s.FinalAnswer = answer
		return s, nil
	})
}

func NewChitchatNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		msgs, err := prompts.RenderChitchat(ctx, s.Query, d.History.Format(s.ChatHistory))
		if err != nil {
			return nil, err
		}
		answer, err := d.generateText(ctx, NodeChitchat, msgs)
		if err != nil {
			return nil, err
		}
		s.FinalAnswer = answer
		return s, nil
	})
}

func NewFallbackNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TravelState) (*model.TravelState, error) {
		s.FinalAnswer = FallbackMessage
		return s, nil
	})
}

// ===== Helpers =====

func (d *Deps) searchBook(ctx context.Context, query string) (string, error) {
	callCtx, cancel := withTimeout(ctx, d.Timeouts.Retrieval)
	defer cancel()
	return tools.CallBookSearch(callCtx, d.Tools.Book, query)
}

func (d *Deps) extractLocations(ctx context.Context, node string, msgs []*schema.Message) ([]string, error) {
	out, err := d.generateJSON(ctx, node, msgs)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []string{}, nil
	}
	locations, err := parsers.ParseLocations(out.Content)
	if err != nil {
		logx.Warn().Err(err).Str("node", node).Msg("location extraction degraded")
	}
	logx.Debug().Str("node", node).Strs("locations", locations).Msg("locations extracted")
	return locations, nil
}

// generateJSON calls the classifier model. A per-call timeout degrades to a nil
// message so the caller applies its default; other failures are ErrUpstreamLLM.
func (d *Deps) generateJSON(ctx context.Context, node string, msgs []*schema.Message) (*schema.Message, error) {
	out, err := d.generate(ctx, node, d.Models.Classifier, d.Models.ClassifierModelName, msgs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			logx.Warn().Err(err).Str("node", node).Msg("model call timed out, using default")
			return nil, nil
		}
		return nil, errx.WrapLLM(err)
	}
	return out, nil
}

func (d *Deps) generateText(ctx context.Context, node string, msgs []*schema.Message) (string, error) {
	out, err := d.generate(ctx, node, d.Models.Response, d.Models.ResponseModelName, msgs)
	if err != nil {
		return "", errx.WrapLLM(err)
	}
	if out == nil {
		return "", errx.WrapLLM(errors.New("empty model reply"))
	}
	return strings.TrimSpace(out.Content), nil
}

func (d *Deps) generate(ctx context.Context, node string, cm einomodel.BaseChatModel, modelName string, msgs []*schema.Message) (*schema.Message, error) {
	callCtx, cancel := withTimeout(ctx, d.Timeouts.LLM)
	defer cancel()

	out, err := cm.Generate(callCtx, msgs)
	if err != nil {
		logx.Error().Err(err).Str("node", node).Str("model", modelName).Msg("model call failed")
		return nil, err
	}

	if cost := model.MessageCost(out, modelName); cost > 0 {
		usage := out.ResponseMeta.Usage
		logx.Debug().
			Str("node", node).
			Str("model", modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Float64("total_cost_usd", cost).
			Msg("LLM usage")
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.TotalCostUSD += cost
			return nil
		})
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
