package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/travelbot-core/server/internal/agent/graph/conversations"
	"github.com/travelbot-core/server/internal/agent/graph/nodes"
	"github.com/travelbot-core/server/internal/agent/graph/observers"
	"github.com/travelbot-core/server/internal/agent/graph/tools"
	"github.com/travelbot-core/server/internal/agent/model"
	logx "github.com/travelbot-core/server/pkg/logger"
)

const maxRunSteps = 20

// Runner executes the compiled travel graph.
type Runner interface {
	// Invoke runs one request and returns the final state.
	Invoke(ctx context.Context, in *model.TravelState) (*model.TravelState, error)
	// Ask never fails: errors become an "Error: ..." response.
	Ask(ctx context.Context, req model.AskRequest) model.AskResponse
}

// Config holds everything needed to compose the travel graph end-to-end.
type Config struct {
	ChatModels   *nodes.ChatModels
	Tools        *tools.Toolset
	Conversation model.ConversationConfig
	Timeouts     model.TimeoutConfig
}

// GraphBuilder handles the construction of the travel graph
type GraphBuilder struct {
	deps  *nodes.Deps
	graph *compose.Graph[*model.TravelState, *model.TravelState]
}

type graphRunner struct {
	runnable compose.Runnable[*model.TravelState, *model.TravelState]
}

func (r *graphRunner) Invoke(ctx context.Context, in *model.TravelState) (*model.TravelState, error) {
	if in == nil {
		return nil, errors.New("nil travel state")
	}
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	logx.Info().
		Str("intent", out.Intent).
		Strs("path", out.Path).
		Float64("usage_cost_usd", out.UsageCostUSD).
		Msg("travel graph finished")
	return out, nil
}

func (r *graphRunner) Ask(ctx context.Context, req model.AskRequest) model.AskResponse {
	out, err := r.Invoke(ctx, model.NewTravelState(req.Query, req.ChatHistory))
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("travel graph failed")
		return model.AskResponse{Response: "Error: " + err.Error()}
	}
	return model.AskResponse{Response: out.FinalAnswer}
}

// BuildTravelGraph builds the graph and returns a Runner.
func BuildTravelGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ChatModels == nil || cfg.ChatModels.Classifier == nil || cfg.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if cfg.Tools == nil || cfg.Tools.Weather == nil || cfg.Tools.Book == nil {
		return nil, fmt.Errorf("tools are not properly initialized")
	}

	builder := &GraphBuilder{
		deps: &nodes.Deps{
			Models:   cfg.ChatModels,
			Tools:    cfg.Tools,
			History:  conversations.NewHistoryFormatter(cfg.Conversation),
			Timeouts: cfg.Timeouts,
		},
		graph: compose.NewGraph[*model.TravelState, *model.TravelState](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	runnable, err := builder.compile(ctx)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Travel graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	lambdas := map[string]*compose.Lambda{
		nodes.NodeClassify:                  nodes.NewClassifyNode(b.deps),
		nodes.NodeExtractLocationsFromQuery: nodes.NewExtractLocationsFromQueryNode(b.deps),
		nodes.NodeExtractLocationsFromBook:  nodes.NewExtractLocationsFromBookNode(b.deps),
		nodes.NodeRetrieveBook:              nodes.NewRetrieveBookNode(b.deps),
		nodes.NodeFetchWeather:              nodes.NewFetchWeatherNode(b.deps),
		nodes.NodeSynthesize:                nodes.NewSynthesizeNode(b.deps),
		nodes.NodeChitchat:                  nodes.NewChitchatNode(b.deps),
		nodes.NodeFallback:                  nodes.NewFallbackNode(),
	}

	terminal := make(map[string]bool, len(TerminalNodes))
	for _, n := range TerminalNodes {
		terminal[n] = true
	}

	for name, lambda := range lambdas {
		opts := []compose.GraphAddNodeOpt{
			compose.WithNodeName(name),
			compose.WithStatePreHandler(nodes.NewVisitPreHandler(name)),
		}
		if terminal[name] {
			opts = append(opts, compose.WithStatePostHandler(nodes.NewTerminalPostHandler()))
		}
		if err := b.graph.AddLambdaNode(name, lambda, opts...); err != nil {
			logx.Error().Err(err).Str("node", name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", name, err)
		}
	}
	return nil
}

// addEdges creates the fixed flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	for from, targets := range Transitions {
		if from == nodes.NodeClassify {
			continue
		}
		for _, to := range targets {
			if err := b.graph.AddEdge(from, to); err != nil {
				logx.Error().Err(err).Str("from", from).Str("to", to).Msg("Error adding edge")
				return fmt.Errorf("error adding edge %s -> %s: %w", from, to, err)
			}
		}
	}
	return nil
}

// addBranches creates the intent routing branch after classification
func (b *GraphBuilder) addBranches() error {
	targets := make(map[string]bool, len(Transitions[nodes.NodeClassify]))
	for _, n := range Transitions[nodes.NodeClassify] {
		targets[n] = true
	}

	intentBranch := compose.NewGraphBranch(
		func(ctx context.Context, s *model.TravelState) (string, error) {
			next := RouteIntent(s.Intent)
			logx.Debug().Str("intent", s.Intent).Str("next", next).Msg("Routing intent")
			return next, nil
		},
		targets,
	)
	if err := b.graph.AddBranch(nodes.NodeClassify, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.TravelState, *model.TravelState], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("travel_graph"),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
