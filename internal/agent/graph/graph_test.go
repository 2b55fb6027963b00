package graph_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelbot-core/server/internal/agent/graph"
	"github.com/travelbot-core/server/internal/agent/graph/nodes"
	"github.com/travelbot-core/server/internal/agent/graph/tools"
	"github.com/travelbot-core/server/internal/agent/model"
	errx "github.com/travelbot-core/server/internal/core/error"
)

// fakeChatModel answers with reply(prompt). It records every prompt it sees.
type fakeChatModel struct {
	mu      sync.Mutex
	prompts []string
	reply   func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	prompt := input[len(input)-1].Content
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	content, err := f.reply(ctx, prompt)
	if err != nil {
		return nil, err
	}
	msg := schema.AssistantMessage(content, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}
	return msg, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// scriptedClassifier answers the intent prompt with intent and location prompts with locations.
func scriptedClassifier(intent, locations string) *fakeChatModel {
	return &fakeChatModel{reply: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Pick exactly one category") {
			return intent, nil
		}
		return locations, nil
	}}
}

// echoResponder returns the rendered prompt so tests can see what reached the model.
func echoResponder() *fakeChatModel {
	return &fakeChatModel{reply: func(_ context.Context, prompt string) (string, error) {
		return "  ANSWER\n" + prompt + "\n", nil
	}}
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeFetcher) FetchAll(_ context.Context, locations []string) []model.WeatherRecord {
	f.mu.Lock()
	f.calls = append(f.calls, locations)
	f.mu.Unlock()
	out := []model.WeatherRecord{}
	for _, l := range locations {
		if l == "Atlantis" {
			continue
		}
		out = append(out, model.WeatherRecord{
			LocationName: l, Country: "Somewhere", TemperatureC: 20, FeelsLikeC: 19,
			Condition: "Sunny", HumidityPct: 40, WindKph: 5,
		})
	}
	return out
}

type fakeSearcher struct {
	passages []model.Passage
	err      error
	calls    int
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]model.Passage, error) {
	f.calls++
	return f.passages, f.err
}

type harness struct {
	classifier *fakeChatModel
	responder  *fakeChatModel
	fetcher    *fakeFetcher
	searcher   *fakeSearcher
	runner     graph.Runner
}

func newHarness(t *testing.T, classifier *fakeChatModel, searcher *fakeSearcher, timeouts model.TimeoutConfig) *harness {
	t.Helper()
	h := &harness{
		classifier: classifier,
		responder:  echoResponder(),
		fetcher:    &fakeFetcher{},
		searcher:   searcher,
	}
	runner, err := graph.BuildTravelGraph(context.Background(), graph.Config{
		ChatModels: &nodes.ChatModels{
			Classifier:          h.classifier,
			Response:            h.responder,
			ClassifierModelName: "gemini-2.5-flash-lite",
			ResponseModelName:   "gemini-2.5-flash",
		},
		Tools:        tools.NewToolset(h.fetcher, h.searcher, 3),
		Conversation: model.ConversationConfig{MaxTurns: 5},
		Timeouts:     timeouts,
	})
	require.NoError(t, err)
	h.runner = runner
	return h
}

func TestWeatherPath(t *testing.T) {
	h := newHarness(t, scriptedClassifier(`{"category": "weather"}`, `{"locations": ["Paris"]}`), &fakeSearcher{}, model.TimeoutConfig{})

	out, err := h.runner.Invoke(context.Background(), model.NewTravelState("What's the weather in Paris?", nil))
	require.NoError(t, err)

	assert.Equal(t, "weather", out.Intent)
	assert.Equal(t, []string{"Paris"}, out.Locations)
	require.Len(t, out.WeatherInfo, 1)
	assert.Equal(t, "Paris", out.WeatherInfo[0].LocationName)
	assert.Empty(t, out.Context)
	assert.Zero(t, h.searcher.calls)

	assert.True(t, strings.HasPrefix(out.FinalAnswer, "ANSWER"))
	assert.Contains(t, out.FinalAnswer, "Current weather in Paris")
	assert.Contains(t, out.FinalAnswer, "Book passages:\nN/A")
	assert.Equal(t, []string{
		nodes.NodeClassify, nodes.NodeExtractLocationsFromQuery, nodes.NodeFetchWeather, nodes.NodeSynthesize,
	}, out.Path)
	assert.Greater(t, out.UsageCostUSD, 0.0)
}

func TestWeatherPathWithoutLocations(t *testing.T) {
	h := newHarness(t, scriptedClassifier(`{"category": "weather"}`, `{"locations": []}`), &fakeSearcher{}, model.TimeoutConfig{})

	out, err := h.runner.Invoke(context.Background(), model.NewTravelState("Will it rain?", nil))
	require.NoError(t, err)
	assert.Empty(t, out.WeatherInfo)
	assert.Contains(t, out.FinalAnswer, "Weather reports:\nN/A")
}

func TestIrrelevantGetsFallback(t *testing.T) {
	h := newHarness(t, scriptedClassifier(`{"category": "irrelevant"}`, ""), &fakeSearcher{}, model.TimeoutConfig{})

	resp := h.runner.Ask(context.Background(), model.AskRequest{Query: "Explain quantum physics"})
	assert.Equal(t, nodes.FallbackMessage, resp.Response)
	assert.Zero(t, h.responder.calls())
	assert.Equal(t, 1, h.classifier.calls())
}

func TestDegradedClassificationFallsBack(t *testing.T) {
	h := newHarness(t, scriptedClassifier("I think this is about weather", ""), &fakeSearcher{}, model.TimeoutConfig{})

	out, err := h.runner.Invoke(context.Background(), model.NewTravelState("hmm", nil))
	require.NoError(t, err)
	assert.Equal(t, "irrelevant", out.Intent)
	assert.Equal(t, nodes.FallbackMessage, out.FinalAnswer)
	assert.Equal(t, []string{nodes.NodeClassify, nodes.NodeFallback}, out.Path)
}

func TestClassifierTimeoutDegrades(t *testing.T) {
	slow := &fakeChatModel{reply: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	h := newHarness(t, slow, &fakeSearcher{}, model.TimeoutConfig{LLM: 20 * time.Millisecond})

	resp := h.runner.Ask(context.Background(), model.AskRequest{Query: "Weather in Rome?"})
	assert.Equal(t, nodes.FallbackMessage, resp.Response)
}

func TestClassifierFailureIsAnError(t *testing.T) {
	broken := &fakeChatModel{reply: func(context.Context, string) (string, error) {
		return "", errors.New("quota exhausted")
	}}
	h := newHarness(t, broken, &fakeSearcher{}, model.TimeoutConfig{})

	_, err := h.runner.Invoke(context.Background(), model.NewTravelState("Weather in Rome?", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), errx.LLMErrorMessage)

	resp := h.runner.Ask(context.Background(), model.AskRequest{Query: "Weather in Rome?"})
	assert.True(t, strings.HasPrefix(resp.Response, "Error: "), resp.Response)
}

func TestBookPath(t *testing.T) {
	searcher := &fakeSearcher{passages: []model.Passage{{Text: "The Sphinx is grand and old.", Similarity: 0.8}}}
	h := newHarness(t, scriptedClassifier(`{"category": "book"}`, ""), searcher, model.TimeoutConfig{})

	out, err := h.runner.Invoke(context.Background(), model.NewTravelState("What did Twain think of the Sphinx?", nil))
	require.NoError(t, err)
	assert.Equal(t, "Passage 1:\nThe Sphinx is grand and old.\n\n", out.Context)
	assert.Contains(t, out.FinalAnswer, "The Sphinx is grand and old.")
	assert.Contains(t, out.FinalAnswer, "Weather reports:\nN/A")
	assert.Empty(t, h.fetcher.calls)
	assert.Equal(t, []string{nodes.NodeClassify, nodes.NodeRetrieveBook, nodes.NodeSynthesize}, out.Path)
}

func TestRetrievalUnavailableBecomesErrorResponse(t *testing.T) {
	searcher := &fakeSearcher{err: errx.WrapRetrieval(errors.New("connection refused"))}
	h := newHarness(t, scriptedClassifier(`{"category": "book"}`, ""), searcher, model.TimeoutConfig{})

	resp := h.runner.Ask(context.Background(), model.AskRequest{Query: "Sphinx?"})
	assert.True(t, strings.HasPrefix(resp.Response, "Error: "), resp.Response)
	assert.Contains(t, resp.Response, errx.RetrievalErrorMessage)
	assert.Zero(t, h.responder.calls())
}

func TestCombinedPath(t *testing.T) {
	searcher := &fakeSearcher{passages: []model.Passage{
		{Text: "We rode into Florence at dawn.", Similarity: 0.9},
		{Text: "Venice was a dream.", Similarity: 0.7},
	}}
	h := newHarness(t,
		scriptedClassifier(`{"category": "combined"}`, "```json\n{\"locations\": [\"Florence\", \"Atlantis\"]}\n```"),
		searcher, model.TimeoutConfig{})

	out, err := h.runner.Invoke(context.Background(), model.NewTravelState("Where did Twain go in Italy, and is it warm in Paris?", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{
		nodes.NodeClassify, nodes.NodeExtractLocationsFromBook, nodes.NodeFetchWeather, nodes.NodeSynthesize,
	}, out.Path)
	assert.Equal(t, []string{"Florence", "Atlantis"}, out.Locations)
	require.Len(t, out.WeatherInfo, 1)
	assert.Equal(t, "Florence", out.WeatherInfo[0].LocationName)
	assert.Equal(t, [][]string{{"Florence", "Atlantis"}}, h.fetcher.calls)

	assert.Contains(t, out.Context, "We rode into Florence at dawn.")
	assert.Contains(t, out.FinalAnswer, "Passage 2:\nVenice was a dream.")
	assert.Contains(t, out.FinalAnswer, "Current weather in Florence")

	// the location prompt saw the retrieved passages
	var sawContext bool
	for _, p := range h.classifier.prompts {
		if strings.Contains(p, "Using the passages") && strings.Contains(p, "We rode into Florence") {
			sawContext = true
		}
	}
	assert.True(t, sawContext)
}

func TestChitchatUsesHistory(t *testing.T) {
	h := newHarness(t, scriptedClassifier(`{"category": "chitchat"}`, ""), &fakeSearcher{}, model.TimeoutConfig{})

	resp := h.runner.Ask(context.Background(), model.AskRequest{
		Query:       "And how are you?",
		ChatHistory: []model.Turn{{User: "hi", Agent: "Hello, traveller!"}},
	})
	assert.True(t, strings.HasPrefix(resp.Response, "ANSWER"))
	assert.Contains(t, resp.Response, "User: hi\nAssistant: Hello, traveller!")
	assert.Contains(t, resp.Response, `User: "And how are you?"`)
	assert.False(t, strings.HasSuffix(resp.Response, "\n"))
}

func TestBuildValidatesConfig(t *testing.T) {
	_, err := graph.BuildTravelGraph(context.Background(), graph.Config{})
	assert.Error(t, err)

	_, err = graph.BuildTravelGraph(context.Background(), graph.Config{
		ChatModels: &nodes.ChatModels{Classifier: echoResponder(), Response: echoResponder()},
	})
	assert.Error(t, err)
}

func TestConcurrentRequestsKeepSeparateState(t *testing.T) {
	h := newHarness(t, scriptedClassifier(`{"category": "weather"}`, `{"locations": ["Paris"]}`), &fakeSearcher{}, model.TimeoutConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.runner.Invoke(context.Background(), model.NewTravelState("Weather in Paris?", nil))
			assert.NoError(t, err)
			if out != nil {
				assert.Len(t, out.Path, 4)
			}
		}()
	}
	wg.Wait()
}
