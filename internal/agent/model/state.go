package model

// TravelState is the per-request state that flows through the graph.
// Nodes only add fields; none clears a field set by a predecessor.
// Intent is written once by the classifier and never re-evaluated.
type TravelState struct {
	Query       string          `json:"query"`
	Intent      string          `json:"intent"`
	Context     string          `json:"context"`
	Locations   []string        `json:"locations"`
	WeatherInfo []WeatherRecord `json:"weather_info"`
	FinalAnswer string          `json:"final_answer"`
	ChatHistory []Turn          `json:"chat_history"`

	// Path lists visited nodes in execution order; set by the terminal node.
	Path []string `json:"path,omitempty"`
	// UsageCostUSD is the accumulated LLM cost for this request.
	UsageCostUSD float64 `json:"usage_cost_usd,omitempty"`
}

// NewTravelState builds the initial state for one request.
func NewTravelState(query string, history []Turn) *TravelState {
	return &TravelState{
		Query:       query,
		Locations:   []string{},
		WeatherInfo: []WeatherRecord{},
		ChatHistory: history,
	}
}

// AppState stores per-invocation bookkeeping for the eino graph.
// Concurrency model:
//   - Registered as graph local state via compose.WithGenLocalState, so each
//     Invoke gets a fresh instance.
//   - Read and written only inside state handlers or compose.ProcessState,
//     which eino serializes; no extra locking is needed.
type AppState struct {
	Visited      []string
	TotalCostUSD float64
}

// Turn is one prior exchange supplied by the caller.
type Turn struct {
	User  string `json:"user"`
	Agent string `json:"agent"`
}

// AskRequest is the request boundary consumed by the HTTP front end.
type AskRequest struct {
	Query          string `json:"query" validate:"required"`
	ChatHistory    []Turn `json:"chat_history"`
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,max=128,printascii"`
}

// AskResponse always carries a string, including on internal failure.
type AskResponse struct {
	Response string `json:"response"`
}
