package graph

import (
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/travelbot-core/server/internal/agent/graph/nodes"
)

// Transitions is the static transition table. The classifier's successors are
// chosen by RouteIntent; every other node has exactly one successor.
var Transitions = map[string][]string{
	compose.START: {nodes.NodeClassify},
	nodes.NodeClassify: {
		nodes.NodeExtractLocationsFromQuery,
		nodes.NodeRetrieveBook,
		nodes.NodeExtractLocationsFromBook,
		nodes.NodeChitchat,
		nodes.NodeFallback,
	},
	nodes.NodeExtractLocationsFromQuery: {nodes.NodeFetchWeather},
	nodes.NodeExtractLocationsFromBook:  {nodes.NodeFetchWeather},
	nodes.NodeFetchWeather:              {nodes.NodeSynthesize},
	nodes.NodeRetrieveBook:              {nodes.NodeSynthesize},
	nodes.NodeSynthesize:                {compose.END},
	nodes.NodeChitchat:                  {compose.END},
	nodes.NodeFallback:                  {compose.END},
}

// TerminalNodes write FinalAnswer and lead to END.
var TerminalNodes = []string{nodes.NodeSynthesize, nodes.NodeChitchat, nodes.NodeFallback}

type route struct {
	keyword string
	node    string
}

// routes are checked in order; the first keyword contained in the intent wins.
var routes = []route{
	{"weather", nodes.NodeExtractLocationsFromQuery},
	{"book", nodes.NodeRetrieveBook},
	{"travel", nodes.NodeRetrieveBook},
	{"combined", nodes.NodeExtractLocationsFromBook},
	{"chitchat", nodes.NodeChitchat},
}

// RouteIntent maps a classifier intent to the next node by substring match.
func RouteIntent(intent string) string {
	intent = strings.ToLower(intent)
	for _, r := range routes {
		if strings.Contains(intent, r.keyword) {
			return r.node
		}
	}
	return nodes.NodeFallback
}
