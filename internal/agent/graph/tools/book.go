package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/travelbot-core/server/internal/agent/model"
	errx "github.com/travelbot-core/server/internal/core/error"
)

// ===================================
// Book Search Tool
// ===================================

type BookSearcher interface {
	Search(ctx context.Context, query string, k int) ([]model.Passage, error)
}

type BookSearchInput struct {
	Query string `json:"query"`
}

type BookSearchOutput struct {
	Context  string `json:"context"`
	Passages int    `json:"passages"`
}

func NewBookSearchTool(searcher BookSearcher, topK int) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchBook,
			Desc: `Search Mark Twain's "The Innocents Abroad" for passages relevant to a question. Returns the passages ranked by similarity, numbered from 1.`,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "The user's question or topic to look up in the book.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *BookSearchInput) (*BookSearchOutput, error) {
			passages, err := searcher.Search(ctx, in.Query, topK)
			if err != nil {
				return nil, err
			}
			return &BookSearchOutput{Context: FormatPassages(passages), Passages: len(passages)}, nil
		},
	)
}

// FormatPassages renders passages in rank order as "Passage n:\n<text>\n\n".
func FormatPassages(passages []model.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "Passage %d:\n%s\n\n", i+1, p.Text)
	}
	return b.String()
}

// CallBookSearch runs the book tool. Any failure is reported as a retrieval outage.
func CallBookSearch(ctx context.Context, t tool.InvokableTool, query string) (string, error) {
	out, err := call[BookSearchInput, BookSearchOutput](ctx, t, BookSearchInput{Query: query})
	if err != nil {
		if errors.Is(err, errx.ErrRetrievalUnavailable) {
			return "", err
		}
		return "", errx.WrapRetrieval(err)
	}
	return out.Context, nil
}
