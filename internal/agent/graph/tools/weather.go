package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/travelbot-core/server/internal/agent/model"
)

// ===================================
// Current Weather Tool
// ===================================

type WeatherFetcher interface {
	FetchAll(ctx context.Context, locations []string) []model.WeatherRecord
}

type WeatherInput struct {
	Locations []string `json:"locations"`
}

type WeatherOutput struct {
	Records []model.WeatherRecord `json:"records"`
}

func NewWeatherTool(fetcher WeatherFetcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetCurrentWeather,
			Desc: "Get the current weather for a list of locations: temperature, feels-like temperature, condition, humidity and wind speed. Locations that cannot be resolved are left out of the result.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"locations": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Desc:     "City or place names, e.g. Paris, New York, Tokyo.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *WeatherInput) (*WeatherOutput, error) {
			return &WeatherOutput{Records: fetcher.FetchAll(ctx, in.Locations)}, nil
		},
	)
}

// CallWeather runs the weather tool for the given locations. An empty list yields no records.
func CallWeather(ctx context.Context, t tool.InvokableTool, locations []string) ([]model.WeatherRecord, error) {
	if locations == nil {
		locations = []string{}
	}
	out, err := call[WeatherInput, WeatherOutput](ctx, t, WeatherInput{Locations: locations})
	if err != nil {
		return nil, err
	}
	if out.Records == nil {
		return []model.WeatherRecord{}, nil
	}
	return out.Records, nil
}
