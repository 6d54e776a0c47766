package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"datacopilot/internal/ai"
)

type weatherArgs struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (r *Registry) weatherTool() ai.Tool {
	return ai.Tool{
		Definition: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "getWeather",
				Description: "Get the current weather at a location",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"latitude":  {Type: jsonschema.Number},
						"longitude": {Type: jsonschema.Number},
					},
					Required: []string{"latitude", "longitude"},
				},
			},
		},
		Execute: r.getWeather,
	}
}

func (r *Registry) getWeather(ctx context.Context, arguments string) (string, error) {
	var args weatherArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("decode weather arguments failed: %w", err)
	}

	url := fmt.Sprintf(
		"https://api.open-meteo.com/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m&hourly=temperature_2m&daily=sunrise,sunset&timezone=auto",
		args.Latitude, args.Longitude,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build weather request failed: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read weather response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("weather response status %d: %s", resp.StatusCode, string(raw))
	}
	return string(raw), nil
}
