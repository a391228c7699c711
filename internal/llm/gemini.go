package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, retries, logging, hooks) are applied via Middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if k := strings.TrimSpace(apiKey); k != "" {
		cfg.APIKey = k
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON concatenates prompt and input, attaches media as inline
// parts, asks for application/json and returns the model's JSON.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error) {
	full := prompt
	if input != nil {
		in, _ := json.MarshalIndent(input, "", "  ")
		full = prompt + "\n\n[INPUT JSON]\n" + string(in)
	}

	parts := []*genai.Part{{Text: full}}
	for _, m := range media {
		if len(m.Data) == 0 {
			continue
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: m.MIMEType, Data: m.Data}})
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	txt := strings.TrimSpace(sb.String())
	if txt == "" {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(txt), nil
}
