// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when the gemini provider has no model configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini API through the official genai SDK. System
// messages become the system instruction; user messages become contents.
type GeminiClient struct {
	models contentGenerator
	model  string
}

// NewGeminiClient creates a Gemini backend bound to apiKey.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{models: cli.Models, model: model}, nil
}

// Name identifies the backend and model.
func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// Complete sends the messages as one GenerateContent call.
func (g *GeminiClient) Complete(ctx context.Context, messages []Message, p Params) (string, error) {
	topP := p.TopP
	if topP == 0 {
		topP = defaultTopP
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.Temperature)),
		TopP:            genai.Ptr(float32(topP)),
		MaxOutputTokens: int32(p.MaxTokens),
	}

	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  RoleUser,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", Malformed("no candidates in response", "")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", Malformed("empty completion", "")
	}
	return text, nil
}

// classifyGeminiError maps SDK errors onto the package's error kinds.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return &TransportError{Err: err}
}
