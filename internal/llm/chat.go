// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the DeepSeek API root; any OpenAI-compatible root works.
	DefaultBaseURL = "https://api.deepseek.com"

	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "deepseek-chat"

	chatPath = "/chat/completions"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// ChatClient calls an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

// NewChatClient returns a ChatClient with defaults filled in. The HTTP
// client carries no timeout of its own; callers bound each call through ctx.
func NewChatClient(apiKey, model, baseURL string) *ChatClient {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ChatClient{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Transport: http.DefaultTransport},
	}
}

// Name identifies the backend and model.
func (c *ChatClient) Name() string { return "chat:" + c.Model }

// chatRequest is the request body for the chat-completions API.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
}

// chatResponse is the subset of the chat-completions response we read.
type chatResponse struct {
	Error   *chatError `json:"error"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatError is the error object; some providers send a bare string instead.
type chatError struct {
	Message string
	Raw     string
}

func (e *chatError) UnmarshalJSON(data []byte) error {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		e.Message = obj.Message
		e.Raw = string(data)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.Message = s
	e.Raw = string(data)
	return nil
}

// Complete sends one chat-completions request and returns the trimmed text
// of the first choice.
func (c *ChatClient) Complete(ctx context.Context, messages []Message, p Params) (string, error) {
	topP := p.TopP
	if topP == 0 {
		topP = defaultTopP
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("calling %s after %s: %w", c.Name(), time.Since(start).Round(time.Millisecond), err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	var cr chatResponse
	decodeErr := json.Unmarshal(raw, &cr)
	if decodeErr == nil && cr.Error != nil {
		msg := cr.Error.Message
		if msg == "" {
			msg = cr.Error.Raw
		}
		return "", &UpstreamError{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: Excerpt(string(raw))}
	}
	if decodeErr != nil {
		return "", Malformed("decoding response: "+decodeErr.Error(), string(raw))
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == nil {
		return "", Malformed("no choices[0].message.content", string(raw))
	}
	text := strings.TrimSpace(*cr.Choices[0].Message.Content)
	if text == "" {
		return "", Malformed("empty completion", string(raw))
	}
	return text, nil
}
