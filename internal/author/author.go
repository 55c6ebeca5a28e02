// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package author writes the body of one article for a topic.
package author

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/article-engine/internal/llm"
	"github.com/pdiddy/article-engine/pkg/types"
)

const (
	// DefaultTimeout bounds one authoring attempt.
	DefaultTimeout = 180 * time.Second

	// DefaultMaxRetries is the number of extra attempts after a transient failure.
	DefaultMaxRetries = 1

	minSections   = 8
	minCodeBlocks = 5
	targetLength  = 4000
)

// articleParams favour coherence over novelty.
var articleParams = llm.Params{MaxTokens: 16384, Temperature: 0.75}

// guidance is the structural direction for each content type.
var guidance = map[types.ContentType]string{
	types.ContentTutorial: "Write a step-by-step tutorial. Start from environment setup and build up " +
		"to a complete, runnable result. Every step needs a code sample and the expected output.",
	types.ContentGuide: "Write a comprehensive guide. Cover the core concepts, common usage, advanced " +
		"techniques, and best practices, with a code example for each point.",
	types.ContentWalkthrough: "Write a project walkthrough. Build a small real project from scratch, " +
		"explaining the architecture and implementation, and show the complete project structure and key code.",
	types.ContentComparison: "Write an in-depth comparison. Contrast the options with tables on " +
		"performance, ergonomics, ecosystem, and trade-offs, include code for each, and finish with a recommendation per scenario.",
	types.ContentDeepDive: "Write a deep dive into the internals. Explain how it works under the hood at " +
		"the source-code level, with diagrams described in text and annotated code.",
}

const articleSystemPrompt = "You are a senior software engineer and technical writer. " +
	"You write accurate, practical long-form articles in Markdown for working developers."

var articlePromptTmpl = template.Must(template.New("article").Parse(`Write a technical article titled "{{.Title}}".

Category: {{.Category}}
{{- if .Tags}}
Tags: {{.Tags}}{{end}}
{{- if .Description}}
Summary: {{.Description}}{{end}}

{{.Guidance}}

Requirements:
- At least {{.MinSections}} sections, each starting with a "## " heading.
- At least {{.MinCodeBlocks}} fenced code blocks with a language tag.
- At least {{.TargetLength}} characters of body text.
- Open with a short introduction and close with a summary.
- Output only the Markdown body: no front matter and no top-level "# " title.
`))

type articlePromptData struct {
	Title         string
	Category      string
	Tags          string
	Description   string
	Guidance      string
	MinSections   int
	MinCodeBlocks int
	TargetLength  int
}

// Guidance returns the structural direction for ct, defaulting to the
// tutorial shape for unknown types.
func Guidance(ct types.ContentType) string {
	if g, ok := guidance[ct]; ok {
		return g
	}
	return guidance[types.ContentTutorial]
}

// Prompt renders the authoring directive for topic.
func Prompt(topic types.TopicDescriptor) (string, error) {
	data := articlePromptData{
		Title:         topic.Title,
		Category:      topic.Category,
		Tags:          strings.Join(topic.Tags, ", "),
		Description:   topic.Description,
		Guidance:      Guidance(topic.ContentType),
		MinSections:   minSections,
		MinCodeBlocks: minCodeBlocks,
		TargetLength:  targetLength,
	}
	var buf bytes.Buffer
	if err := articlePromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Author requests article bodies from a generation backend.
type Author struct {
	Client llm.Client

	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the number of retries after a transient failure.
	// Zero or negative disables retries.
	MaxRetries int
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = 2 * time.Second

// Write returns the generated body for topic, unmodified. Transport errors
// and rate-limit or server-side upstream errors are retried with exponential
// backoff; everything else is returned after the first attempt.
func (a *Author) Write(ctx context.Context, topic types.TopicDescriptor) (types.GeneratedDocument, error) {
	prompt, err := Prompt(topic)
	if err != nil {
		return types.GeneratedDocument{}, fmt.Errorf("rendering prompt: %w", err)
	}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: articleSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	maxRetries := max(a.MaxRetries, 0)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return types.GeneratedDocument{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := a.attempt(ctx, messages)
		if err == nil {
			return types.GeneratedDocument{Body: body}, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			return types.GeneratedDocument{}, err
		}
	}
	if maxRetries == 0 {
		return types.GeneratedDocument{}, lastErr
	}
	return types.GeneratedDocument{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

func (a *Author) attempt(ctx context.Context, messages []llm.Message) (string, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.Client.Complete(ctx, messages, articleParams)
}
