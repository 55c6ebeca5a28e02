// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ideas sources article topics. A Proposer asks the generation
// backend for fresh topics, steered away from titles already in the corpus;
// Fallback draws from the catalogue's static pool when that fails.
package ideas

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/article-engine/internal/extract"
	"github.com/pdiddy/article-engine/internal/llm"
	"github.com/pdiddy/article-engine/pkg/types"
)

const (
	// DefaultTimeout bounds one topic-sourcing call.
	DefaultTimeout = 90 * time.Second

	directionSample = 8
	hintTitles      = 30
)

// topicParams favour novelty over coherence.
var topicParams = llm.Params{MaxTokens: 2000, Temperature: 1.0}

const topicSystemPrompt = "You are a senior technical editor planning articles for a developer blog. " +
	"You answer with a JSON array only."

var topicPromptTmpl = template.Must(template.New("topics").Parse(`Propose exactly {{.Count}} article topics for a technical blog.

Draw inspiration from these directions (you may combine or go beyond them):
{{range .Directions}}- {{.}}
{{end}}
Each topic must use one of these categories: {{.Categories}}

Each topic must be practical and specific, aimed at working developers, with a concrete title.
{{if .Exclude}}
Do not repeat or closely paraphrase any of these existing titles:
{{range .Exclude}}- {{.}}
{{end}}{{end}}
Respond with a JSON array of {{.Count}} objects, each with these fields:
- "title": the article title
- "category": one of the categories above
- "tags": 3 to 5 short tags
- "description": one sentence summarizing the article
- "contentType": one of {{.ContentTypes}}

Example:
[{"title": "Zero-Downtime Postgres Migrations in Practice", "category": "Databases", "tags": ["PostgreSQL", "Migrations"], "description": "Ship schema changes without locking production tables.", "contentType": "tutorial"}]
`))

type topicPromptData struct {
	Count        int
	Directions   []string
	Categories   string
	Exclude      []string
	ContentTypes string
}

// Proposer asks the generation backend for topics.
type Proposer struct {
	Client  llm.Client
	Catalog *Catalog
	Rand    *rand.Rand
	Timeout time.Duration
}

// Propose requests count topics, hinting the last titles of existing (in the
// order given, which for a corpus listing is file-name order) as
// exclusions. The hint is advisory; callers pass the result through Dedupe.
// Any backend or extraction error is returned as is. More than count topics
// are truncated.
func (p *Proposer) Propose(ctx context.Context, count int, existing []string) ([]types.TopicDescriptor, error) {
	prompt, err := p.render(count, existing)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := p.Client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: topicSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, topicParams)
	if err != nil {
		return nil, err
	}

	topics, err := extract.Topics(text)
	if err != nil {
		return nil, err
	}
	if len(topics) > count {
		topics = topics[:count]
	}
	return topics, nil
}

func (p *Proposer) render(count int, existing []string) (string, error) {
	data := topicPromptData{
		Count:        count,
		Directions:   p.sampleDirections(),
		Categories:   strings.Join(p.Catalog.Categories, ", "),
		Exclude:      lastN(existing, hintTitles),
		ContentTypes: contentTypeList(),
	}
	var buf bytes.Buffer
	if err := topicPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *Proposer) sampleDirections() []string {
	dirs := p.Catalog.Directions
	if len(dirs) <= directionSample {
		return dirs
	}
	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	out := make([]string, 0, directionSample)
	for _, i := range rng.Perm(len(dirs))[:directionSample] {
		out = append(out, dirs[i])
	}
	return out
}

func lastN(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func contentTypeList() string {
	names := make([]string, len(types.ContentTypes))
	for i, c := range types.ContentTypes {
		names[i] = fmt.Sprintf("%q", string(c))
	}
	return strings.Join(names, ", ")
}
