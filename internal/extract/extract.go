// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract recovers a JSON array of topic records from free-form
// model output that may wrap it in prose or Markdown code fences.
//
// Candidates are tried in order: the interior of the first fenced block,
// the [ ... ] span inside that interior, then the [ ... ] span of the whole
// text (first '[' to last ']'). Parsing is all-or-nothing: one bad element
// rejects the whole array.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/article-engine/internal/llm"
	"github.com/pdiddy/article-engine/pkg/types"
)

// fenceRe matches a fenced block with an optional language tag.
var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\\r?\\n?(.*?)```")

// topicRecord is the wire shape of one topic as returned by the model.
type topicRecord struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	ContentType string   `json:"contentType"`
}

// Topics extracts an ordered, non-empty sequence of topic descriptors from text.
func Topics(text string) ([]types.TopicDescriptor, error) {
	var records []topicRecord
	if err := Array(text, &records); err != nil {
		return nil, err
	}

	topics := make([]types.TopicDescriptor, 0, len(records))
	for i, r := range records {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			return nil, llm.Malformed(fmt.Sprintf("element %d has no title", i), text)
		}
		ct := r.ContentType
		if ct == "" {
			ct = r.Type
		}
		topics = append(topics, types.TopicDescriptor{
			Title:       title,
			Category:    strings.TrimSpace(r.Category),
			Tags:        cleanTags(r.Tags),
			Description: strings.TrimSpace(r.Description),
			ContentType: NormalizeContentType(ct),
		})
	}
	return topics, nil
}

// Array locates a JSON array in text and decodes it into v, which must point
// to a slice. It fails with *llm.MalformedResponseError when no candidate
// decodes or the decoded array is empty.
func Array(text string, v any) error {
	candidates := Candidates(text)
	if len(candidates) == 0 {
		return llm.Malformed("no JSON array found", text)
	}

	var lastErr error
	for _, c := range candidates {
		n, err := decodeArray(c, v)
		if err != nil {
			lastErr = err
			continue
		}
		if n == 0 {
			lastErr = fmt.Errorf("array is empty")
			continue
		}
		return nil
	}
	return llm.Malformed(lastErr.Error(), text)
}

// Candidates returns the distinct candidate spans to try, in preference order.
func Candidates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		add(m[1])
		if span, ok := bracketSpan(m[1]); ok {
			add(span)
		}
	}
	if span, ok := bracketSpan(text); ok {
		add(span)
	}
	return out
}

// bracketSpan returns the text from the first '[' to the last ']'.
func bracketSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeArray strictly decodes candidate as a single JSON array into v and
// returns its element count. Trailing content after the array is an error.
func decodeArray(candidate string, v any) (int, error) {
	trimmed := strings.TrimSpace(candidate)
	if !strings.HasPrefix(trimmed, "[") {
		return 0, fmt.Errorf("not a JSON array")
	}

	var elems []json.RawMessage
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(&elems); err != nil {
		return 0, fmt.Errorf("parsing array: %w", err)
	}
	if dec.More() {
		return 0, fmt.Errorf("trailing content after array")
	}

	for i, e := range elems {
		if !bytes.HasPrefix(bytes.TrimSpace(e), []byte("{")) {
			return 0, fmt.Errorf("element %d is not an object", i)
		}
	}

	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return 0, fmt.Errorf("decoding elements: %w", err)
	}
	return len(elems), nil
}

// contentTypeAliases maps model-supplied labels onto the closed set.
var contentTypeAliases = map[string]types.ContentType{
	"how-to":    types.ContentTutorial,
	"教程":        types.ContentTutorial,
	"指南":        types.ContentGuide,
	"hands-on":  types.ContentWalkthrough,
	"practice":  types.ContentWalkthrough,
	"实战":        types.ContentWalkthrough,
	"compare":   types.ContentComparison,
	"versus":    types.ContentComparison,
	"对比":        types.ContentComparison,
	"deep dive": types.ContentDeepDive,
	"deepdive":  types.ContentDeepDive,
	"internals": types.ContentDeepDive,
	"原理":        types.ContentDeepDive,
}

// NormalizeContentType maps a free-form label onto a known content type.
// Unknown or empty labels become tutorial.
func NormalizeContentType(label string) types.ContentType {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, "_", "-")
	if ct := types.ContentType(key); ct.Valid() {
		return ct
	}
	if ct, ok := contentTypeAliases[key]; ok {
		return ct
	}
	return types.ContentTutorial
}

// cleanTags trims tags and drops empty entries, preserving order.
func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
