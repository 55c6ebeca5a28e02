// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"strings"

	"go.yaml.in/yaml/v3"
)

// Metadata block grammar accepted by the inspector:
//
//	file      = [BOM] delimiter NL { line NL } delimiter NL body
//	delimiter = "---" { " " | "\t" }
//	title     = { " " | "\t" } "title" { " " | "\t" } ":" value
//	value     = ws ( '"' chars '"' | "'" chars "'" | chars ) ws
//
// The block is first decoded as YAML. When that fails (legacy files with
// unescaped quotes are common) the first line matching the title rule wins.
// Anything else in the block is ignored.

const delimiter = "---"

// SplitMetadata separates a leading metadata block from the body. ok is false
// when content does not start with a delimiter line or the block is unterminated.
func SplitMetadata(content string) (block, body string, ok bool) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	first, rest, found := strings.Cut(content, "\n")
	if !found || !isDelimiter(first) {
		return "", "", false
	}

	var lines []string
	for {
		line, next, more := strings.Cut(rest, "\n")
		if isDelimiter(line) {
			return strings.Join(lines, "\n"), strings.TrimPrefix(next, "\n"), true
		}
		if !more {
			return "", "", false
		}
		lines = append(lines, line)
		rest = next
	}
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == delimiter
}

// TitleOf returns the title declared in content's metadata block.
func TitleOf(content string) (string, bool) {
	block, _, ok := SplitMetadata(content)
	if !ok {
		return "", false
	}

	var meta struct {
		Title any `yaml:"title"`
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err == nil {
		if s, isStr := meta.Title.(string); isStr {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}

	for _, line := range strings.Split(block, "\n") {
		if title, ok := titleLine(line); ok {
			return title, true
		}
	}
	return "", false
}

// titleLine matches a single `title: value` line, stripping one pair of
// surrounding quotes and unescaping \" inside double quotes.
func titleLine(line string) (string, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), ":")
	if !found || strings.TrimSpace(key) != "title" {
		return "", false
	}
	value = strings.TrimSpace(value)
	switch {
	case len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"':
		value = strings.ReplaceAll(value[1:len(value)-1], `\"`, `"`)
	case len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'':
		value = strings.ReplaceAll(value[1:len(value)-1], `''`, `'`)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
