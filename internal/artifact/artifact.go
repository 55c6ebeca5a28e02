// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact turns a topic and its generated body into a persistable
// article: a quality gate, a collision-resistant file identifier, and an
// ordered metadata block.
package artifact

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/article-engine/pkg/types"
)

// DefaultMinLength is the quality-gate threshold in characters.
const DefaultMinLength = 1000

// ErrBelowQualityThreshold is returned by Build when the body is too short.
var ErrBelowQualityThreshold = errors.New("below quality threshold")

// Metadata defaults applied when the topic leaves a field empty.
const (
	DefaultCategory = "Tech Trends"
	DefaultTag      = "tech"
)

// DateLayout is the layout of the date and updated fields.
const DateLayout = "2006-01-02 15:04:05"

// recentWindowDays bounds how far back a generated date may fall.
const recentWindowDays = 7

// Builder builds artifacts. The zero value is not usable; use NewBuilder.
type Builder struct {
	MinLength int

	mu    sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
	stamp int64
}

// NewBuilder returns a Builder using minLength (DefaultMinLength when <= 0),
// rng for date staggering, and the wall clock.
func NewBuilder(minLength int, rng *rand.Rand) *Builder {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{MinLength: minLength, rng: rng, now: time.Now}
}

// Build checks the quality gate and assembles the artifact. It performs no I/O.
func (b *Builder) Build(topic types.TopicDescriptor, doc types.GeneratedDocument) (types.Artifact, error) {
	if n := doc.Length(); n < b.MinLength {
		return types.Artifact{}, fmt.Errorf("%d characters, need %d: %w", n, b.MinLength, ErrBelowQualityThreshold)
	}

	b.mu.Lock()
	now := b.now()
	date := RecentDate(now, b.rng)
	suffix := b.nextSuffix(now)
	b.mu.Unlock()

	return types.Artifact{
		FileID:   Slug(topic.Title) + "-" + suffix,
		Metadata: Metadata(topic, date),
		Body:     doc.Body,
		Topic:    topic,
		Date:     date,
	}, nil
}

// nextSuffix encodes now in base 36 at nanosecond resolution, bumping the
// value when the clock has not advanced since the previous call so every
// suffix from one Builder is distinct.
func (b *Builder) nextSuffix(now time.Time) string {
	v := now.UnixNano()
	if v <= b.stamp {
		v = b.stamp + 1
	}
	b.stamp = v
	return strconv.FormatInt(v, 36)
}

// RecentDate returns now minus a whole number of days in [0, 7), truncated
// to the second, so consecutive articles look staggered rather than bursty.
func RecentDate(now time.Time, rng *rand.Rand) time.Time {
	offset := rng.Intn(recentWindowDays)
	return now.Add(-time.Duration(offset) * 24 * time.Hour).Truncate(time.Second)
}

// Metadata builds the ordered metadata block for topic.
func Metadata(topic types.TopicDescriptor, date time.Time) []types.MetadataField {
	category := strings.TrimSpace(topic.Category)
	if category == "" {
		category = DefaultCategory
	}
	tags := topic.Tags
	if len(tags) == 0 {
		tags = []string{DefaultTag}
	}
	description := strings.TrimSpace(topic.Description)
	if description == "" {
		description = topic.Title
	}
	stamp := date.Format(DateLayout)

	return []types.MetadataField{
		{Key: "title", Value: topic.Title, Quoted: true},
		{Key: "date", Value: stamp},
		{Key: "updated", Value: stamp},
		{Key: "categories", List: []string{category}},
		{Key: "tags", List: tags},
		{Key: "description", Value: description, Quoted: true},
		{Key: "excerpt", Value: description, Quoted: true},
	}
}

// Render serializes an artifact: start marker, metadata lines, end marker,
// a blank line, then the body.
func Render(a types.Artifact) []byte {
	var sb strings.Builder
	sb.WriteString("---\n")
	for _, f := range a.Metadata {
		if f.List != nil {
			sb.WriteString(f.Key + ":\n")
			for _, item := range f.List {
				sb.WriteString("  - " + listItem(item) + "\n")
			}
			continue
		}
		if f.Quoted {
			sb.WriteString(f.Key + ": " + Quote(f.Value) + "\n")
			continue
		}
		sb.WriteString(f.Key + ": " + singleLine(f.Value) + "\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(a.Body)
	return []byte(sb.String())
}

// Quote wraps s in double quotes, escaping backslashes and embedded quotes
// and folding line breaks so the value stays on one line.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + singleLine(s) + `"`
}

// listItem quotes a list entry only when it would not survive as a plain
// scalar.
func listItem(s string) string {
	s = singleLine(s)
	if s == "" || strings.ContainsAny(s, ":#\"'[]{},&*!|>%@`") || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "?") {
		return Quote(s)
	}
	return s
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
