// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"
	"unicode/utf8"
)

// GeneratedDocument is the raw long-form body returned by the document
// author for one topic.
type GeneratedDocument struct {
	Body string `json:"body" yaml:"body"`
}

// Length returns the character count of the body.
func (d GeneratedDocument) Length() int {
	return utf8.RuneCountInString(d.Body)
}

// MetadataField is one key of an artifact's metadata block. A field carries
// either a scalar Value or a List; list fields render one entry per line.
type MetadataField struct {
	Key    string
	Value  string
	Quoted bool
	List   []string
}

// Artifact is one persisted document: a metadata block followed by the body.
// Artifacts are written once and never mutated.
type Artifact struct {
	// FileID is the storage identifier without extension.
	FileID string `json:"file_id" yaml:"file_id"`

	// Metadata holds the ordered metadata block fields.
	Metadata []MetadataField `json:"-" yaml:"-"`

	// Body is the generated document text.
	Body string `json:"-" yaml:"-"`

	// Topic is the descriptor the artifact was built from.
	Topic TopicDescriptor `json:"topic" yaml:"topic"`

	// Date is the timestamp written to the date and updated fields.
	Date time.Time `json:"date" yaml:"date"`
}

// ItemStatus is the terminal state of one batch item.
type ItemStatus string

const (
	ItemPersisted ItemStatus = "persisted"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
)

// ItemResult records the outcome of one topic in a run.
type ItemResult struct {
	Title    string     `json:"title" yaml:"title"`
	Category string     `json:"category" yaml:"category"`
	Length   int        `json:"length" yaml:"length"`
	FileID   string     `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	Status   ItemStatus `json:"status" yaml:"status"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// TopicSource records which idea source produced a run's topics.
type TopicSource string

const (
	SourceModel    TopicSource = "model"
	SourceFallback TopicSource = "fallback"
)

// RunSummary accumulates the outcome of one batch run.
type RunSummary struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time    `json:"finished_at" yaml:"finished_at"`
	TopicSource TopicSource  `json:"topic_source" yaml:"topic_source"`
	Attempted   int          `json:"attempted" yaml:"attempted"`
	Succeeded   int          `json:"succeeded" yaml:"succeeded"`
	Skipped     int          `json:"skipped" yaml:"skipped"`
	Failed      int          `json:"failed" yaml:"failed"`
	Items       []ItemResult `json:"items" yaml:"items"`
}

// Record appends an item outcome and updates the counters.
func (s *RunSummary) Record(item ItemResult) {
	s.Attempted++
	switch item.Status {
	case ItemPersisted:
		s.Succeeded++
	case ItemSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
	s.Items = append(s.Items, item)
}

// Persisted returns the items that reached the store, in run order.
func (s RunSummary) Persisted() []ItemResult {
	var out []ItemResult
	for _, it := range s.Items {
		if it.Status == ItemPersisted {
			out = append(out, it)
		}
	}
	return out
}

// TotalLength sums the body length of every persisted item.
func (s RunSummary) TotalLength() int {
	total := 0
	for _, it := range s.Persisted() {
		total += it.Length
	}
	return total
}

// CategoryCounts returns persisted item counts keyed by category.
func (s RunSummary) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range s.Persisted() {
		counts[it.Category]++
	}
	return counts
}
