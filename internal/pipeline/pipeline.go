// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one batch: source topics, then author, build, and
// persist each one in turn. A failing item is recorded and the batch moves
// on; the run fails as a whole only when nothing was persisted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/article-engine/internal/artifact"
	"github.com/pdiddy/article-engine/internal/ideas"
	"github.com/pdiddy/article-engine/pkg/types"
)

const (
	// DefaultCount is the batch size when none is requested.
	DefaultCount = 10

	// MaxCount bounds the resolved batch size.
	MaxCount = 20

	// DefaultDelay paces successive authoring requests.
	DefaultDelay = 5 * time.Second

	jitterMin  = 0.7
	jitterSpan = 0.6
)

// ErrNoArticles is returned by Run when no item was persisted.
var ErrNoArticles = errors.New("no articles persisted")

// TopicProposer is the primary idea source.
type TopicProposer interface {
	Propose(ctx context.Context, count int, existing []string) ([]types.TopicDescriptor, error)
}

// DocumentWriter authors one article body.
type DocumentWriter interface {
	Write(ctx context.Context, topic types.TopicDescriptor) (types.GeneratedDocument, error)
}

// Corpus is the persisted article store.
type Corpus interface {
	Titles() ([]string, error)
	Save(fileID string, content []byte) (string, error)
}

// Recorder receives the finished run summary.
type Recorder interface {
	Record(ctx context.Context, run types.RunSummary) error
}

// Runner sequences one batch. Items are processed strictly one at a time.
type Runner struct {
	Proposer TopicProposer
	Pool     []types.TopicDescriptor
	Author   DocumentWriter
	Builder  *artifact.Builder
	Corpus   Corpus

	// Ledger is optional; a recording failure is reported, never fatal.
	Ledger Recorder

	// Out receives progress lines and the summary. Nil discards them.
	Out io.Writer

	// Delay is the pause after each persisted item except the last.
	Delay time.Duration

	// Seed drives the fallback shuffle. Zero derives it from the clock.
	Seed int64

	Sleep    func(time.Duration)
	Now      func() time.Time
	NewRunID func() string
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) seed() int64 {
	if r.Seed != 0 {
		return r.Seed
	}
	return r.now().UnixNano()
}

// Plan sources count topics. The primary proposer's result is reconciled
// with the corpus; any proposer failure falls back to the static pool, so
// Plan fails only when the corpus cannot be read.
func (r *Runner) Plan(ctx context.Context, count int) ([]types.TopicDescriptor, types.TopicSource, error) {
	w := r.out()
	existing, err := r.Corpus.Titles()
	if err != nil {
		return nil, "", fmt.Errorf("reading corpus: %w", err)
	}
	fmt.Fprintf(w, "corpus has %d articles\n", len(existing))

	seed, year := r.seed(), r.now().Year()
	if r.Proposer != nil {
		fmt.Fprintf(w, "proposing %d topics\n", count)
		topics, err := r.Proposer.Propose(ctx, count, existing)
		if err == nil {
			return ideas.Dedupe(topics, count, existing, r.Pool, seed, year), types.SourceModel, nil
		}
		fmt.Fprintf(w, "topic sourcing failed: %v\n", err)
	}

	fmt.Fprintf(w, "using fallback topics\n")
	return ideas.Fallback(r.Pool, count, existing, seed, year), types.SourceFallback, nil
}

// Run executes one batch of count items and returns its summary. The
// summary is returned with ErrNoArticles when nothing was persisted.
func (r *Runner) Run(ctx context.Context, count int) (types.RunSummary, error) {
	w := r.out()
	summary := types.RunSummary{RunID: r.runID(), StartedAt: r.now()}

	topics, source, err := r.Plan(ctx, count)
	if err != nil {
		return summary, err
	}
	summary.TopicSource = source

	for i, topic := range topics {
		fmt.Fprintf(w, "authoring [%d/%d] %s\n", i+1, len(topics), topic.Title)
		item := r.runItem(ctx, topic)
		summary.Record(item)

		switch item.Status {
		case types.ItemPersisted:
			fmt.Fprintf(w, "persisted %s (%d chars)\n", item.FileID, item.Length)
			if i < len(topics)-1 && r.Delay > 0 {
				r.sleep(r.Delay)
			}
		case types.ItemSkipped:
			fmt.Fprintf(w, "skipped %s: %s\n", topic.Title, item.Error)
		default:
			fmt.Fprintf(w, "failed  %s: %s\n", topic.Title, item.Error)
		}
	}

	summary.FinishedAt = r.now()
	PrintSummary(w, summary)

	if r.Ledger != nil {
		if err := r.Ledger.Record(ctx, summary); err != nil {
			fmt.Fprintf(w, "warning: ledger write failed: %v\n", err)
		}
	}

	if summary.Succeeded == 0 {
		return summary, ErrNoArticles
	}
	return summary, nil
}

// runItem authors, builds, and persists one topic. It never returns an
// error; the outcome is carried in the result.
func (r *Runner) runItem(ctx context.Context, topic types.TopicDescriptor) types.ItemResult {
	item := types.ItemResult{Title: topic.Title, Category: topic.Category}

	doc, err := r.Author.Write(ctx, topic)
	if err != nil {
		item.Status = types.ItemFailed
		item.Error = err.Error()
		return item
	}
	item.Length = doc.Length()

	a, err := r.Builder.Build(topic, doc)
	if errors.Is(err, artifact.ErrBelowQualityThreshold) {
		item.Status = types.ItemSkipped
		item.Error = fmt.Sprintf("%v (%d < %d)", err, item.Length, r.Builder.MinLength)
		return item
	}
	if err != nil {
		item.Status = types.ItemFailed
		item.Error = err.Error()
		return item
	}
	item.Category = categoryOf(a)

	if _, err := r.Corpus.Save(a.FileID, artifact.Render(a)); err != nil {
		item.Status = types.ItemFailed
		item.Error = fmt.Sprintf("saving %s: %v", a.FileID, err)
		return item
	}
	item.FileID = a.FileID
	item.Status = types.ItemPersisted
	return item
}

// categoryOf reads the category actually written, defaults included.
func categoryOf(a types.Artifact) string {
	for _, f := range a.Metadata {
		if f.Key == "categories" && len(f.List) > 0 {
			return f.List[0]
		}
	}
	return a.Topic.Category
}

func (r *Runner) runID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return uuid.NewString()
}

func (r *Runner) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

// ResolveCount turns a requested batch size into the one to run: zero or
// negative means DefaultCount; with jitter the size is scaled by a random
// factor in [0.7, 1.3); the result is clamped to [1, MaxCount].
func ResolveCount(requested int, rng *rand.Rand, jitter bool) int {
	n := requested
	if n <= 0 {
		n = DefaultCount
	}
	if jitter && rng != nil {
		n = int(math.Round(float64(n) * (jitterMin + rng.Float64()*jitterSpan)))
	}
	return min(max(n, 1), MaxCount)
}

// PrintSummary writes the end-of-run report.
func PrintSummary(w io.Writer, s types.RunSummary) {
	fmt.Fprintf(w, "\nrun %s (%s topics)\n", s.RunID, s.TopicSource)
	fmt.Fprintf(w, "attempted: %d, persisted: %d, skipped: %d, failed: %d\n",
		s.Attempted, s.Succeeded, s.Skipped, s.Failed)

	persisted := s.Persisted()
	if len(persisted) == 0 {
		return
	}
	for _, it := range persisted {
		fmt.Fprintf(w, "  %s [%s] %d chars\n", it.Title, it.Category, it.Length)
	}
	fmt.Fprintf(w, "total: %d chars\n", s.TotalLength())

	counts := s.CategoryCounts()
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})
	fmt.Fprintf(w, "categories:")
	for _, c := range cats {
		fmt.Fprintf(w, " %s=%d", c, counts[c])
	}
	fmt.Fprintln(w)
}
