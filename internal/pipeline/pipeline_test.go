// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-engine/internal/artifact"
	"github.com/pdiddy/article-engine/internal/corpus"
	"github.com/pdiddy/article-engine/internal/llm"
	"github.com/pdiddy/article-engine/pkg/types"
)

const testMinLength = 50

type fakeProposer struct {
	topics []types.TopicDescriptor
	err    error
	calls  int
}

func (f *fakeProposer) Propose(_ context.Context, count int, _ []string) ([]types.TopicDescriptor, error) {
	f.calls++
	return f.topics, f.err
}

// fakeAuthor returns a body per title, or err for titles listed in fail.
type fakeAuthor struct {
	bodies map[string]string
	fail   map[string]error
	def    string
	calls  []string
}

func (f *fakeAuthor) Write(_ context.Context, topic types.TopicDescriptor) (types.GeneratedDocument, error) {
	f.calls = append(f.calls, topic.Title)
	if err, ok := f.fail[topic.Title]; ok {
		return types.GeneratedDocument{}, err
	}
	if b, ok := f.bodies[topic.Title]; ok {
		return types.GeneratedDocument{Body: b}, nil
	}
	return types.GeneratedDocument{Body: f.def}, nil
}

type fakeLedger struct {
	runs []types.RunSummary
	err  error
}

func (f *fakeLedger) Record(_ context.Context, run types.RunSummary) error {
	f.runs = append(f.runs, run)
	return f.err
}

func longBody() string {
	return "## Section\n\n" + strings.Repeat("body text ", 20)
}

func testPool() []types.TopicDescriptor {
	return []types.TopicDescriptor{
		{Title: "Pool One", Category: "DevOps"},
		{Title: "Pool Two", Category: "Backend"},
		{Title: "Pool Three", Category: "Databases"},
	}
}

type harness struct {
	runner *Runner
	store  *corpus.Store
	out    *bytes.Buffer
	sleeps []time.Duration
}

func newHarness(t *testing.T, proposer TopicProposer, author DocumentWriter) *harness {
	t.Helper()
	store, err := corpus.NewStore(filepath.Join(t.TempDir(), "posts"))
	require.NoError(t, err)

	h := &harness{store: store, out: &bytes.Buffer{}}
	h.runner = &Runner{
		Proposer: proposer,
		Pool:     testPool(),
		Author:   author,
		Builder:  artifact.NewBuilder(testMinLength, rand.New(rand.NewSource(1))),
		Corpus:   store,
		Out:      h.out,
		Delay:    DefaultDelay,
		Seed:     7,
		Sleep:    func(d time.Duration) { h.sleeps = append(h.sleeps, d) },
		NewRunID: func() string { return "run-1" },
	}
	return h
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_AllPersisted(t *testing.T) {
	proposer := &fakeProposer{topics: []types.TopicDescriptor{
		{Title: "First Topic", Category: "Backend"},
		{Title: "Second Topic", Category: "Backend"},
		{Title: "Third Topic"},
	}}
	h := newHarness(t, proposer, &fakeAuthor{def: longBody()})
	ledger := &fakeLedger{}
	h.runner.Ledger = ledger

	summary, err := h.runner.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, types.SourceModel, summary.TopicSource)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Len(t, storedFiles(t, h.store.Dir), 3)
	assert.Equal(t, map[string]int{"Backend": 2, artifact.DefaultCategory: 1}, summary.CategoryCounts())

	// Pacing after each persist except the last.
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, h.sleeps)

	require.Len(t, ledger.runs, 1)
	assert.Equal(t, 3, ledger.runs[0].Succeeded)
	assert.False(t, ledger.runs[0].FinishedAt.IsZero())

	titles, err := h.store.Titles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"First Topic", "Second Topic", "Third Topic"}, titles)

	out := h.out.String()
	assert.Contains(t, out, "authoring [1/3] First Topic")
	assert.Contains(t, out, "attempted: 3, persisted: 3, skipped: 0, failed: 0")
}

func TestRun_AllItemsFail(t *testing.T) {
	proposer := &fakeProposer{topics: []types.TopicDescriptor{{Title: "A"}, {Title: "B"}, {Title: "C"}}}
	boom := &llm.TransportError{Err: context.DeadlineExceeded}
	author := &fakeAuthor{fail: map[string]error{"A": boom, "B": boom, "C": boom}}
	h := newHarness(t, proposer, author)

	summary, err := h.runner.Run(context.Background(), 3)
	require.ErrorIs(t, err, ErrNoArticles)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 3, summary.Failed)
	assert.Len(t, summary.Items, 3)
	for _, it := range summary.Items {
		assert.Equal(t, types.ItemFailed, it.Status)
		assert.Contains(t, it.Error, "transport")
	}
	assert.Empty(t, h.sleeps)
	assert.Equal(t, []string{"A", "B", "C"}, author.calls)
}

func TestRun_UpstreamFailureFallsBack(t *testing.T) {
	proposer := &fakeProposer{err: &llm.UpstreamError{Status: 503, Message: "overloaded"}}
	author := &fakeAuthor{def: longBody()}
	h := newHarness(t, proposer, author)

	summary, err := h.runner.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, proposer.calls)
	assert.Equal(t, types.SourceFallback, summary.TopicSource)
	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 5, summary.Succeeded)
	assert.Len(t, author.calls, 5)
	assert.Contains(t, h.out.String(), "topic sourcing failed: upstream 503: overloaded")
}

func TestRun_SkippedIsDistinctFromFailed(t *testing.T) {
	proposer := &fakeProposer{topics: []types.TopicDescriptor{{Title: "Short"}, {Title: "Broken"}, {Title: "Good"}}}
	author := &fakeAuthor{
		bodies: map[string]string{"Short": "tiny"},
		fail:   map[string]error{"Broken": llm.Malformed("empty completion", "")},
		def:    longBody(),
	}
	h := newHarness(t, proposer, author)

	summary, err := h.runner.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, types.ItemSkipped, summary.Items[0].Status)
	assert.Contains(t, summary.Items[0].Error, "below quality threshold")
	assert.Equal(t, types.ItemFailed, summary.Items[1].Status)
	assert.Len(t, storedFiles(t, h.store.Dir), 1)

	// The only persisted item is last: no pacing.
	assert.Empty(t, h.sleeps)
}

func TestRun_TitlesSharingASlugPersistSeparately(t *testing.T) {
	proposer := &fakeProposer{topics: []types.TopicDescriptor{{Title: "Intro to X"}, {Title: "Intro to X!"}}}
	h := newHarness(t, proposer, &fakeAuthor{def: longBody()})

	summary, err := h.runner.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Succeeded)
	assert.NotEqual(t, summary.Items[0].FileID, summary.Items[1].FileID)
	assert.True(t, strings.HasPrefix(summary.Items[0].FileID, "intro-to-x-"))
	assert.True(t, strings.HasPrefix(summary.Items[1].FileID, "intro-to-x-"))
	assert.Len(t, storedFiles(t, h.store.Dir), 2)
}

func TestRun_LedgerFailureIsNotFatal(t *testing.T) {
	proposer := &fakeProposer{topics: []types.TopicDescriptor{{Title: "Only"}}}
	h := newHarness(t, proposer, &fakeAuthor{def: longBody()})
	h.runner.Ledger = &fakeLedger{err: errors.New("disk full")}

	summary, err := h.runner.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Contains(t, h.out.String(), "warning: ledger write failed: disk full")
}

func TestPlan_DedupesAgainstCorpus(t *testing.T) {
	proposer := &fakeProposer{topics: []types.TopicDescriptor{{Title: "Already Written"}, {Title: "Brand New"}}}
	h := newHarness(t, proposer, &fakeAuthor{})
	_, err := h.store.Save("already-written-1", []byte("---\ntitle: \"Already Written\"\n---\n\nbody"))
	require.NoError(t, err)

	topics, source, err := h.runner.Plan(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, types.SourceModel, source)
	require.Len(t, topics, 2)
	assert.NotEqual(t, "Already Written", topics[0].Title)
	assert.Equal(t, "Brand New", topics[1].Title)
}

func TestPlan_NoProposerUsesFallback(t *testing.T) {
	h := newHarness(t, nil, &fakeAuthor{})

	topics, source, err := h.runner.Plan(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFallback, source)
	assert.Len(t, topics, 2)
}

func TestResolveCount(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"default", 0, DefaultCount},
		{"negative", -4, DefaultCount},
		{"as requested", 7, 7},
		{"clamped", 50, MaxCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveCount(tt.requested, nil, false))
		})
	}
}

func TestResolveCount_Jitter(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		n := ResolveCount(10, rng, true)
		assert.GreaterOrEqual(t, n, 7)
		assert.LessOrEqual(t, n, 13)
	}
	for i := 0; i < 200; i++ {
		n := ResolveCount(1, rng, true)
		assert.Equal(t, 1, n)
	}
	for i := 0; i < 200; i++ {
		assert.LessOrEqual(t, ResolveCount(20, rng, true), MaxCount)
	}
}

func TestPrintSummary(t *testing.T) {
	var s types.RunSummary
	s.RunID = "r"
	s.TopicSource = types.SourceModel
	s.Record(types.ItemResult{Title: "A", Category: "Backend", Length: 100, Status: types.ItemPersisted})
	s.Record(types.ItemResult{Title: "B", Category: "DevOps", Length: 200, Status: types.ItemPersisted})
	s.Record(types.ItemResult{Title: "C", Category: "DevOps", Length: 300, Status: types.ItemPersisted})
	s.Record(types.ItemResult{Title: "D", Status: types.ItemFailed, Error: "x"})

	var buf bytes.Buffer
	PrintSummary(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "attempted: 4, persisted: 3, skipped: 0, failed: 1")
	assert.Contains(t, out, "total: 600 chars")
	assert.Contains(t, out, "categories: DevOps=2 Backend=1")
}
