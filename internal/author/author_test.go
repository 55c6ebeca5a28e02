// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package author

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-engine/internal/llm"
	"github.com/pdiddy/article-engine/pkg/types"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// scriptedClient returns replies and errors in order, one per call.
type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
	last    []llm.Message
	params  llm.Params
}

func (s *scriptedClient) Name() string { return "scripted" }

func (s *scriptedClient) Complete(_ context.Context, messages []llm.Message, p llm.Params) (string, error) {
	i := s.calls
	s.calls++
	s.last = messages
	s.params = p
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

var topic = types.TopicDescriptor{
	Title:       "Inside the Go Scheduler",
	Category:    "Programming Languages",
	Tags:        []string{"Go", "Runtime"},
	Description: "How goroutines are multiplexed onto threads.",
	ContentType: types.ContentDeepDive,
}

func TestWrite_Success(t *testing.T) {
	body := "## Intro\n\nraw body, returned as is  \n"
	c := &scriptedClient{replies: []string{body}}
	a := &Author{Client: c}

	doc, err := a.Write(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, body, doc.Body)
	assert.Equal(t, 1, c.calls)

	assert.Equal(t, 16384, c.params.MaxTokens)
	assert.Equal(t, 0.75, c.params.Temperature)
	require.Len(t, c.last, 2)
	assert.Equal(t, llm.RoleSystem, c.last[0].Role)
	assert.Equal(t, llm.RoleUser, c.last[1].Role)
	assert.Contains(t, c.last[1].Content, `titled "Inside the Go Scheduler"`)
	assert.Contains(t, c.last[1].Content, Guidance(types.ContentDeepDive))
}

func TestWrite_Retries(t *testing.T) {
	tests := []struct {
		name       string
		errs       []error
		maxRetries int
		wantCalls  int
		wantErr    bool
	}{
		{
			name:       "transport error then success",
			errs:       []error{&llm.TransportError{Err: context.DeadlineExceeded}},
			maxRetries: DefaultMaxRetries,
			wantCalls:  2,
		},
		{
			name:       "rate limited then success",
			errs:       []error{&llm.UpstreamError{Status: 429, Message: "slow down"}},
			maxRetries: DefaultMaxRetries,
			wantCalls:  2,
		},
		{
			name:      "client error is not retried",
			errs:      []error{&llm.UpstreamError{Status: 401, Message: "bad key"}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "malformed response is not retried",
			errs:      []error{llm.Malformed("empty completion", "")},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name: "retries exhausted",
			errs: []error{
				&llm.UpstreamError{Status: 503, Message: "busy"},
				&llm.UpstreamError{Status: 503, Message: "busy"},
				&llm.UpstreamError{Status: 503, Message: "busy"},
			},
			maxRetries: 2,
			wantCalls:  3,
			wantErr:    true,
		},
		{
			name:       "zero retries makes a single attempt",
			errs:       []error{&llm.UpstreamError{Status: 503, Message: "busy"}},
			maxRetries: 0,
			wantCalls:  1,
			wantErr:    true,
		},
		{
			name:       "retries disabled",
			errs:       []error{&llm.UpstreamError{Status: 503, Message: "busy"}},
			maxRetries: -1,
			wantCalls:  1,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptedClient{errs: tt.errs, replies: make([]string, 4)}
			c.replies[len(tt.errs)] = "body"
			a := &Author{Client: c, MaxRetries: tt.maxRetries}

			doc, err := a.Write(context.Background(), topic)
			assert.Equal(t, tt.wantCalls, c.calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.errs[tt.wantCalls-1])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "body", doc.Body)
		})
	}
}

func TestWrite_CancelledDuringBackoff(t *testing.T) {
	old := backoffBase
	backoffBase = time.Hour
	defer func() { backoffBase = old }()

	ctx, cancel := context.WithCancel(context.Background())
	c := &scriptedClient{errs: []error{&llm.TransportError{Err: errors.New("reset")}}}
	a := &Author{Client: &cancelOnCall{scriptedClient: c, cancel: cancel}, MaxRetries: 1}

	_, err := a.Write(ctx, topic)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.calls)
}

type cancelOnCall struct {
	*scriptedClient
	cancel context.CancelFunc
}

func (c *cancelOnCall) Complete(ctx context.Context, m []llm.Message, p llm.Params) (string, error) {
	defer c.cancel()
	return c.scriptedClient.Complete(ctx, m, p)
}

func TestWrite_AttemptTimeout(t *testing.T) {
	a := &Author{Client: &deadlineClient{}, Timeout: 5 * time.Millisecond, MaxRetries: -1}
	_, err := a.Write(context.Background(), topic)
	var te *llm.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// deadlineClient blocks until its context expires.
type deadlineClient struct{}

func (deadlineClient) Name() string { return "deadline" }

func (deadlineClient) Complete(ctx context.Context, _ []llm.Message, _ llm.Params) (string, error) {
	<-ctx.Done()
	return "", &llm.TransportError{Err: ctx.Err()}
}

func TestGuidance(t *testing.T) {
	seen := map[string]bool{}
	for _, ct := range types.ContentTypes {
		g := Guidance(ct)
		assert.NotEmpty(t, g, ct)
		assert.False(t, seen[g], "guidance for %s is not distinct", ct)
		seen[g] = true
	}
	assert.Equal(t, Guidance(types.ContentTutorial), Guidance("unknown"))
	assert.Contains(t, Guidance(types.ContentComparison), "tables")
	assert.Contains(t, Guidance(types.ContentDeepDive), "source-code level")
}

func TestPrompt(t *testing.T) {
	p, err := Prompt(topic)
	require.NoError(t, err)
	assert.Contains(t, p, "Category: Programming Languages")
	assert.Contains(t, p, "Tags: Go, Runtime")
	assert.Contains(t, p, "Summary: How goroutines")
	assert.Contains(t, p, "At least 8 sections")
	assert.Contains(t, p, "At least 5 fenced code blocks")
	assert.Contains(t, p, "At least 4000 characters")

	bare, err := Prompt(types.TopicDescriptor{Title: "T"})
	require.NoError(t, err)
	assert.NotContains(t, bare, "Tags:")
	assert.NotContains(t, bare, "Summary:")
}
