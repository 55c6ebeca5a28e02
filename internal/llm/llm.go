// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm turns a system/user message pair into a single text completion.
// Backends classify every failure as a TransportError, UpstreamError, or
// MalformedResponseError and never retry on their own; retry policy belongs
// to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params bounds one generation call.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// defaultTopP is sent when Params.TopP is zero.
const defaultTopP = 0.95

// Client produces one completion per call.
type Client interface {
	Name() string
	Complete(ctx context.Context, messages []Message, p Params) (string, error)
}

// excerptLimit bounds the diagnostic text carried by errors.
const excerptLimit = 300

// TransportError reports a network failure or timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError reports an explicit error from the generation backend.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
	}
	return "upstream: " + e.Message
}

// Transient reports whether the failure may clear on a later attempt
// (rate limiting or a server-side fault).
func (e *UpstreamError) Transient() bool {
	return e.Status == 429 || e.Status >= 500
}

// MalformedResponseError reports a response that violates the expected shape.
type MalformedResponseError struct {
	Reason  string
	Excerpt string
}

func (e *MalformedResponseError) Error() string {
	if e.Excerpt == "" {
		return "malformed response: " + e.Reason
	}
	return fmt.Sprintf("malformed response: %s (raw: %q)", e.Reason, e.Excerpt)
}

// Malformed builds a MalformedResponseError with a truncated excerpt of raw.
func Malformed(reason, raw string) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason, Excerpt: Excerpt(raw)}
}

// Excerpt truncates s to a bounded number of runes for diagnostics.
func Excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLimit {
		return s
	}
	return string(r[:excerptLimit]) + "..."
}

// IsTransient reports whether err is worth retrying: any transport failure,
// or an upstream error with a 429 or 5xx status.
func IsTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	return false
}
