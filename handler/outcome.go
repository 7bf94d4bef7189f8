package handler

import (
	"time"

	"github.com/use-agent/netintercept/netmodel"
)

// Outcome is the per-handler result of an execute() call: exactly one of
// Success (at least one capture) or Failed (none), returned in the same
// order handlers were supplied.
type Outcome struct {
	Slug    string
	Success bool

	// Responses is populated only when Success is true.
	Responses []*netmodel.Response

	// RejectedResponses is populated only when Success is false: the
	// interceptor's full rejected list, for diagnostics.
	RejectedResponses []*netmodel.Response

	Duration time.Duration
}

// NewSuccess builds a HandlerSearchSuccess outcome.
func NewSuccess(slug string, responses []*netmodel.Response, duration time.Duration) Outcome {
	return Outcome{Slug: slug, Success: true, Responses: responses, Duration: duration}
}

// NewFailed builds a HandlerSearchFailed outcome.
func NewFailed(slug string, rejected []*netmodel.Response, duration time.Duration) Outcome {
	return Outcome{Slug: slug, Success: false, RejectedResponses: rejected, Duration: duration}
}
