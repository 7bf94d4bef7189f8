// Package handler declares the predicate + execution-policy units (C4,
// C5) that intercept.Interceptor dispatches traffic against.
package handler

import (
	"context"
	"fmt"

	"github.com/use-agent/netintercept/netmodel"
)

// RequestModifier transforms an outgoing Request before it is dispatched
// to the network. It returns the Request to use going forward; a nil
// Request (or an error) means "keep the prior Request unchanged".
type RequestModifier func(ctx context.Context, req *netmodel.Request) (*netmodel.Request, error)

// ResponseModifier transforms a captured Response in place before it is
// fulfilled back to the browser and appended to a handler's captures.
type ResponseModifier func(ctx context.Context, resp *netmodel.Response) (*netmodel.Response, error)

// ExecuteKind tags the variant held by an Execute value.
type ExecuteKind int

const (
	ExecuteReturn ExecuteKind = iota
	ExecuteModify
	ExecuteAll
)

func (k ExecuteKind) String() string {
	switch k {
	case ExecuteReturn:
		return "Return"
	case ExecuteModify:
		return "Modify"
	case ExecuteAll:
		return "All"
	default:
		return "unknown"
	}
}

// Execute is the immutable tagged variant {Return, Modify, All} carrying
// optional transformers and quota fields, validated at construction
// (Return must not carry transformers; Modify/All must carry
// at least one transformer; Modify requires max_modifications, All
// requires both quotas).
type Execute struct {
	kind ExecuteKind

	requestModify  RequestModifier
	responseModify ResponseModifier

	maxModifications int
	maxResponses     int
}

// Return builds the Return variant: captures up to maxResponses matching
// exchanges, performs no modification.
func Return(maxResponses int) (Execute, error) {
	if maxResponses < 1 {
		return Execute{}, fmt.Errorf("handler: Return requires max_responses >= 1, got %d", maxResponses)
	}
	return Execute{kind: ExecuteReturn, maxResponses: maxResponses}, nil
}

// Modify builds the Modify variant: transforms requests and/or responses
// without capturing. At least one of requestModify/responseModify must
// be non-nil, and maxModifications must be positive.
func Modify(requestModify RequestModifier, responseModify ResponseModifier, maxModifications int) (Execute, error) {
	if requestModify == nil && responseModify == nil {
		return Execute{}, fmt.Errorf("handler: Modify requires at least one of request_modify or response_modify")
	}
	if maxModifications < 1 {
		return Execute{}, fmt.Errorf("handler: Modify requires max_modifications >= 1, got %d", maxModifications)
	}
	return Execute{
		kind:             ExecuteModify,
		requestModify:    requestModify,
		responseModify:   responseModify,
		maxModifications: maxModifications,
	}, nil
}

// All builds the All variant: transforms and captures, with independent
// quotas for each.
func All(requestModify RequestModifier, responseModify ResponseModifier, maxModifications, maxResponses int) (Execute, error) {
	if requestModify == nil && responseModify == nil {
		return Execute{}, fmt.Errorf("handler: All requires at least one of request_modify or response_modify")
	}
	if maxModifications < 1 {
		return Execute{}, fmt.Errorf("handler: All requires max_modifications >= 1, got %d", maxModifications)
	}
	if maxResponses < 1 {
		return Execute{}, fmt.Errorf("handler: All requires max_responses >= 1, got %d", maxResponses)
	}
	return Execute{
		kind:             ExecuteAll,
		requestModify:    requestModify,
		responseModify:   responseModify,
		maxModifications: maxModifications,
		maxResponses:     maxResponses,
	}, nil
}

func (e Execute) Kind() ExecuteKind { return e.kind }

// Captures reports whether this variant appends to a handler's captured
// list (Return and All do; Modify does not).
func (e Execute) Captures() bool {
	return e.kind == ExecuteReturn || e.kind == ExecuteAll
}

// HasRequestModifier reports whether a request_modify transformer is set.
func (e Execute) HasRequestModifier() bool { return e.requestModify != nil }

// HasResponseModifier reports whether a response_modify transformer is set.
func (e Execute) HasResponseModifier() bool { return e.responseModify != nil }

func (e Execute) MaxModifications() int { return e.maxModifications }
func (e Execute) MaxResponses() int     { return e.maxResponses }

// ApplyRequestModifier runs the request_modify transformer, if any. A nil
// transformer is a no-op returning req unchanged.
func (e Execute) ApplyRequestModifier(ctx context.Context, req *netmodel.Request) (*netmodel.Request, error) {
	if e.requestModify == nil {
		return req, nil
	}
	return e.requestModify(ctx, req)
}

// ApplyResponseModifier runs the response_modify transformer, if any. A
// nil transformer is a no-op returning resp unchanged.
func (e Execute) ApplyResponseModifier(ctx context.Context, resp *netmodel.Response) (*netmodel.Response, error) {
	if e.responseModify == nil {
		return resp, nil
	}
	return e.responseModify(ctx, resp)
}
