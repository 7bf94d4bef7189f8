package intercept

import (
	"context"

	"github.com/use-agent/netintercept/netmodel"
)

// Exchange is the seam between the core dispatcher and a browser driver's
// routed request. It lets Interceptor run without a real browser: tests
// supply a fake Exchange.
//
// One Exchange value corresponds to one routed HTTP request/response pair.
// Its methods are called at most once each, in the order Request,
// SupportsModification, Fetch, Fulfill (or Bypass in place of Fetch+Fulfill
// for unsupported schemes).
type Exchange interface {
	// Request returns the initial Request built from the driver's route
	// descriptor, before any handler has modified it.
	Request() *netmodel.Request

	// IsMainDocument reports whether this exchange is the top-level
	// navigation document rather than a subresource.
	IsMainDocument() bool

	// SupportsModification reports whether the underlying scheme can be
	// refetched with overrides (false for e.g. browser-extension
	// schemes); when false the request-modification phase is skipped
	// entirely and Bypass is used instead of Fetch/Fulfill.
	SupportsModification() bool

	// Fetch dispatches req to the network exactly once and returns the
	// raw response. Implementations must not call this more than once
	// per Exchange (bodies are destructively consumed by the driver).
	Fetch(ctx context.Context, req *netmodel.Request) (*netmodel.Response, error)

	// Fulfill returns resp to the browser as the exchange's final
	// response.
	Fulfill(ctx context.Context, resp *netmodel.Response) error

	// Bypass continues the exchange unmodified, without interception
	// accounting (unsupported scheme) or with best-effort original
	// bytes (fetch error).
	Bypass(ctx context.Context) error
}
