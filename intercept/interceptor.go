// Package intercept implements the route interceptor (C6): the
// per-navigation multi-handler dispatcher that arbitrates one stream of
// routed exchanges against a set of concurrent handlers.
package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/use-agent/netintercept/handler"
	"github.com/use-agent/netintercept/netmodel"
)

// Interceptor is the core of the engine. One Interceptor instance serves
// exactly one navigation's worth of routed exchanges, from construction
// through Await.
//
// This algorithm was originally designed for a single-threaded
// cooperative event loop, where per-handler counters need no locking
// because only one callback ever runs at a time. go-rod dispatches each
// routed exchange on its own goroutine instead, giving true parallelism
// across exchanges, so this port adds a mutex per handler (handlerState)
// plus an atomic done counter in place of that single-threaded
// atomicity. This is a deliberate concurrency-model adaptation, not a
// deviation from the algorithm itself.
type Interceptor struct {
	handlers      []handler.Handler
	navigationURL string
	startTime     time.Time
	logger        *slog.Logger
	debug         bool

	states     map[string]*handlerState
	doneCount  atomic.Int64
	totalCount int64

	rejectedMu sync.Mutex
	rejected   []*netmodel.Response

	completion     chan []handler.Outcome
	completionOnce sync.Once

	limiter *rate.Limiter
	inFlight errgroup.Group
}

// Option configures an Interceptor at construction.
type Option func(*Interceptor)

// WithLogger overrides the default discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ic *Interceptor) { ic.logger = logger }
}

// WithDebug retains response bodies on rejected exchanges instead of
// stripping them ("bodies omitted unless debug mode" default).
func WithDebug(debug bool) Option {
	return func(ic *Interceptor) { ic.debug = debug }
}

// WithBodyFetchRate paces concurrent body-fetch dispatches within this
// one navigation; it never throttles across navigations (each Interceptor
// gets its own limiter), honoring the "no rate limits across navigations"
// non-goal: pacing never crosses navigations.
func WithBodyFetchRate(eventsPerSecond float64, burst int) Option {
	return func(ic *Interceptor) { ic.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst) }
}

// New constructs an Interceptor for one navigation. Duplicate slugs fail
// fast with a validation error and no side effects.
func New(handlers []handler.Handler, navigationURL string, opts ...Option) (*Interceptor, error) {
	if len(handlers) == 0 {
		return nil, NewInterceptError(ErrCodeNoHandlers, "at least one handler is required", nil)
	}

	states := make(map[string]*handlerState, len(handlers))
	for _, h := range handlers {
		if _, exists := states[h.Slug]; exists {
			return nil, NewInterceptError(ErrCodeDuplicateSlug, fmt.Sprintf("duplicate handler slug %q", h.Slug), nil)
		}
		states[h.Slug] = newHandlerState()
	}

	ic := &Interceptor{
		handlers:      handlers,
		navigationURL: navigationURL,
		startTime:     time.Now(),
		logger:        slog.New(slog.NewTextHandler(discardWriter{}, nil)),
		states:        states,
		totalCount:    int64(len(handlers)),
		completion:    make(chan []handler.Outcome, 1),
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Spawn hands one routed exchange to the interceptor. The browser package
// calls this once per route callback; the work runs inside the
// interceptor's in-flight task group so WaitInFlight can drain it before
// the caller unroutes.
func (ic *Interceptor) Spawn(ctx context.Context, ex Exchange) {
	ic.inFlight.Go(func() error {
		ic.handle(ctx, ex)
		return nil
	})
}

// WaitInFlight blocks until every Spawn'd exchange has been fulfilled or
// bypassed. Callers must invoke this before unrouting, or the browser may
// hang on a request whose body read is still pending.
func (ic *Interceptor) WaitInFlight() {
	_ = ic.inFlight.Wait()
}

// Completion returns the channel that receives the ordered outcome list
// exactly once, when every handler's quotas are exhausted.
func (ic *Interceptor) Completion() <-chan []handler.Outcome {
	return ic.completion
}

// Await races Completion against timeout, returning whatever outcomes are
// available at whichever comes first. It does not wait
// for in-flight exchanges; call WaitInFlight afterward before unrouting.
func (ic *Interceptor) Await(ctx context.Context, timeout time.Duration) []handler.Outcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcomes := <-ic.completion:
		return outcomes
	case <-timer.C:
		return ic.partialOutcomes()
	case <-ctx.Done():
		return ic.partialOutcomes()
	}
}

func (ic *Interceptor) elapsed() time.Duration {
	return time.Since(ic.startTime)
}

func (ic *Interceptor) partialOutcomes() []handler.Outcome {
	rejected := ic.rejectedSnapshot()
	dur := ic.elapsed()
	outcomes := make([]handler.Outcome, len(ic.handlers))
	for i, h := range ic.handlers {
		outcomes[i] = ic.states[h.Slug].outcome(h, rejected, dur)
	}
	return outcomes
}

func (ic *Interceptor) rejectedSnapshot() []*netmodel.Response {
	ic.rejectedMu.Lock()
	defer ic.rejectedMu.Unlock()
	return append([]*netmodel.Response(nil), ic.rejected...)
}

func (ic *Interceptor) addRejected(resp *netmodel.Response) {
	var entry *netmodel.Response
	if resp != nil {
		entry = resp
		if !ic.debug {
			stripped := *resp
			stripped.Content = nil
			entry = &stripped
		}
	}
	ic.rejectedMu.Lock()
	ic.rejected = append(ic.rejected, entry)
	ic.rejectedMu.Unlock()
}

// handle runs the full single-exchange interception algorithm.
func (ic *Interceptor) handle(ctx context.Context, ex Exchange) {
	req := ex.Request()

	if !ex.SupportsModification() {
		if err := ex.Bypass(ctx); err != nil {
			ic.logger.Warn("bypass failed for unsupported scheme", "url", req.RealURL(), "error", err)
		}
		return
	}

	req = ic.applyRequestModifiers(ctx, req)

	if ic.limiter != nil {
		if err := ic.limiter.Wait(ctx); err != nil {
			ic.logger.Warn("rate limiter wait aborted", "url", req.RealURL(), "error", err)
		}
	}

	resp, err := ex.Fetch(ctx, req)
	if err != nil {
		ic.logger.Warn("body fetch failed", "url", req.RealURL(), "main_document", ex.IsMainDocument(), "error", err)
		if bypassErr := ex.Bypass(ctx); bypassErr != nil {
			ic.logger.Warn("bypass after fetch error failed", "url", req.RealURL(), "error", bypassErr)
		}
		ic.addRejected(nil)
		return
	}

	captured := ic.applyResponseCapture(ctx, req, resp)

	if err := ex.Fulfill(ctx, resp); err != nil {
		ic.logger.Warn("route fulfill failed", "url", req.RealURL(), "error", err)
	}

	if !captured {
		ic.addRejected(resp)
	}

	ic.bookkeepAndCheckCompletion()
}

func (ic *Interceptor) applyRequestModifiers(ctx context.Context, req *netmodel.Request) *netmodel.Request {
	navURL := ic.navigationURL
	for _, h := range ic.handlers {
		if !h.Execute.HasRequestModifier() {
			continue
		}
		st := ic.states[h.Slug]
		_, modsUsed, done := st.snapshot()
		if done || modsUsed >= h.Execute.MaxModifications() {
			continue
		}
		if !h.AppliesToRequest(req.RealURL(), req.Method, navURL) {
			continue
		}

		transformed, err := h.Execute.ApplyRequestModifier(ctx, req)
		if err != nil {
			ic.logger.Warn("request modifier error, keeping prior request", "handler", h.Slug, "error", err)
			continue
		}
		if transformed == nil {
			continue
		}
		if derr := transformed.Method.Dispatchable(); derr != nil {
			ic.logger.Warn("request modifier produced undispatchable method, ignoring", "handler", h.Slug, "error", derr)
			continue
		}

		req = transformed
		st.recordModification()
	}
	return req
}

func (ic *Interceptor) applyResponseCapture(ctx context.Context, req *netmodel.Request, resp *netmodel.Response) bool {
	navURL := ic.navigationURL
	ex := handler.Exchange{
		URL:             req.RealURL(),
		Method:          req.Method,
		ResponseHeaders: resp.ResponseHeaders,
	}

	captured := false
	for _, h := range ic.handlers {
		st := ic.states[h.Slug]
		count, modsUsed, done := st.snapshot()
		if done {
			continue
		}
		if !h.ShouldCapture(ex, navURL) {
			continue
		}

		if h.Execute.HasResponseModifier() && modsUsed < h.Execute.MaxModifications() {
			transformed, err := h.Execute.ApplyResponseModifier(ctx, resp)
			if err != nil {
				ic.logger.Warn("response modifier error, keeping prior response", "handler", h.Slug, "error", err)
			} else if transformed != nil {
				*resp = *transformed
				st.recordModification()
			}
		}

		if h.Execute.Captures() && count < h.Execute.MaxResponses() {
			st.recordCapture(resp.Clone())
			captured = true
		}
	}
	return captured
}

func (ic *Interceptor) bookkeepAndCheckCompletion() {
	for _, h := range ic.handlers {
		if ic.states[h.Slug].finalize(h) {
			if ic.doneCount.Add(1) >= ic.totalCount {
				ic.resolve()
			}
		}
	}
}

func (ic *Interceptor) resolve() {
	ic.completionOnce.Do(func() {
		ic.completion <- ic.partialOutcomes()
		close(ic.completion)
	})
}
