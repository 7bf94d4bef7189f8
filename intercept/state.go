package intercept

import (
	"sync"
	"time"

	"github.com/use-agent/netintercept/handler"
	"github.com/use-agent/netintercept/netmodel"
)

// handlerState is the per-handler runtime state owned by the interceptor
// for the lifetime of one Execute call. Guarded the same way a cache
// guards its map with a single mutex, but one mutex per handler rather
// than one shared mutex, since go-rod dispatches routed exchanges onto
// independent goroutines and unrelated handlers' counters must not
// contend with each other.
type handlerState struct {
	mu sync.Mutex

	captured          []*netmodel.Response
	modificationsUsed int
	done              bool
}

func newHandlerState() *handlerState {
	return &handlerState{}
}

func (s *handlerState) snapshot() (captured int, modsUsed int, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captured), s.modificationsUsed, s.done
}

func (s *handlerState) recordModification() {
	s.mu.Lock()
	s.modificationsUsed++
	s.mu.Unlock()
}

func (s *handlerState) recordCapture(resp *netmodel.Response) {
	s.mu.Lock()
	s.captured = append(s.captured, resp)
	s.mu.Unlock()
}

// finalize marks the handler done if its quotas are exhausted, and
// reports whether this call is the one that transitioned it to done
// (used to maintain the interceptor's done counter without rescanning
// every handler on every exchange).
func (s *handlerState) finalize(h handler.Handler) (transitioned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}

	capsFull := true
	if h.Execute.Captures() {
		capsFull = len(s.captured) >= h.Execute.MaxResponses()
	}

	modsFull := true
	if h.Execute.HasRequestModifier() || h.Execute.HasResponseModifier() {
		modsFull = s.modificationsUsed >= h.Execute.MaxModifications()
	}

	if capsFull && modsFull {
		s.done = true
		return true
	}
	return false
}

func (s *handlerState) outcome(h handler.Handler, rejected []*netmodel.Response, duration time.Duration) handler.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.captured) > 0 {
		return handler.NewSuccess(h.Slug, append([]*netmodel.Response(nil), s.captured...), duration)
	}
	return handler.NewFailed(h.Slug, rejected, duration)
}
