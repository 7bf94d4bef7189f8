package intercept

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/use-agent/netintercept/contentfamily"
	"github.com/use-agent/netintercept/handler"
	"github.com/use-agent/netintercept/netmodel"
)

// fakeExchange is a test double for Exchange: it serves a fixed response
// for a given request without any real network or browser.
type fakeExchange struct {
	req                  *netmodel.Request
	isMain               bool
	supportsModification bool
	respStatus           int
	respBody             []byte
	respCT               string

	fetchErr error

	fulfilled *netmodel.Response
	bypassed  bool
}

func (f *fakeExchange) Request() *netmodel.Request { return f.req }
func (f *fakeExchange) IsMainDocument() bool       { return f.isMain }
func (f *fakeExchange) SupportsModification() bool { return f.supportsModification }

func (f *fakeExchange) Fetch(ctx context.Context, req *netmodel.Request) (*netmodel.Response, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &netmodel.Response{
		Status:          f.respStatus,
		RequestHeaders:  req.Headers,
		ResponseHeaders: http.Header{"Content-Type": []string{f.respCT}},
		Content:         f.respBody,
		URL:             req.RealURL(),
	}, nil
}

func (f *fakeExchange) Fulfill(ctx context.Context, resp *netmodel.Response) error {
	f.fulfilled = resp
	return nil
}

func (f *fakeExchange) Bypass(ctx context.Context) error {
	f.bypassed = true
	return nil
}

func newFakeMainExchange(t *testing.T, navURL, contentType string, body []byte) *fakeExchange {
	t.Helper()
	req, err := netmodel.NewRequest(navURL, netmodel.MethodGET, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return &fakeExchange{
		req:                  req,
		isMain:               true,
		supportsModification: true,
		respStatus:           200,
		respCT:               contentType,
		respBody:             body,
	}
}

func TestSimpleCaptureScenario(t *testing.T) {
	navURL := "https://httpbin.org/json"
	ret, _ := handler.Return(1)
	h, err := handler.MAIN("", contentfamily.FamilyJSON, "", &ret)
	if err != nil {
		t.Fatalf("MAIN: %v", err)
	}

	ic, err := New([]handler.Handler{h}, navURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ex := newFakeMainExchange(t, navURL, "application/json", []byte(`{"slideshow":{}}`))
	ic.Spawn(context.Background(), ex)
	ic.WaitInFlight()

	outcomes := ic.Await(context.Background(), time.Second)
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if !outcomes[0].Success {
		t.Fatalf("expected Success, got Failed")
	}
	if len(outcomes[0].Responses) != 1 {
		t.Fatalf("expected 1 captured response, got %d", len(outcomes[0].Responses))
	}
	if outcomes[0].Responses[0].Status != 200 {
		t.Errorf("status = %d, want 200", outcomes[0].Responses[0].Status)
	}
	if ex.fulfilled == nil {
		t.Error("expected exchange to be fulfilled")
	}
}

func TestRequestModifierAddsParam(t *testing.T) {
	navURL := "https://httpbin.org/get"
	modify := func(ctx context.Context, req *netmodel.Request) (*netmodel.Request, error) {
		clone := req.Clone()
		clone.AddParam("demo", "true")
		return clone, nil
	}
	ex1, err := handler.Modify(modify, nil, 1)
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	h, err := handler.ALL("h1", contentfamily.FamilyAny, "", "", "", ex1)
	if err != nil {
		t.Fatalf("ALL: %v", err)
	}

	ic, err := New([]handler.Handler{h}, navURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fake := newFakeMainExchange(t, navURL, "application/json", []byte(`{}`))
	ic.Spawn(context.Background(), fake)
	ic.WaitInFlight()
	ic.Await(context.Background(), time.Second)

	if fake.fulfilled == nil {
		t.Fatal("expected fulfillment")
	}
	if fake.fulfilled.URL == navURL {
		t.Errorf("expected modified URL with demo param, got unchanged %q", fake.fulfilled.URL)
	}
}

func TestDuplicateSlugFailsFast(t *testing.T) {
	ret1, _ := handler.Return(1)
	ret2, _ := handler.Return(1)
	h1, _ := handler.ALL("x", contentfamily.FamilyAny, "", "", "", ret1)
	h2, _ := handler.ALL("x", contentfamily.FamilyAny, "", "", "", ret2)

	_, err := New([]handler.Handler{h1, h2}, "https://example.com/")
	if err == nil {
		t.Fatal("expected duplicate slug validation error")
	}
}

func TestFailureToFindTimesOut(t *testing.T) {
	navURL := "https://httpbin.org/html"
	allExec, _ := handler.All(nil, func(ctx context.Context, r *netmodel.Response) (*netmodel.Response, error) { return r, nil }, 1, 1)
	h, err := handler.ALL("nowhere", contentfamily.FamilyJSON, "", "https://nowhere/", "", allExec)
	if err != nil {
		t.Fatalf("ALL: %v", err)
	}

	ic, err := New([]handler.Handler{h}, navURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fake := newFakeMainExchange(t, navURL, "text/html", []byte("<html></html>"))
	ic.Spawn(context.Background(), fake)
	ic.WaitInFlight()

	start := time.Now()
	outcomes := ic.Await(context.Background(), 200*time.Millisecond)
	elapsed := time.Since(start)

	if len(outcomes) != 1 || outcomes[0].Success {
		t.Fatalf("expected single Failed outcome, got %+v", outcomes)
	}
	if elapsed < 190*time.Millisecond {
		t.Errorf("expected Await to wait out the timeout, elapsed = %v", elapsed)
	}
	if len(outcomes[0].RejectedResponses) < 1 {
		t.Error("expected at least one rejected response")
	}
}

func TestBodyFetchErrorRejectsWithNilResponse(t *testing.T) {
	navURL := "https://example.com/"
	ret, _ := handler.Return(1)
	h, _ := handler.MAIN("", contentfamily.FamilyAny, "", &ret)

	ic, err := New([]handler.Handler{h}, navURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req, _ := netmodel.NewRequest(navURL, netmodel.MethodGET, nil, nil, nil)
	fake := &fakeExchange{req: req, isMain: true, supportsModification: true, fetchErr: context.DeadlineExceeded}

	ic.Spawn(context.Background(), fake)
	ic.WaitInFlight()
	outcomes := ic.Await(context.Background(), 100*time.Millisecond)

	if outcomes[0].Success {
		t.Fatal("expected Failed outcome when body fetch errors")
	}
	if !fake.bypassed {
		t.Error("expected Bypass to be called after fetch error")
	}
	if len(outcomes[0].RejectedResponses) != 1 || outcomes[0].RejectedResponses[0] != nil {
		t.Errorf("expected one nil rejected response, got %v", outcomes[0].RejectedResponses)
	}
}

func TestUnsupportedSchemeBypassesWithoutAccounting(t *testing.T) {
	navURL := "chrome-extension://abc/page"
	ret, _ := handler.Return(1)
	h, _ := handler.MAIN("", contentfamily.FamilyAny, "", &ret)

	ic, err := New([]handler.Handler{h}, navURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req, _ := netmodel.NewRequest(navURL, netmodel.MethodGET, nil, nil, nil)
	fake := &fakeExchange{req: req, isMain: true, supportsModification: false}

	ic.Spawn(context.Background(), fake)
	ic.WaitInFlight()

	if !fake.bypassed {
		t.Error("expected Bypass for unsupported scheme")
	}

	outcomes := ic.Await(context.Background(), 50*time.Millisecond)
	if outcomes[0].Success {
		t.Error("handler should not have captured a bypassed exchange")
	}
}
