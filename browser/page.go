package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"github.com/use-agent/netintercept/config"
	"github.com/use-agent/netintercept/handler"
	"github.com/use-agent/netintercept/intercept"
	"github.com/use-agent/netintercept/netmodel"
)

// navigationError wraps a driver navigation failure with the stable
// NAVIGATION_FAILED code, independent of the in-page NetworkError used
// by InjectFetch.
func navigationError(err error) error {
	return intercept.NewInterceptError(intercept.ErrCodeNavigationFailed, "navigation to target URL failed", err)
}

// Page wraps one rod.Page and drives the two fetch styles: DirectFetch
// routes the browser's own navigation through the interceptor, and
// InjectFetch issues an in-page request without ever touching the
// interceptor.
type Page struct {
	rp     *rod.Page
	cfg    config.BrowserConfig
	logger *slog.Logger

	httpClient *http.Client
}

func newPage(rp *rod.Page, cfg config.BrowserConfig, logger *slog.Logger, httpClient *http.Client) *Page {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Page{rp: rp, cfg: cfg, logger: logger, httpClient: httpClient}
}

// NetworkError is an InjectFetch failure carrying the phase it occurred
// in. DirectFetch navigation failures are reported separately, through
// navigationError.
type NetworkError struct {
	Phase string
	Err   error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("browser: %s: %v", e.Phase, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// DirectFetch navigates the page to navigationURL with hijack routing
// installed, so every routed exchange is dispatched through an
// Interceptor built from handlers. It returns whatever outcomes the
// interceptor has when interceptTimeout elapses or completion is
// reached, whichever comes first.
func (p *Page) DirectFetch(ctx context.Context, navigationURL string, handlers []handler.Handler, interceptTimeout time.Duration) ([]handler.Outcome, error) {
	navID := uuid.New().String()
	navLogger := p.logger.With("navigation_id", navID, "url", navigationURL)

	ic, err := intercept.New(handlers, navigationURL, intercept.WithLogger(navLogger))
	if err != nil {
		return nil, fmt.Errorf("browser: build interceptor: %w", err)
	}
	navLogger.Info("navigation starting")

	if p.cfg.Stealth {
		if _, err := p.rp.EvalOnNewDocument(stealth.JS); err != nil {
			p.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	router := p.rp.HijackRequests()
	if err := router.Add("*", "", func(rh *rod.Hijack) {
		isMain := rh.Request.Type() == proto.NetworkResourceTypeDocument
		ic.Spawn(ctx, newRodExchange(rh, isMain, p.httpClient))
	}); err != nil {
		return nil, fmt.Errorf("browser: install hijack router: %w", err)
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	navCtx := p.rp.Context(ctx)
	if err := navCtx.Navigate(navigationURL); err != nil {
		return nil, navigationError(err)
	}

	outcomes := ic.Await(ctx, interceptTimeout)
	ic.WaitInFlight()
	navLogger.Info("navigation complete", "handlers", len(outcomes))
	return outcomes, nil
}

// InjectFetch performs req as an in-page fetch: it does not route
// through hijacking or the Interceptor at all, so it cannot be captured
// or modified by handlers. It exists for callers that need a response
// while sharing the page's live cookie jar and TLS fingerprint, e.g.
// authenticated XHR calls a handler chain has no reason to see.
func (p *Page) InjectFetch(ctx context.Context, req *netmodel.Request) (*netmodel.Response, *NetworkError) {
	if err := req.Method.Dispatchable(); err != nil {
		return nil, &NetworkError{Phase: "inject_fetch", Err: err}
	}

	js := `(url, method, headers, body) => fetch(url, {
		method: method,
		headers: headers,
		body: body || undefined,
		credentials: "include",
	}).then(async (res) => {
		const text = await res.text();
		const hdrs = {};
		res.headers.forEach((v, k) => { hdrs[k] = v; });
		return { status: res.status, headers: hdrs, body: text };
	})`

	headersObj := make(map[string]string, len(req.Headers))
	for k := range req.Headers {
		headersObj[k] = req.Headers.Get(k)
	}

	start := time.Now()
	res, err := p.rp.Context(ctx).Eval(js, req.RealURL(), string(req.Method), headersObj, string(req.Body))
	if err != nil {
		return nil, &NetworkError{Phase: "inject_fetch", Err: err}
	}

	status := res.Value.Get("status").Int()
	bodyStr := res.Value.Get("body").Str()

	respHeaders := make(http.Header)
	var setCookies []string
	for key, v := range res.Value.Get("headers").Map() {
		val := v.Str()
		respHeaders.Add(key, val)
		if key == "set-cookie" {
			setCookies = DefaultCookieParser.Split(val)
		}
	}

	for _, raw := range setCookies {
		p.applySetCookie(ctx, req.RealURL(), raw)
	}

	return &netmodel.Response{
		Status:          status,
		RequestHeaders:  req.Headers.Clone(),
		ResponseHeaders: respHeaders,
		Content:         []byte(bodyStr),
		Duration:        time.Since(start),
		URL:             req.RealURL(),
	}, nil
}

// splitCookiePair extracts the name=value pair from one Set-Cookie
// entry, discarding attributes (Path, Domain, Expires, ...).
func splitCookiePair(raw string) (name, value string, ok bool) {
	firstAttr, _, _ := strings.Cut(raw, ";")
	name, value, found := strings.Cut(firstAttr, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), true
}

func (p *Page) applySetCookie(ctx context.Context, reqURL, raw string) {
	name, value, ok := splitCookiePair(raw)
	if !ok {
		return
	}
	domain := ""
	if u, err := url.Parse(reqURL); err == nil {
		domain = u.Host
	}
	_, err := proto.NetworkSetCookie{
		Name:   name,
		Value:  value,
		Domain: domain,
		Path:   "/",
	}.Call(p.rp)
	if err != nil {
		p.logger.Warn("set-cookie apply failed", "name", name, "error", err)
	}
}

// Close navigates the page to about:blank to release DOM memory before
// returning it, matching the defer-first cleanup idiom of reused pages.
func (p *Page) Close() error {
	if err := p.rp.Navigate("about:blank"); err != nil {
		return fmt.Errorf("browser: cleanup navigate: %w", err)
	}
	return nil
}
