package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/netintercept/netmodel"
)

// unsupportedSchemePrefixes lists routed URLs that cannot be refetched
// with net/http overrides. These are bypassed straight through without
// interception accounting.
var unsupportedSchemePrefixes = []string{
	"chrome-extension://",
	"devtools://",
	"chrome://",
	"about:",
	"data:",
	"blob:",
}

// rodExchange adapts one *rod.Hijack callback invocation to the
// intercept.Exchange seam, so the interceptor core never imports rod
// directly.
type rodExchange struct {
	hijack     *rod.Hijack
	isMain     bool
	httpClient *http.Client
}

func newRodExchange(hijack *rod.Hijack, isMain bool, httpClient *http.Client) *rodExchange {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &rodExchange{hijack: hijack, isMain: isMain, httpClient: httpClient}
}

func (e *rodExchange) Request() *netmodel.Request {
	req := e.hijack.Request
	headers := make(http.Header, len(req.Headers()))
	for k, v := range req.Headers() {
		headers.Set(k, toHeaderValue(v))
	}
	body := []byte(req.Body())

	r, err := netmodel.NewRequest(req.URL().String(), netmodel.HTTPMethod(req.Method()), headers, nil, body)
	if err != nil {
		// A routed request always carries a URL the browser itself
		// already resolved; a parse failure here would mean rod
		// handed us something malformed. Fall back rather than
		// panic the route goroutine.
		r, _ = netmodel.NewRequest("about:blank", netmodel.HTTPMethod(req.Method()), headers, nil, body)
	}
	return r
}

func (e *rodExchange) IsMainDocument() bool { return e.isMain }

func (e *rodExchange) SupportsModification() bool {
	u := e.hijack.Request.URL().String()
	for _, prefix := range unsupportedSchemePrefixes {
		if strings.HasPrefix(u, prefix) {
			return false
		}
	}
	return true
}

func (e *rodExchange) Fetch(ctx context.Context, req *netmodel.Request) (*netmodel.Response, error) {
	if err := req.Method.Dispatchable(); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = strings.NewReader(string(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.RealURL(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("browser: build request: %w", err)
	}
	httpReq.Header = req.Headers.Clone()

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("browser: read body: %w", err)
	}

	// httpReq.Header forwards the routed request's real Accept-Encoding,
	// so resp.Body arrives exactly as the origin sent it on the wire and
	// must be decompressed by hand before handlers or contentfamily see
	// it.
	encoding := resp.Header.Get("Content-Encoding")
	content, err = decodeContentEncoding(encoding, content)
	if err != nil {
		return nil, fmt.Errorf("browser: decode content-encoding %q: %w", encoding, err)
	}
	if encoding != "" {
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
	}

	return &netmodel.Response{
		Status:          resp.StatusCode,
		RequestHeaders:  httpReq.Header,
		ResponseHeaders: resp.Header,
		Content:         content,
		Duration:        time.Since(start),
		URL:             req.RealURL(),
	}, nil
}

func (e *rodExchange) Fulfill(ctx context.Context, resp *netmodel.Response) error {
	body := resp.Content
	e.hijack.Response.Payload().ResponseCode = resp.Status
	e.hijack.Response.Payload().ResponsePhrase = http.StatusText(resp.Status)
	e.hijack.Response.SetHeader(flattenHeaders(resp.ResponseHeaders)...)
	e.hijack.Response.SetBody(body)
	return nil
}

func (e *rodExchange) Bypass(ctx context.Context) error {
	return e.hijack.ContinueRequest(&proto.FetchContinueRequest{})
}

// toHeaderValue converts one CDP header entry to a plain string. rod
// represents request headers as proto.NetworkHeaders
// (map[string]gson.JSON) since a header value arrives as JSON off the
// wire; interception only ever deals in plain strings, matching the
// teacher's own toHeadersMap conversion in the opposite direction.
func toHeaderValue(v gson.JSON) string {
	return v.Str()
}

func flattenHeaders(h http.Header) []string {
	kv := make([]string, 0, len(h)*2)
	for k, vs := range h {
		for _, v := range vs {
			kv = append(kv, k, v)
		}
	}
	return kv
}
