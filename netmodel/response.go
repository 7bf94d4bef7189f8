package netmodel

import (
	"net/http"
	"time"

	"github.com/use-agent/netintercept/contentfamily"
)

// Response is the immutable record of a completed HTTP exchange (C3).
// Handlers read it during the response-capture phase; RESPONSE_MODIFY
// handlers may replace Content/ResponseHeaders/Status wholesale but the
// replacement is still wrapped back into a Response by the interceptor.
type Response struct {
	Status int

	RequestHeaders  http.Header
	ResponseHeaders http.Header

	Content []byte

	Duration time.Duration
	URL      string
}

// ContentParse decodes Content according to the Content-Type declared in
// ResponseHeaders, falling back to sniffing when absent or generic
// (contentfamily.Decode). The family is returned alongside the value so
// callers can branch without re-parsing the Content-Type header.
func (r *Response) ContentParse() (any, contentfamily.Family, error) {
	ct := r.ResponseHeaders.Get("Content-Type")
	return contentfamily.Decode(ct, r.Content)
}

// ContentFamily classifies the response's declared/sniffed Content-Type
// without decoding the body, useful for handler should_capture predicates
// that only need the family (Handler.MAIN default families).
func (r *Response) ContentFamily() contentfamily.Family {
	raw := r.ResponseHeaders.Get("Content-Type")
	ct := contentfamily.ParseContentType(raw)
	ct = contentfamily.Sniff(ct, r.Content)
	return contentfamily.Classify(ct)
}

// Clone returns a copy whose header maps and body are independent of r,
// safe to hand to a RESPONSE_MODIFY handler that may mutate in place.
func (r *Response) Clone() *Response {
	clone := &Response{
		Status:   r.Status,
		Duration: r.Duration,
		URL:      r.URL,
	}
	if r.RequestHeaders != nil {
		clone.RequestHeaders = r.RequestHeaders.Clone()
	}
	if r.ResponseHeaders != nil {
		clone.ResponseHeaders = r.ResponseHeaders.Clone()
	}
	if r.Content != nil {
		clone.Content = append([]byte(nil), r.Content...)
	}
	return clone
}
