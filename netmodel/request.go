package netmodel

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
)

// Request is the mutable record of an outgoing HTTP exchange (C2). It is
// mutable during the modification phase and must not carry MethodAny once
// handed to Exchange.Fetch.
type Request struct {
	baseURL string // scheme://host/path, no query, no fragment-altering params field
	scheme  string
	host    string
	path    string
	query   string // fragment is dropped like the original (real_url never round-trips it)

	Method  HTTPMethod
	Headers http.Header
	Body    []byte

	params     map[string]string
	paramOrder []string // insertion order, so RealURL is stable across reads
}

// NewRequest builds a Request from a raw URL, merging any URL-embedded
// query parameters into params with explicit params taking precedence on
// key collision, per original_source/models.py's __post_init__.
func NewRequest(rawURL string, method HTTPMethod, headers http.Header, params map[string]string, body []byte) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	r := &Request{
		baseURL: (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String(),
		query:   u.RawQuery,
		scheme:  u.Scheme,
		host:    u.Host,
		path:    u.Path,
		Method:  method,
		Headers: headers,
		Body:    body,
		params:  map[string]string{},
	}
	if r.Headers == nil {
		r.Headers = http.Header{}
	}

	// URL-embedded params first (preserving their order), then explicit
	// params override by key without disturbing already-seen order.
	for _, kv := range strings.Split(u.RawQuery, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		k, errK := url.QueryUnescape(k)
		v, errV := url.QueryUnescape(v)
		if errK != nil || errV != nil {
			continue
		}
		r.setParam(k, v)
	}
	for k, v := range params {
		r.setParam(k, v)
	}

	return r, nil
}

func (r *Request) setParam(k, v string) {
	if _, exists := r.params[k]; !exists {
		r.paramOrder = append(r.paramOrder, k)
	}
	r.params[k] = v
}

// AddHeader sets a header, overwriting any existing value for the key.
func (r *Request) AddHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}
	r.Headers.Set(key, value)
}

// AddParam sets a query parameter, overwriting any existing value and
// appending to the stable key order only on first insertion.
func (r *Request) AddParam(key, value string) {
	r.setParam(key, value)
}

// Params returns a copy of the current parameters. The copy is a plain
// map and carries no order; RealURL is the insertion-ordered form.
func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// BaseURL returns the URL without query parameters.
func (r *Request) BaseURL() string {
	u := url.URL{Scheme: r.scheme, Host: r.host, Path: r.path}
	return u.String()
}

// RealURL recomputes base + encoded query on every call; it is stable
// across reads as long as params are unchanged. The query string is
// built directly from paramOrder rather than url.Values.Encode, which
// always sorts keys alphabetically and would silently discard the
// insertion order paramOrder exists to preserve.
func (r *Request) RealURL() string {
	if len(r.paramOrder) == 0 {
		return r.BaseURL()
	}

	var query strings.Builder
	for i, k := range r.paramOrder {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(k))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(r.params[k]))
	}
	u := url.URL{Scheme: r.scheme, Host: r.host, Path: r.path, RawQuery: query.String()}
	return u.String()
}

// SetBodyJSON serialises v with sonic and sets it as the request body,
// also setting a JSON Content-Type header if none is set.
func (r *Request) SetBodyJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	r.Body = data
	if r.Headers.Get("Content-Type") == "" {
		r.AddHeader("Content-Type", "application/json")
	}
	return nil
}

// Clone returns a deep-enough copy safe for a transformer to mutate
// without affecting the interceptor's working copy until it is accepted.
func (r *Request) Clone() *Request {
	clone := &Request{
		baseURL:    r.baseURL,
		scheme:     r.scheme,
		host:       r.host,
		path:       r.path,
		query:      r.query,
		Method:     r.Method,
		Headers:    r.Headers.Clone(),
		params:     make(map[string]string, len(r.params)),
		paramOrder: append([]string(nil), r.paramOrder...),
	}
	for k, v := range r.params {
		clone.params[k] = v
	}
	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}
	return clone
}
