package handler

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/use-agent/netintercept/contentfamily"
	"github.com/use-agent/netintercept/netmodel"
)

// Scope is where in the exchange stream a Handler is allowed to match.
type Scope int

const (
	// ScopeMain matches only the top-level navigation document.
	ScopeMain Scope = iota
	// ScopeSide matches only subresources of the navigation.
	ScopeSide
	// ScopeAll matches both.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeMain:
		return "Main"
	case ScopeSide:
		return "Side"
	case ScopeAll:
		return "All"
	default:
		return "unknown"
	}
}

// MainContentFamilies is the set of content families a ScopeMain handler
// can match at all; a non-Any ExpectedContent narrows it further to that
// one family. Whether "image" belongs
// in this default set is debatable, so it is a package variable rather
// than a constant — callers needing a different default may reassign it
// before constructing handlers.
var MainContentFamilies = map[contentfamily.Family]bool{
	contentfamily.FamilyJSON:  true,
	contentfamily.FamilyHTML:  true,
	contentfamily.FamilyImage: true,
}

var slugCounter atomic.Uint64

func nextSlug(prefix string) string {
	n := slugCounter.Add(1)
	return fmt.Sprintf("%s-%d", prefix, n)
}

// Handler is the immutable predicate + execution policy unit (C4).
type Handler struct {
	Slug            string
	Scope           Scope
	ExpectedContent contentfamily.Family
	Method          netmodel.HTTPMethod
	StartsWithURL   string
	EndsWithURL     string
	Execute         Execute
}

// MAIN builds a handler scoped to the top-level navigation document.
// expectedContent defaults to FamilyAny, method to MethodAny, and
// execute to Return(1) when the zero value is supplied.
func MAIN(slug string, expectedContent contentfamily.Family, method netmodel.HTTPMethod, execute *Execute) (Handler, error) {
	if slug == "" {
		slug = nextSlug("main")
	}
	if expectedContent == contentfamily.FamilyUnknown {
		expectedContent = contentfamily.FamilyAny
	}
	if method == "" {
		method = netmodel.MethodAny
	}
	ex := execute
	if ex == nil {
		ret, err := Return(1)
		if err != nil {
			return Handler{}, err
		}
		ex = &ret
	}
	return Handler{
		Slug:            slug,
		Scope:           ScopeMain,
		ExpectedContent: expectedContent,
		Method:          method,
		Execute:         *ex,
	}, nil
}

// SIDE builds a handler scoped to subresources of the navigation.
func SIDE(slug string, expectedContent contentfamily.Family, method netmodel.HTTPMethod, startsWithURL, endsWithURL string, execute Execute) (Handler, error) {
	if slug == "" {
		slug = nextSlug("side")
	}
	if method == "" {
		method = netmodel.MethodAny
	}
	return Handler{
		Slug:            slug,
		Scope:           ScopeSide,
		ExpectedContent: expectedContent,
		Method:          method,
		StartsWithURL:   startsWithURL,
		EndsWithURL:     endsWithURL,
		Execute:         execute,
	}, nil
}

// ALL builds a handler with no scope filter, matching both the
// navigation document and its subresources.
func ALL(slug string, expectedContent contentfamily.Family, method netmodel.HTTPMethod, startsWithURL, endsWithURL string, execute Execute) (Handler, error) {
	if slug == "" {
		slug = nextSlug("all")
	}
	if method == "" {
		method = netmodel.MethodAny
	}
	return Handler{
		Slug:            slug,
		Scope:           ScopeAll,
		ExpectedContent: expectedContent,
		Method:          method,
		StartsWithURL:   startsWithURL,
		EndsWithURL:     endsWithURL,
		Execute:         execute,
	}, nil
}

// Exchange is the pure-data predicate input: the request
// URL/method plus the response headers of a completed exchange.
type Exchange struct {
	URL             string
	Method          netmodel.HTTPMethod
	ResponseHeaders map[string][]string
}

// ShouldCapture is the pure predicate driving both scope matching and
// content-family matching. It never inspects
// request-phase-only state and is safe to call from any goroutine.
func (h Handler) ShouldCapture(ex Exchange, navigationURL string) bool {
	if h.Method != netmodel.MethodAny && ex.Method != h.Method {
		return false
	}

	family := contentfamily.Classify(contentfamily.ParseContentType(firstHeader(ex.ResponseHeaders, "Content-Type")))

	switch h.Scope {
	case ScopeMain:
		if !isNavigationDocument(ex.URL, navigationURL) {
			return false
		}
		if !MainContentFamilies[family] {
			return false
		}
	case ScopeSide:
		if isNavigationDocument(ex.URL, navigationURL) {
			return false
		}
	case ScopeAll:
		// no scope filter
	}

	if h.StartsWithURL != "" && !strings.HasPrefix(ex.URL, h.StartsWithURL) {
		return false
	}
	if h.EndsWithURL != "" && !strings.HasSuffix(ex.URL, h.EndsWithURL) {
		return false
	}

	if h.ExpectedContent != contentfamily.FamilyAny && h.ExpectedContent != family {
		return false
	}

	return true
}

// AppliesToRequest is the request-phase-only applicability check used
// before invoking a request_modify transformer: URL and
// method constraints apply, but content-family matching cannot (the
// response does not exist yet).
func (h Handler) AppliesToRequest(url string, method netmodel.HTTPMethod, navigationURL string) bool {
	if h.Method != netmodel.MethodAny && method != h.Method {
		return false
	}

	switch h.Scope {
	case ScopeMain:
		if !isNavigationDocument(url, navigationURL) {
			return false
		}
	case ScopeSide:
		if isNavigationDocument(url, navigationURL) {
			return false
		}
	case ScopeAll:
	}

	if h.StartsWithURL != "" && !strings.HasPrefix(url, h.StartsWithURL) {
		return false
	}
	if h.EndsWithURL != "" && !strings.HasSuffix(url, h.EndsWithURL) {
		return false
	}

	return true
}

func isNavigationDocument(url, navigationURL string) bool {
	return url == navigationURL || strings.HasPrefix(navigationURL, url)
}

func firstHeader(headers map[string][]string, key string) string {
	for k, vs := range headers {
		if strings.EqualFold(k, key) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}
