package netmodel

import (
	"net/http"
	"testing"
	"time"
)

func TestNewRequestMergesURLAndExplicitParams(t *testing.T) {
	r, err := NewRequest("https://api.example.com/v1/search?q=go&page=1", MethodGET, nil,
		map[string]string{"page": "2", "limit": "50"}, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	got := r.RealURL()
	// Insertion order: q and page arrive from the URL first (in that
	// order), then explicit params merge in: page overwrites the
	// existing slot, limit is new and appended last.
	want := "https://api.example.com/v1/search?q=go&page=2&limit=50"
	if got != want {
		t.Errorf("RealURL = %q, want %q", got, want)
	}
}

func TestRequestAddParamOverwrites(t *testing.T) {
	r, err := NewRequest("https://example.com/x", MethodGET, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	r.AddParam("a", "1")
	r.AddParam("b", "2")
	r.AddParam("a", "3")

	if got, want := r.Params()["a"], "3"; got != want {
		t.Errorf("a = %q, want %q", got, want)
	}
	if len(r.paramOrder) != 2 {
		t.Errorf("paramOrder = %v, want 2 entries (no duplicate on overwrite)", r.paramOrder)
	}
}

func TestRequestAddHeaderOverwrites(t *testing.T) {
	r, err := NewRequest("https://example.com/x", MethodGET, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	r.AddHeader("X-Token", "first")
	r.AddHeader("X-Token", "second")

	if got := r.Headers.Get("X-Token"); got != "second" {
		t.Errorf("X-Token = %q, want %q", got, "second")
	}
}

func TestRequestBaseURLDropsQuery(t *testing.T) {
	r, err := NewRequest("https://example.com/path?x=1", MethodGET, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if got, want := r.BaseURL(), "https://example.com/path"; got != want {
		t.Errorf("BaseURL = %q, want %q", got, want)
	}
}

func TestRequestCloneIsIndependent(t *testing.T) {
	r, err := NewRequest("https://example.com/x?a=1", MethodGET, http.Header{"X-A": []string{"1"}}, nil, []byte("body"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	clone := r.Clone()
	clone.AddParam("a", "2")
	clone.AddHeader("X-A", "2")
	clone.Body[0] = 'B'

	if got := r.Params()["a"]; got != "1" {
		t.Errorf("original mutated: a = %q, want 1", got)
	}
	if got := r.Headers.Get("X-A"); got != "1" {
		t.Errorf("original header mutated: X-A = %q, want 1", got)
	}
	if r.Body[0] != 'b' {
		t.Errorf("original body mutated: %q", r.Body)
	}
}

func TestMethodDispatchable(t *testing.T) {
	if err := MethodGET.Dispatchable(); err != nil {
		t.Errorf("GET should be dispatchable: %v", err)
	}
	if err := MethodAny.Dispatchable(); err == nil {
		t.Error("ANY should not be dispatchable")
	}
	if err := HTTPMethod("BOGUS").Dispatchable(); err == nil {
		t.Error("unknown method should not be dispatchable")
	}
}

func TestResponseContentParse(t *testing.T) {
	resp := &Response{
		Status:          200,
		ResponseHeaders: http.Header{"Content-Type": []string{"application/json"}},
		Content:         []byte(`{"ok":true}`),
		Duration:        150 * time.Millisecond,
		URL:             "https://example.com/api",
	}

	val, family, err := resp.ContentParse()
	if err != nil {
		t.Fatalf("ContentParse: %v", err)
	}
	if family.String() != "json" {
		t.Errorf("family = %v, want json", family)
	}
	obj, ok := val.(map[string]any)
	if !ok || obj["ok"] != true {
		t.Errorf("value = %v, want {ok:true}", val)
	}
}

func TestResponseCloneIsIndependent(t *testing.T) {
	resp := &Response{
		ResponseHeaders: http.Header{"X-A": []string{"1"}},
		Content:         []byte("abc"),
	}
	clone := resp.Clone()
	clone.ResponseHeaders.Set("X-A", "2")
	clone.Content[0] = 'Z'

	if resp.ResponseHeaders.Get("X-A") != "1" {
		t.Error("original response headers mutated")
	}
	if resp.Content[0] != 'a' {
		t.Error("original response content mutated")
	}
}
