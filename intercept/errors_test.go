package intercept

import (
	"errors"
	"testing"
)

func TestInterceptErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewInterceptError(ErrCodeBodyFetchFailed, "fetch failed", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	want := "BODY_FETCH_FAILED: fetch failed: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestInterceptErrorNoCause(t *testing.T) {
	err := NewInterceptError(ErrCodeNoHandlers, "at least one handler is required", nil)
	want := "NO_HANDLERS: at least one handler is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewRejectsEmptyHandlers(t *testing.T) {
	_, err := New(nil, "https://example.com/")
	var ie *InterceptError
	if !errors.As(err, &ie) || ie.Code != ErrCodeNoHandlers {
		t.Fatalf("expected InterceptError with code %s, got %v", ErrCodeNoHandlers, err)
	}
}
