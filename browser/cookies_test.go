package browser

import (
	"reflect"
	"testing"
)

func TestDefaultCookieParserSplit(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "session=abc123; Path=/", []string{"session=abc123; Path=/"}},
		{"two cookies no dates", "a=1, b=2", []string{"a=1", "b=2"}},
		{
			"expires comma misparsed",
			"a=1; Expires=Wed, 21 Oct 2026 07:28:00 GMT",
			[]string{"a=1; Expires=Wed", "21 Oct 2026 07:28:00 GMT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultCookieParser.Split(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitCookiePair(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantName  string
		wantValue string
		wantOK    bool
	}{
		{"simple", "session=abc123", "session", "abc123", true},
		{"with attributes", "session=abc123; Path=/; HttpOnly", "session", "abc123", true},
		{"no equals", "malformed", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value, ok := splitCookiePair(tt.raw)
			if ok != tt.wantOK || name != tt.wantName || value != tt.wantValue {
				t.Errorf("splitCookiePair(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.raw, name, value, ok, tt.wantName, tt.wantValue, tt.wantOK)
			}
		})
	}
}
