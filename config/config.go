// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for running the interception engine.
type Config struct {
	Browser BrowserConfig
	Session SessionConfig
	Debug   DebugConfig
	Log     LogConfig
}

// BrowserConfig controls the underlying go-rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth enables anti-bot-detection evasions (navigator.webdriver
	// masking, etc.) on every new page.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource type names (go-rod's
	// proto.NetworkResourceType names), loaded from
	// NETINTERCEPT_BLOCKED_RESOURCES. The browser package does not read
	// it: Page.DirectFetch blocks nothing, and every routed exchange
	// reaches the interceptor.
	BlockedResourceTypes []string
}

// SessionConfig controls navigation and interception timing.
type SessionConfig struct {
	// NavigationTimeout is loaded from NETINTERCEPT_NAV_TIMEOUT. No
	// navigation call reads it; Page.DirectFetch is bounded only by its
	// context and interceptTimeout.
	NavigationTimeout time.Duration // default: 15s

	// InterceptTimeout is the wall-clock deadline an Interceptor races
	// its completion future against.
	InterceptTimeout time.Duration // default: 30s

	// DefaultProxy is the proxy URL applied to new sessions unless
	// overridden per-session. Empty means no proxy.
	DefaultProxy string

	// TrustEnv enables the HTTPS_PROXY/HTTP_PROXY environment fallback
	// when DefaultProxy is unset (spec's proxy-configuration priority
	// order).
	TrustEnv bool // default: true

	// BodyFetchRate is the per-navigation body-fetch rate, 0 meaning
	// unpaced. Page.DirectFetch does not pass it on, so pacing applies
	// only when a caller builds an Interceptor with
	// intercept.WithBodyFetchRate itself.
	BodyFetchRate float64 // default: 0 (unbounded)

	// BodyFetchBurst is the token-bucket burst size when BodyFetchRate > 0.
	BodyFetchBurst int // default: 20
}

// DebugConfig controls diagnostic retention.
type DebugConfig struct {
	// RetainRejectedBodies is the setting for keeping response bodies on
	// the interceptor's rejected list. Page.DirectFetch does not pass it
	// on, so bodies are kept only when a caller builds an Interceptor with
	// intercept.WithDebug(true) itself.
	RetainRejectedBodies bool // default: false
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"; default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:   envBoolOr("NETINTERCEPT_HEADLESS", true),
			NoSandbox:  envBoolOr("NETINTERCEPT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("NETINTERCEPT_BROWSER_BIN"),
			Stealth:    envBoolOr("NETINTERCEPT_STEALTH", false),
			BlockedResourceTypes: envSliceOr("NETINTERCEPT_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Session: SessionConfig{
			NavigationTimeout: envDurationOr("NETINTERCEPT_NAV_TIMEOUT", 15*time.Second),
			InterceptTimeout:  envDurationOr("NETINTERCEPT_INTERCEPT_TIMEOUT", 30*time.Second),
			DefaultProxy:      os.Getenv("NETINTERCEPT_PROXY"),
			TrustEnv:          envBoolOr("NETINTERCEPT_TRUST_ENV", true),
			BodyFetchRate:     envFloatOr("NETINTERCEPT_BODY_FETCH_RATE", 0),
			BodyFetchBurst:    envIntOr("NETINTERCEPT_BODY_FETCH_BURST", 20),
		},
		Debug: DebugConfig{
			RetainRejectedBodies: envBoolOr("NETINTERCEPT_RETAIN_REJECTED_BODIES", false),
		},
		Log: LogConfig{
			Level:  envOr("NETINTERCEPT_LOG_LEVEL", "info"),
			Format: envOr("NETINTERCEPT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
