package browser

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/netintercept/config"
	"github.com/use-agent/netintercept/intercept"
)

// Session owns one browser instance (or a connection to one) and the
// single shared context new pages are created from. It is the API
// façade a caller constructs once and reuses across navigations.
type Session struct {
	browser    *rod.Browser
	cfg        config.BrowserConfig
	logger     *slog.Logger
	proxy      *url.URL
	httpClient *http.Client

	mu     sync.Mutex
	closed bool
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithLogger overrides the discard default logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession launches a browser (cfg.BrowserBin, when set, is the binary
// launched), connects to it, and returns a Session ready to open pages. proxy, if non-nil, is passed to
// the launcher so every page in this session egresses through it.
func NewSession(cfg config.BrowserConfig, proxy *url.URL, opts ...SessionOption) (*Session, error) {
	s := &Session{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(discardWriter{}, nil)),
		proxy:  proxy,
	}
	for _, opt := range opts {
		opt(s)
	}

	// The browser launches behind proxy via l.Proxy below, but routed
	// exchanges are refetched with net/http directly (see
	// rodExchange.Fetch) and bypass the browser process entirely, so
	// they need their own Transport configured with the same proxy.
	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	s.httpClient = &http.Client{Transport: transport}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if proxy != nil {
		l = l.Proxy(proxy.String())
	}

	if cfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
		l.Set(flags.Flag("disable-ipc-flooding-protection"))
		l.Set(flags.Flag("disable-popup-blocking"))
		l.Set(flags.Flag("disable-prompt-on-repost"))
		l.Set(flags.Flag("no-first-run"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, intercept.NewInterceptError(intercept.ErrCodeBrowserLaunch, "failed to launch browser", err)
	}
	s.logger.Info("browser launched", "control_url", controlURL)

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		return nil, intercept.NewInterceptError(intercept.ErrCodeBrowserLaunch, "failed to connect to browser", err)
	}

	return s, nil
}

// NewPage opens a fresh page under this session's shared browser context.
// When cfg.Stealth is set, Page.DirectFetch installs the stealth JS before
// it navigates, since that JS only takes effect for navigations that occur
// after it is installed.
func (s *Session) NewPage() (*Page, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("browser: session is closed")
	}
	s.mu.Unlock()

	rp, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("browser: open page: %w", err)
	}
	return newPage(rp, s.cfg, s.logger, s.httpClient), nil
}

// Close tears down the session's browser connection. Idempotent: a
// second call is a no-op. includeBrowser additionally terminates the
// browser process itself, rather than just disconnecting.
func (s *Session) Close(includeBrowser bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.browser == nil {
		return nil
	}
	if includeBrowser {
		return s.browser.Close()
	}
	return s.browser.Disconnect()
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
