// Command interceptdemo is a minimal usage example of the interception
// engine: it opens one page, installs a couple of handlers, navigates,
// and prints the captured outcomes.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/use-agent/netintercept/browser"
	"github.com/use-agent/netintercept/config"
	"github.com/use-agent/netintercept/contentfamily"
	"github.com/use-agent/netintercept/handler"
	"github.com/use-agent/netintercept/netmodel"
)

func main() {
	cfg := config.Load()
	initLogger(cfg.Log)

	navigationURL := "https://example.com/"
	if len(os.Args) > 1 {
		navigationURL = os.Args[1]
	}

	proxy, err := browser.ParseProxy(cfg.Session.DefaultProxy, cfg.Session.TrustEnv)
	if err != nil {
		slog.Error("failed to parse proxy", "error", err)
		os.Exit(1)
	}

	sess, err := browser.NewSession(cfg.Browser, proxy, browser.WithLogger(slog.Default()))
	if err != nil {
		slog.Error("failed to launch browser session", "error", err)
		os.Exit(1)
	}
	defer sess.Close(true)

	page, err := sess.NewPage()
	if err != nil {
		slog.Error("failed to open page", "error", err)
		os.Exit(1)
	}
	defer page.Close()

	mainDoc, err := handler.MAIN("main-document", contentfamily.FamilyHTML, netmodel.MethodAny, nil)
	if err != nil {
		slog.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	apiJSON, err := handler.SIDE("xhr-json", contentfamily.FamilyJSON, netmodel.MethodAny, "", "", mustReturn(5))
	if err != nil {
		slog.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	outcomes, err := page.DirectFetch(context.Background(), navigationURL, []handler.Handler{mainDoc, apiJSON}, cfg.Session.InterceptTimeout)
	if err != nil {
		slog.Error("direct fetch failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, o := range outcomes {
		summary := struct {
			Slug      string `json:"slug"`
			Success   bool   `json:"success"`
			Responses int    `json:"responses"`
			Rejected  int    `json:"rejected"`
		}{
			Slug:      o.Slug,
			Success:   o.Success,
			Responses: len(o.Responses),
			Rejected:  len(o.RejectedResponses),
		}
		_ = enc.Encode(summary)
	}
}

func mustReturn(maxResponses int) handler.Execute {
	ex, err := handler.Return(maxResponses)
	if err != nil {
		panic(err)
	}
	return ex
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
