//go:build js && wasm

// Build with:
//
//	GOOS=js GOARCH=wasm go build -o lazyimg.wasm ./cmd/lazyimg-wasm

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"syscall/js"
	"time"

	"github.com/daxnoob/lazyimg"
	"github.com/daxnoob/lazyimg/internal/config"
	"github.com/daxnoob/lazyimg/pkg/dom/jsdom"
	"github.com/daxnoob/lazyimg/pkg/eventloop"
	"github.com/daxnoob/lazyimg/pkg/navigation"
	"github.com/daxnoob/lazyimg/pkg/retry"
)

const settingsTimeout = 2 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// JavaScript callbacks and goroutines share the page's single thread.
	cfg := lazyimg.Config{Logger: logger, Dispatcher: eventloop.Inline{}}
	var probeOpts []retry.HTTPProberOption
	if origin, err := url.Parse(js.Global().Get("location").Get("origin").String()); err == nil {
		probeOpts = append(probeOpts, retry.WithBaseURL(origin))
		if cc, ok := fetchSettings(origin, logger); ok {
			applySettings(&cfg, cc)
		}
	}
	cfg.Prober = retry.NewHTTPProber(probeOpts...)

	doc := jsdom.NewDocument()
	enh := lazyimg.New(cfg)

	var nav navigation.Stream
	if n, ok := jsdom.NewNavigation(); ok {
		nav = n
	}
	enh.Start(doc, doc, nav)

	select {}
}

// fetchSettings reads the settings `lazyimg serve` publishes. Static hosts
// without it keep the defaults.
func fetchSettings(origin *url.URL, logger *slog.Logger) (config.ClientConfig, bool) {
	var cc config.ClientConfig

	ctx, cancel := context.WithTimeout(context.Background(), settingsTimeout)
	defer cancel()

	u := origin.ResolveReference(&url.URL{Path: config.ClientPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return cc, false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Debug("settings unavailable", "error", err)
		return cc, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cc, false
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		logger.Warn("settings malformed", "error", err)
		return cc, false
	}
	return cc, true
}

func applySettings(cfg *lazyimg.Config, cc config.ClientConfig) {
	// Config treats zero as "default"; an explicit 0 disables retries.
	cfg.MaxRetries = cc.MaxRetries
	if cc.MaxRetries == 0 {
		cfg.MaxRetries = -1
	}
	cfg.BaseDelay = cc.BaseDelay.Std()
	cfg.ProbeTimeout = cc.ProbeTimeout.Std()
}
