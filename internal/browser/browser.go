// Package browser provides an optional headless re-render fallback for
// activity pages that come back as a pre-render shell without the stats
// markup. It is only consulted when the plain HTTP fetch produced a
// document the extractor could not complete from.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/utils"
)

const defaultRenderTimeout = 30 * time.Second

// Renderer drives a headless browser to obtain fully-rendered markup.
type Renderer struct {
	allocCtx     context.Context
	allocCancel  context.CancelFunc
	timeout      time.Duration
	waitSelector string
	logger       utils.Logger
}

// NewRenderer starts a shared browser allocator. Each Render call opens
// its own tab against it. Renders are unauthenticated: session cookies
// never reach the browser process.
func NewRenderer(cfg config.BrowserConfig, userAgent string, logger utils.Logger) *Renderer {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // container environments
		chromedp.Headless,
	}
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	return &Renderer{
		allocCtx:     allocCtx,
		allocCancel:  allocCancel,
		timeout:      timeout,
		waitSelector: cfg.WaitSelector,
		logger:       logger,
	}
}

// Render navigates to url in a fresh tab and returns the rendered
// document once the body, and the configured wait selector if any, are
// present.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(r.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, r.timeout)
	defer timeoutCancel()

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tabCtx.Done():
		}
	}()

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if r.waitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(r.waitSelector))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	start := time.Now()
	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		return "", fmt.Errorf("browser render failed: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"url":      url,
		"duration": time.Since(start).String(),
		"bytes":    len(html),
	}).Debug("rendered page in headless browser")

	return html, nil
}

// Close tears down the shared allocator and any remaining tabs.
func (r *Renderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
