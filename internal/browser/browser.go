// Package browser contains the headless browser drivers the scrape engine
// runs against. Every Launch starts a fresh browser process that lives for a
// single request.
package browser

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/scrape"
)

// Supported drivers.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// textSelector lists the text-bearing elements read during extraction.
const textSelector = "p, div, span, a, h1, h2, h3, h4, h5, h6, li"

// extractTextFn returns the trimmed, non-empty textContent of every element
// matching textSelector, in document order.
const extractTextFn = `() => Array.from(document.querySelectorAll("` + textSelector + `"))
	.map((el) => (el.textContent || "").trim())
	.filter((text) => text.length > 0)`

// fetchDocumentFn re-requests the current location from inside the page and
// returns its body, or "" for a non-success status.
const fetchDocumentFn = `async () => {
	const res = await fetch(location.href, { credentials: "omit" });
	return res.ok ? await res.text() : "";
}`

// Config controls browser launches.
type Config struct {
	Driver    string
	UserAgent string
	// ExecPath overrides the Chrome binary; empty uses the driver's lookup.
	ExecPath  string
	NoSandbox bool
}

// Driver is a scrape.Browser that owns process-wide resources.
type Driver interface {
	scrape.Browser
	Close()
}

// New returns the driver named by cfg.Driver. An empty name selects chromedp.
func New(cfg Config, logger *zap.Logger) (Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverChromedp:
		return NewChromedp(cfg, logger.Named("chromedp")), nil
	case DriverRod:
		return NewRod(cfg, logger.Named("rod")), nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
}

// invoke wraps a function expression so it runs as a plain expression.
func invoke(fn string) string {
	return "(" + fn + ")()"
}

// forwardCancel cancels cancel when parent is done. The returned func stops
// the forwarding.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
