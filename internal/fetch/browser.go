package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	appLog "steinbockcal/internal/log"
)

// BrowserFetcher loads the page in headless Chromium and returns the
// rendered DOM. It is meant for published sheets whose table is only
// complete after scripts ran.
type BrowserFetcher struct {
	timeout  time.Duration
	waitFor  string
	execPath string
}

// BrowserOptions tunes a BrowserFetcher. Zero values select the defaults.
type BrowserOptions struct {
	Timeout time.Duration
	// WaitFor is a CSS selector that must be ready before the DOM is read.
	WaitFor string
	// ExecPath overrides the Chromium binary lookup.
	ExecPath string
}

// NewBrowserFetcher returns a BrowserFetcher. A zero Timeout means 30s and
// an empty WaitFor waits for the body element.
func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	f := &BrowserFetcher{
		timeout:  opts.Timeout,
		waitFor:  opts.WaitFor,
		execPath: opts.ExecPath,
	}
	if f.timeout <= 0 {
		f.timeout = 30 * time.Second
	}
	if f.waitFor == "" {
		f.waitFor = "body"
	}
	return f
}

// Fetch starts a headless Chromium for this call, navigates to src and
// returns the rendered document's outer HTML. ctx and the fetcher timeout
// both bound the whole browser session.
func (f *BrowserFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("source URL is empty")
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if f.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.execPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, timeoutCancel := context.WithTimeout(browserCtx, f.timeout)
	defer timeoutCancel()

	appLog.Debug("browser fetch start", "url", RedactURL(src), "wait_for", f.waitFor)

	var doc string
	tasks := chromedp.Tasks{
		chromedp.Navigate(src),
		chromedp.WaitReady(f.waitFor, chromedp.ByQuery),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, tasks); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, f.timeout, err)
		}
		return nil, fmt.Errorf("chromedp run failed: %w", err)
	}

	appLog.Debug("browser fetch success", "url", RedactURL(src), "bytes", len(doc))
	return []byte(doc), nil
}
