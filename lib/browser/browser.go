// Package browser owns the headless browser used to drive the remote
// sign-up site. Consumers only see the Browser/Page contracts; the
// chromedp implementation lives behind them so scrapers can be tested
// against fixture documents.
package browser

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// UpstreamUnavailable reports that the remote site could not be
// reached or an expected element never appeared.
var UpstreamUnavailable = fmt.Errorf("upstream site unavailable")

// Page is one isolated tab. Every method blocks until the remote
// render/navigation event it waits on has settled. Close must be
// called on every exit path.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the selector matches a visible node,
	// or fails with UpstreamUnavailable on timeout.
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	// Document snapshots the current DOM for rule-based extraction.
	Document(ctx context.Context) (*goquery.Document, error)
	Close() error
}

// Browser hands out isolated page contexts. A provisioning failure is
// a normal error, never a panic.
type Browser interface {
	AcquirePage(ctx context.Context) (Page, error)
	Close() error
}
