// Package browsertest provides scripted Browser/Page fakes for
// exercising scrapers against fixture HTML without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"trainslot-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

// FakePage serves scripted documents. Routes maps a url to the
// successive documents returned by repeated navigations (the last
// entry is sticky); Clicks maps a selector to the successive documents
// the page shows after that control is clicked. All operations are
// recorded in Ops as "navigate <url>", "wait <sel>", "click <sel>",
// "fill <sel>=<value>".
type FakePage struct {
	Routes map[string][]string
	Clicks map[string][]string

	mu      sync.Mutex
	Ops     []string
	Closed  bool
	current string
}

func (p *FakePage) record(op string) {
	p.Ops = append(p.Ops, op)
}

func (p *FakePage) doc() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(p.current))
}

func (p *FakePage) has(selector string) bool {
	doc, err := p.doc()
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate " + url)

	queue, ok := p.Routes[url]
	if !ok || len(queue) == 0 {
		return browser.UpstreamUnavailable
	}
	p.current = queue[0]
	if len(queue) > 1 {
		p.Routes[url] = queue[1:]
	}
	return nil
}

func (p *FakePage) WaitVisible(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait " + selector)

	if !p.has(selector) {
		return browser.UpstreamUnavailable
	}
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click " + selector)

	if !p.has(selector) {
		return fmt.Errorf("click: no element matches %q", selector)
	}
	queue, ok := p.Clicks[selector]
	if ok && len(queue) > 0 {
		p.current = queue[0]
		p.Clicks[selector] = queue[1:]
	}
	return nil
}

func (p *FakePage) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("fill %s=%s", selector, value))

	if !p.has(selector) {
		return fmt.Errorf("fill: no element matches %q", selector)
	}
	return nil
}

func (p *FakePage) Document(ctx context.Context) (*goquery.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc()
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// FakeBrowser hands out pages from NewPage when set, otherwise from
// the Pages queue. Err makes every acquisition fail, simulating a
// provisioning failure.
type FakeBrowser struct {
	NewPage func() *FakePage
	Err     error

	mu       sync.Mutex
	Pages    []*FakePage
	Acquired []*FakePage
}

func (b *FakeBrowser) AcquirePage(ctx context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Err != nil {
		return nil, b.Err
	}
	var page *FakePage
	if b.NewPage != nil {
		page = b.NewPage()
	} else {
		if len(b.Pages) == 0 {
			return nil, fmt.Errorf("no pages scripted")
		}
		page = b.Pages[0]
		b.Pages = b.Pages[1:]
	}
	b.Acquired = append(b.Acquired, page)
	return page, nil
}

func (b *FakeBrowser) Close() error {
	return nil
}
