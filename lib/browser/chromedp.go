package browser

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("trainslot.lib.browser")

type Options struct {
	// path to the chrome binary, empty means chromedp's default lookup
	ExecPath  string
	Headless  bool
	NoSandbox bool
	// upper bound for any single page operation
	OpTimeout time.Duration
}

// Session is the chromedp-backed Browser. One exec allocator is shared
// by all pages; each AcquirePage call opens its own tab context.
type Session struct {
	allocCtx  context.Context
	cancel    context.CancelFunc
	opTimeout time.Duration
}

func NewSession(ctx context.Context, opts Options) *Session {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	opTimeout := opts.OpTimeout
	if opTimeout == 0 {
		opTimeout = 30 * time.Second
	}
	return &Session{
		allocCtx:  allocCtx,
		cancel:    cancel,
		opTimeout: opTimeout,
	}
}

func (s *Session) AcquirePage(ctx context.Context) (Page, error) {
	ctx, span := tracer.Start(ctx, "session:AcquirePage")
	defer span.End()

	tabCtx, cancel := chromedp.NewContext(s.allocCtx)
	// an empty run starts the browser process if it isn't up yet
	err := chromedp.Run(tabCtx)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to provision page context")
		return nil, err
	}

	return &chromePage{
		ctx:       tabCtx,
		cancel:    cancel,
		opTimeout: s.opTimeout,
	}, nil
}

func (s *Session) Close() error {
	s.cancel()
	return nil
}

type chromePage struct {
	ctx       context.Context
	cancel    context.CancelFunc
	opTimeout time.Duration
}

func (p *chromePage) run(ctx context.Context, name string, actions ...chromedp.Action) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	opCtx, cancel := context.WithTimeout(p.ctx, p.opTimeout)
	defer cancel()

	err := chromedp.Run(opCtx, actions...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "page operation failed")
		if opCtx.Err() != nil {
			return UpstreamUnavailable
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "page:Navigate")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	return p.run(ctx, "navigate", chromedp.Navigate(url))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	ctx, span := tracer.Start(ctx, "page:WaitVisible")
	defer span.End()
	span.SetAttributes(attribute.String("selector", selector))

	return p.run(ctx, "wait_visible", chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	ctx, span := tracer.Start(ctx, "page:Click")
	defer span.End()
	span.SetAttributes(attribute.String("selector", selector))

	return p.run(ctx, "click", chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	ctx, span := tracer.Start(ctx, "page:Fill")
	defer span.End()
	span.SetAttributes(attribute.String("selector", selector))

	return p.run(ctx, "fill",
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (p *chromePage) Document(ctx context.Context) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "page:Document")
	defer span.End()

	var outer string
	err := p.run(ctx, "outer_html", chromedp.OuterHTML("html", &outer, chromedp.ByQuery))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page html")
		return nil, err
	}
	return doc, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
