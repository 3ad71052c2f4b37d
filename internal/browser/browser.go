// Package browser drives a headless Chrome tab through chromedp. It renders
// pages, annotates their layout for the extraction core and serves the
// privileged captures: viewport screenshots and canvas exports.
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/page"
	"github.com/hyperifyio/pagelens/internal/raster"
)

// ErrNotNavigated is returned before the first Navigate.
var ErrNotNavigated = errors.New("no page loaded")

// Options configures the browser session.
type Options struct {
	// RemoteURL attaches to a running Chrome DevTools endpoint instead of
	// launching one.
	RemoteURL string
	ExecPath  string
	Headless  bool
	UserAgent string
	Width     int
	Height    int
	// NavTimeout bounds one navigation.
	NavTimeout time.Duration
}

func (o Options) size() (int64, int64) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 800
	}
	return int64(w), int64(h)
}

// Session is one browser tab. Methods serialize on the tab.
type Session struct {
	opts    Options
	ctx     context.Context
	cancels []context.CancelFunc

	mu  sync.Mutex
	url string
}

// Open starts (or attaches to) Chrome and opens a tab.
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{opts: opts}
	var actx context.Context
	var cancel context.CancelFunc
	if opts.RemoteURL != "" {
		actx, cancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
		)
		if opts.UserAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
		}
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		actx, cancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}
	s.cancels = append(s.cancels, cancel)

	bctx, cancelTab := chromedp.NewContext(actx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug().Msgf(format, args...)
	}))
	s.cancels = append(s.cancels, cancelTab)
	s.ctx = bctx

	w, h := opts.size()
	if err := chromedp.Run(bctx, emulation.SetDeviceMetricsOverride(w, h, 1, false)); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// Close shuts the tab and, when launched by Open, the browser.
func (s *Session) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
}

// run executes actions on the tab, cancelled when either ctx or the
// session ends.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

// Navigate loads rawURL and waits for the body.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.NavTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.NavTimeout)
		defer cancel()
	}
	start := time.Now()
	var final string
	err := s.run(ctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&final),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	s.url = final
	log.Debug().Str("url", final).Dur("took", time.Since(start)).Msg("page loaded")
	return nil
}

// Page annotates the live DOM and returns it parsed.
func (s *Session) Page(ctx context.Context) (*page.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url == "" {
		return nil, ErrNotNavigated
	}
	var marked int
	var html string
	err := s.run(ctx,
		chromedp.Evaluate(annotateScript, &marked),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	log.Debug().Int("capture_ids", marked).Int("html_len", len(html)).Msg("page annotated")
	return page.ParseBytes([]byte(html), s.url)
}

// CaptureViewport returns the visible viewport as a PNG data URI.
func (s *Session) CaptureViewport(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url == "" {
		return "", ErrNotNavigated
	}
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = cdppage.CaptureScreenshot().WithFormat(cdppage.CaptureScreenshotFormatPng).Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("capture viewport: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf), nil
}

// CaptureCanvas exports the canvas stamped with id.
func (s *Session) CaptureCanvas(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var uri string
	if err := s.run(ctx, chromedp.Evaluate(canvasExportScript(id), &uri)); err != nil {
		return "", fmt.Errorf("export canvas %s: %w", id, err)
	}
	switch uri {
	case "":
		return "", fmt.Errorf("canvas %s not found", id)
	case taintedMarker:
		return "", raster.ErrTainted
	}
	return uri, nil
}
