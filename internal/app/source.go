package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperifyio/pagelens/internal/browser"
	"github.com/hyperifyio/pagelens/internal/page"
	"github.com/hyperifyio/pagelens/internal/raster"
)

// errNoBrowser is returned when a URL target is opened without a browser.
var errNoBrowser = errors.New("browser not started")

// isURL reports whether target should be rendered in the browser rather
// than read from disk.
func isURL(target string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return (s == "http" || s == "https") && u.Host != ""
}

// pageSource is the page the bridge handler reads: a local file parsed once,
// or the browser tab. Captures are only served for browser pages.
type pageSource struct {
	browser *browser.Session

	mu     sync.Mutex
	static *page.Document
}

// open makes target the current page.
func (p *pageSource) open(ctx context.Context, target string) error {
	if !isURL(target) {
		doc, err := readFile(target)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.static = doc
		p.mu.Unlock()
		return nil
	}
	if p.browser == nil {
		return errNoBrowser
	}
	p.mu.Lock()
	p.static = nil
	p.mu.Unlock()
	return p.browser.Navigate(ctx, target)
}

func (p *pageSource) current() (*page.Document, *browser.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.static, p.browser
}

func (p *pageSource) Page(ctx context.Context) (*page.Document, error) {
	doc, b := p.current()
	if doc != nil {
		return doc, nil
	}
	if b == nil {
		return nil, errNoBrowser
	}
	return b.Page(ctx)
}

func (p *pageSource) CaptureViewport(ctx context.Context) (string, error) {
	doc, b := p.current()
	if doc != nil || b == nil {
		return "", raster.ErrNoCapturer
	}
	return b.CaptureViewport(ctx)
}

func (p *pageSource) CaptureCanvas(ctx context.Context, id string) (string, error) {
	doc, b := p.current()
	if doc != nil || b == nil {
		return "", raster.ErrNoCapturer
	}
	return b.CaptureCanvas(ctx, id)
}

// readFile parses a local HTML file. Relative links resolve against its
// file URL.
func readFile(path string) (*page.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return page.ParseBytes(b, u.String())
}
