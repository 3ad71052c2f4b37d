// Package fetch downloads image bytes referenced by a page so they can be
// re-encoded for the model.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxBytes caps a single image body.
	DefaultMaxBytes = 20 << 20
	// DefaultRedirectHops is used when RedirectMaxHops is zero.
	DefaultRedirectHops = 5
)

var (
	// ErrUnsupportedType is returned when the response is not an image.
	ErrUnsupportedType = errors.New("unsupported content type")
	// ErrTooLarge is returned when the body exceeds MaxBytes.
	ErrTooLarge = errors.New("response too large")
	// ErrScheme rejects locators that are not http or https.
	ErrScheme = errors.New("unsupported URL scheme")
)

// Client fetches image bytes for the rasterizer. It never retries: a
// failed fetch is reported once and the caller falls back to the locator.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero leaves it to ctx.
	PerRequestTimeout time.Duration
	// MaxBytes caps the body size. Zero means DefaultMaxBytes.
	MaxBytes int64
	// RedirectMaxHops caps redirects. Zero means DefaultRedirectHops.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests. Zero means unlimited.
	MaxConcurrent int

	once  sync.Once
	slots chan struct{}
	hc    *http.Client
}

func (c *Client) init() {
	c.once.Do(func() {
		if c.MaxConcurrent > 0 {
			c.slots = make(chan struct{}, c.MaxConcurrent)
		}
		hc := http.Client{}
		if c.HTTPClient != nil {
			hc = *c.HTTPClient
		}
		hc.CheckRedirect = c.followRedirect
		c.hc = &hc
	})
}

// GetImage issues one GET and returns the body and its content type.
// Responses other than image/* (or octet-stream) are rejected.
func (c *Client) GetImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if !httpScheme(u) {
		return nil, "", fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}

	c.init()
	if err := c.acquire(ctx); err != nil {
		return nil, "", err
	}
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !imageType(ct) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	return readCapped(resp.Body, c.maxBytes(), ct)
}

func (c *Client) maxBytes() int64 {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return DefaultMaxBytes
}

func readCapped(r io.Reader, limit int64, ct string) ([]byte, string, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, "", ErrTooLarge
	}
	return b, ct, nil
}

func (c *Client) followRedirect(req *http.Request, via []*http.Request) error {
	hops := c.RedirectMaxHops
	if hops <= 0 {
		hops = DefaultRedirectHops
	}
	if len(via) >= hops {
		return fmt.Errorf("stopped after %d redirects", hops)
	}
	if !httpScheme(req.URL) {
		return fmt.Errorf("%w: redirect to %q", ErrScheme, req.URL.Scheme)
	}
	return nil
}

// acquire waits for a free slot or for ctx to end.
func (c *Client) acquire(ctx context.Context) error {
	if c.slots == nil {
		return nil
	}
	select {
	case c.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.slots != nil {
		<-c.slots
	}
}

func httpScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

// imageType accepts image/* and application/octet-stream, which CDNs often
// send for images.
func imageType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "application/octet-stream")
}
