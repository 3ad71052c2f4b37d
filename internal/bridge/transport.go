package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hyperifyio/pagelens/internal/snapshot"
)

// ErrNoScreenshot is returned when the capture layer answered with null.
var ErrNoScreenshot = errors.New("screenshot unavailable")

// Transport delivers one message and returns its reply.
type Transport interface {
	Send(ctx context.Context, msg []byte) ([]byte, error)
}

// Local delivers messages to an in-process handler.
type Local struct {
	Handler *Handler
}

func (l Local) Send(ctx context.Context, msg []byte) ([]byte, error) {
	if l.Handler == nil {
		return nil, errors.New("no handler")
	}
	return l.Handler.Handle(ctx, msg), nil
}

// HTTP posts messages to a bridge server's /message endpoint.
type HTTP struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (t HTTP) Send(ctx context.Context, msg []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/message", bytes.NewReader(msg))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return b, nil
}

// Capturer asks the privileged layer for a viewport capture over a
// Transport. Only one request is in flight at a time.
type Capturer struct {
	Transport Transport

	mu sync.Mutex
}

func (c *Capturer) CaptureViewport(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply, err := c.Transport.Send(ctx, encode(Request{Action: ActionCaptureScreenshot}))
	if err != nil {
		return "", err
	}
	var resp ScreenshotResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		return "", fmt.Errorf("decode screenshot reply: %w", err)
	}
	if resp.Screenshot == nil || *resp.Screenshot == "" {
		return "", ErrNoScreenshot
	}
	return *resp.Screenshot, nil
}

// Extract requests a snapshot over t.
func Extract(ctx context.Context, t Transport, includeScreenshots bool) (*snapshot.PageSnapshot, error) {
	reply, err := t.Send(ctx, encode(Request{Action: ActionExtractContent, IncludeScreenshots: includeScreenshots}))
	if err != nil {
		return nil, err
	}
	var resp ExtractResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("decode extract reply: %w", err)
	}
	if !resp.Success || resp.Data == nil {
		if resp.Error == "" {
			resp.Error = "extraction failed"
		}
		return nil, errors.New(resp.Error)
	}
	return resp.Data, nil
}

// Client is the chat side's view of the extraction core.
type Client struct {
	Transport Transport
}

// Extract requests a snapshot of the current page.
func (c Client) Extract(ctx context.Context, includeScreenshots bool) (*snapshot.PageSnapshot, error) {
	return Extract(ctx, c.Transport, includeScreenshots)
}
