package raster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/metrics"
)

// DefaultImageTimeout bounds a single <img> capture.
const DefaultImageTimeout = 5 * time.Second

var (
	// ErrTainted reports a canvas whose pixels cannot be exported.
	ErrTainted = errors.New("canvas is tainted")
	// ErrNoCapturer reports a capture kind with no backing collaborator.
	ErrNoCapturer = errors.New("no capturer configured")
)

// CanvasCapturer exports a live canvas as a data URI. id is the element's
// capture id as stamped by the browser.
type CanvasCapturer interface {
	CaptureCanvas(ctx context.Context, id string) (string, error)
}

// ViewportCapturer captures the visible viewport as a data URI.
type ViewportCapturer interface {
	CaptureViewport(ctx context.Context) (string, error)
}

// ImageFetcher downloads image bytes. *fetch.Client satisfies it.
type ImageFetcher interface {
	GetImage(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Rasterizer runs captures and compresses their output. Any collaborator
// may be nil; the matching capture then fails with ErrNoCapturer.
type Rasterizer struct {
	Canvas   CanvasCapturer
	Viewport ViewportCapturer
	Images   ImageFetcher

	Compressor   Compressor
	ImageTimeout time.Duration
}

// CaptureCanvas exports and compresses one canvas.
func (r *Rasterizer) CaptureCanvas(ctx context.Context, id string) (string, error) {
	if r.Canvas == nil {
		return "", ErrNoCapturer
	}
	if id == "" {
		return "", fmt.Errorf("canvas has no capture id")
	}
	raw, err := r.Canvas.CaptureCanvas(ctx, id)
	if err != nil {
		metrics.ObserveCapture("canvas", metrics.OutcomeFailed)
		return "", err
	}
	out, err := r.Compressor.CompressDataURI(raw, QualityCapture)
	if err != nil {
		metrics.ObserveCapture("canvas", metrics.OutcomeFailed)
		return "", fmt.Errorf("compress canvas: %w", err)
	}
	metrics.ObserveCapture("canvas", metrics.OutcomeOK)
	return out, nil
}

// CaptureViewport captures and compresses the current viewport.
func (r *Rasterizer) CaptureViewport(ctx context.Context) (string, error) {
	if r.Viewport == nil {
		return "", ErrNoCapturer
	}
	raw, err := r.Viewport.CaptureViewport(ctx)
	if err != nil {
		metrics.ObserveCapture("viewport", metrics.OutcomeFailed)
		return "", err
	}
	if raw == "" {
		metrics.ObserveCapture("viewport", metrics.OutcomeFailed)
		return "", errors.New("empty viewport capture")
	}
	out, err := r.Compressor.CompressDataURI(raw, QualityCapture)
	if err != nil {
		metrics.ObserveCapture("viewport", metrics.OutcomeFailed)
		return "", fmt.Errorf("compress viewport: %w", err)
	}
	metrics.ObserveCapture("viewport", metrics.OutcomeOK)
	return out, nil
}

// CaptureImage rasterizes an image source. On success it returns the
// compressed data URI and true. On any failure, including the timeout, it
// returns src unchanged and false.
func (r *Rasterizer) CaptureImage(ctx context.Context, src string) (string, bool) {
	timeout := r.ImageTimeout
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		uri string
		err error
	}
	done := make(chan result, 1)
	go func() {
		uri, err := r.loadImage(ctx, src)
		done <- result{uri, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			log.Debug().Err(res.err).Str("src", src).Msg("image capture fell back to source")
			metrics.ObserveCapture("image", metrics.OutcomeFallback)
			return src, false
		}
		metrics.ObserveCapture("image", metrics.OutcomeOK)
		return res.uri, true
	case <-ctx.Done():
		log.Debug().Str("src", src).Dur("timeout", timeout).Msg("image capture timed out")
		metrics.ObserveCapture("image", metrics.OutcomeTimeout)
		return src, false
	}
}

func (r *Rasterizer) loadImage(ctx context.Context, src string) (string, error) {
	if IsDataURI(src) {
		return r.Compressor.CompressDataURI(src, QualityImage)
	}
	if r.Images == nil {
		return "", ErrNoCapturer
	}
	b, _, err := r.Images.GetImage(ctx, src)
	if err != nil {
		return "", err
	}
	return r.Compressor.Compress(b, QualityImage)
}
