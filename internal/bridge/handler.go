package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/metrics"
	"github.com/hyperifyio/pagelens/internal/page"
	"github.com/hyperifyio/pagelens/internal/raster"
	"github.com/hyperifyio/pagelens/internal/snapshot"
)

// PageSource yields the current page. The browser session implements it;
// tests use a static document.
type PageSource interface {
	Page(ctx context.Context) (*page.Document, error)
}

// StaticSource serves one parsed document.
type StaticSource struct {
	Doc *page.Document
}

func (s StaticSource) Page(ctx context.Context) (*page.Document, error) {
	if s.Doc == nil {
		return nil, snapshot.ErrNoDocument
	}
	return s.Doc, nil
}

// Handler answers bridge messages. Source and Orchestrator serve
// extractContent; Viewport serves captureScreenshot.
type Handler struct {
	Source       PageSource
	Orchestrator *snapshot.Orchestrator
	Viewport     raster.ViewportCapturer
}

// Handle decodes one message, dispatches on its action and returns the
// encoded response.
func (h *Handler) Handle(ctx context.Context, msg []byte) []byte {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		metrics.BridgeMessages.WithLabelValues("invalid", "error").Inc()
		return encode(ErrorResponse{Error: fmt.Sprintf("invalid message: %v", err)})
	}
	switch req.Action {
	case ActionExtractContent:
		resp := h.ExtractContent(ctx, req.IncludeScreenshots)
		metrics.BridgeMessages.WithLabelValues(req.Action, status(resp.Success)).Inc()
		return encode(resp)
	case ActionCaptureScreenshot:
		resp := h.CaptureScreenshot(ctx)
		metrics.BridgeMessages.WithLabelValues(req.Action, status(resp.Screenshot != nil)).Inc()
		return encode(resp)
	default:
		metrics.BridgeMessages.WithLabelValues("unknown", "error").Inc()
		return encode(ErrorResponse{Error: fmt.Sprintf("unknown action %q", req.Action)})
	}
}

// ExtractContent runs one extraction. Only failures before the snapshot is
// assembled are reported as unsuccessful.
func (h *Handler) ExtractContent(ctx context.Context, includeScreenshots bool) ExtractResponse {
	if h.Source == nil {
		return ExtractResponse{Error: snapshot.ErrNoDocument.Error()}
	}
	doc, err := h.Source.Page(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("page unavailable")
		return ExtractResponse{Error: err.Error()}
	}
	o := h.Orchestrator
	if o == nil {
		o = &snapshot.Orchestrator{}
	}
	snap, err := o.Extract(ctx, doc, includeScreenshots)
	if err != nil {
		return ExtractResponse{Error: err.Error()}
	}
	return ExtractResponse{Success: true, Data: snap}
}

// CaptureScreenshot returns the raw viewport capture, or a nil screenshot
// on any failure.
func (h *Handler) CaptureScreenshot(ctx context.Context) ScreenshotResponse {
	if h.Viewport == nil {
		return ScreenshotResponse{}
	}
	shot, err := h.Viewport.CaptureViewport(ctx)
	if err != nil || shot == "" {
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("viewport capture failed")
		}
		return ScreenshotResponse{}
	}
	return ScreenshotResponse{Screenshot: &shot}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
