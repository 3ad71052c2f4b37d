package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/extract"
	"github.com/hyperifyio/pagelens/internal/heuristics"
	"github.com/hyperifyio/pagelens/internal/metrics"
	"github.com/hyperifyio/pagelens/internal/page"
	"github.com/hyperifyio/pagelens/internal/raster"
	"github.com/hyperifyio/pagelens/internal/tables"
	"github.com/hyperifyio/pagelens/internal/visual"
)

// ErrNoDocument is returned when there is no page to extract from.
var ErrNoDocument = errors.New("no document")

// FullPageID identifies the viewport capture among the charts.
const FullPageID = "fullpage-screenshot"

// Orchestrator runs the extraction passes over one document.
type Orchestrator struct {
	// Extractor produces the cleaned text. Nil uses the listing summary
	// for listing pages and the heuristic cleaner with default options
	// otherwise.
	Extractor extract.Extractor
	// Raster performs captures when screenshots are requested. Nil means
	// nothing is ever captured.
	Raster *raster.Rasterizer
}

// Extract builds a snapshot of doc. Captures run only when
// includeScreenshots is true. A failing pass leaves its field empty; the
// snapshot is still returned.
func (o *Orchestrator) Extract(ctx context.Context, doc *page.Document, includeScreenshots bool) (*PageSnapshot, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	started := time.Now()
	snap := empty(doc)

	guard("title", func() { snap.Title = doc.Title() })
	guard("metadata", func() { snap.Metadata = ReadMetadata(doc) })
	guard("tables", func() { snap.Tables = tables.Extract(doc) })
	guard("charts", func() { snap.Charts = visual.DetectCharts(doc) })
	guard("images", func() { snap.Images = visual.DetectImages(doc) })

	if includeScreenshots && o.Raster != nil {
		guard("screenshots", func() { o.rasterize(ctx, doc, snap) })
	}

	guard("text", func() {
		res := o.extractor().Extract(doc)
		snap.TextContent = res.Text
		snap.ContentInfo = res.Info
	})
	if snap.ContentInfo.Source == "" {
		snap.ContentInfo.Source = heuristics.UnknownLabel
	}

	for _, e := range snap.Charts {
		metrics.ElementsDetected.WithLabelValues(string(e.Type)).Inc()
	}
	for _, e := range snap.Images {
		metrics.ElementsDetected.WithLabelValues(string(e.Type)).Inc()
	}
	metrics.ObserveExtraction(snap.ContentInfo.Source, includeScreenshots, started)
	log.Debug().
		Str("url", snap.URL).
		Int("tables", len(snap.Tables)).
		Int("charts", len(snap.Charts)).
		Int("images", len(snap.Images)).
		Int("text_len", snap.ContentInfo.Length).
		Bool("screenshots", includeScreenshots).
		Dur("took", time.Since(started)).
		Msg("page extracted")
	return snap, nil
}

func (o *Orchestrator) extractor() extract.Extractor {
	if o.Extractor != nil {
		return o.Extractor
	}
	return extract.ListingExtractor{Next: extract.HeuristicExtractor{}}
}

// rasterize captures the viewport first, then every capturable element in
// order. Each capture waits for the previous one.
func (o *Orchestrator) rasterize(ctx context.Context, doc *page.Document, snap *PageSnapshot) {
	r := o.Raster
	if shot, err := r.CaptureViewport(ctx); err == nil {
		vp := doc.Viewport()
		full := visual.Element{
			Type:        visual.KindFullPage,
			ID:          FullPageID,
			Width:       vp.W,
			Height:      vp.H,
			Context:     "full-page",
			Description: "Full page screenshot including all charts and content",
			Screenshot:  shot,
		}
		snap.Charts = append([]visual.Element{full}, snap.Charts...)
	} else if !errors.Is(err, raster.ErrNoCapturer) {
		log.Warn().Err(err).Msg("viewport capture failed")
	}

	c := &capturer{r: r, images: map[string]imageShot{}}
	for i := range snap.Charts {
		c.capture(ctx, &snap.Charts[i])
	}
	for i := range snap.Images {
		c.capture(ctx, &snap.Images[i])
	}
}

// imageShot is the outcome of one image capture, kept for reuse.
type imageShot struct {
	uri string
	ok  bool
}

// capturer runs the element captures of one rasterize call. An image
// source found by several passes is fetched once.
type capturer struct {
	r      *raster.Rasterizer
	images map[string]imageShot
}

func (c *capturer) capture(ctx context.Context, e *visual.Element) {
	if e.Screenshot != "" || !e.Capturable() {
		return
	}
	switch e.Type {
	case visual.KindCanvas:
		shot, err := c.r.CaptureCanvas(ctx, e.CaptureID)
		if err != nil {
			log.Debug().Err(err).Str("id", e.ID).Msg("canvas capture skipped")
			return
		}
		e.Screenshot = shot
	case visual.KindImage, visual.KindBackground:
		res, seen := c.images[e.Src]
		if !seen {
			res.uri, res.ok = c.r.CaptureImage(ctx, e.Src)
			c.images[e.Src] = res
		}
		if res.ok {
			e.Screenshot = res.uri
		}
	}
}

// guard runs one pass and turns a panic into an empty field.
func guard(field string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.FieldFailures.WithLabelValues(field).Inc()
			log.Warn().Str("field", field).Str("panic", fmt.Sprint(rec)).Msg("extraction pass failed")
		}
	}()
	fn()
}
