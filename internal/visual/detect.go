package visual

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	h "github.com/hyperifyio/pagelens/internal/heuristics"
	"github.com/hyperifyio/pagelens/internal/page"
)

// Kind is the visual element type.
type Kind string

const (
	KindCanvas     Kind = "canvas"
	KindSVG        Kind = "svg"
	KindContainer  Kind = "container"
	KindImage      Kind = "image"
	KindBackground Kind = "background-image"
	KindFullPage   Kind = "fullpage"
)

// Element is one chart-like or content-like candidate. Screenshot is set
// only when rasterization was requested and succeeded.
type Element struct {
	Type          Kind    `json:"type"`
	ID            string  `json:"id"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Context       string  `json:"context"`
	Description   string  `json:"description"`
	Screenshot    string  `json:"screenshot,omitempty"`
	Src           string  `json:"src,omitempty"`
	Alt           string  `json:"alt,omitempty"`
	Title         string  `json:"title,omitempty"`
	NaturalWidth  float64 `json:"naturalWidth,omitempty"`
	NaturalHeight float64 `json:"naturalHeight,omitempty"`
	ClassName     string  `json:"className,omitempty"`
	TextContent   string  `json:"textContent,omitempty"`
	Reason        Reason  `json:"reason,omitempty"`

	// CaptureID addresses the live element in the browser, when known.
	CaptureID string `json:"-"`
}

// Capturable reports whether a rasterizer can try this element.
func (e Element) Capturable() bool {
	switch e.Type {
	case KindCanvas:
		return true
	case KindImage, KindBackground:
		return e.Src != ""
	}
	return false
}

// DetectCharts runs the chart passes in fixed order: trading-chart
// canvases, other canvases, SVGs, labeled containers, image charts. An
// element claimed by an earlier pass is not reconsidered.
func DetectCharts(doc *page.Document) []Element {
	out := make([]Element, 0)
	seen := map[*html.Node]bool{}

	doc.Find(h.TradingChartSelector).Each(func(i int, s *goquery.Selection) {
		sz := page.CanvasSize(s)
		seen[s.Get(0)] = true
		out = append(out, Element{
			Type:        KindCanvas,
			ID:          fmt.Sprintf("pane-canvas-%d", i+1),
			Width:       sz.W,
			Height:      sz.H,
			Context:     "trading-chart",
			Description: "Trading chart pane canvas",
			Reason:      ReasonTradingChartAttr,
			CaptureID:   page.ElementID(s),
		})
	})

	doc.Find("canvas").Not(h.TradingChartSelector).Each(func(i int, s *goquery.Selection) {
		if seen[s.Get(0)] {
			return
		}
		v := ClassifyCanvas(s)
		logVerdict("canvas", i, v)
		if !v.Matched {
			return
		}
		seen[s.Get(0)] = true
		sz := page.CanvasSize(s)
		out = append(out, Element{
			Type:        KindCanvas,
			ID:          fmt.Sprintf("canvas-%d", i+1),
			Width:       sz.W,
			Height:      sz.H,
			Context:     page.Class(chartAncestor(s, h.ChartAncestorSelector)),
			Description: firstNonEmpty(page.Attr(s, "aria-label"), page.Attr(s, "title"), page.Attr(s, h.TradingChartAttr)),
			Reason:      v.Reason,
			CaptureID:   page.ElementID(s),
		})
	})

	doc.Find("svg").Each(func(i int, s *goquery.Selection) {
		if seen[s.Get(0)] {
			return
		}
		v := ClassifySVG(s)
		logVerdict("svg", i, v)
		if !v.Matched {
			return
		}
		seen[s.Get(0)] = true
		out = append(out, Element{
			Type:        KindSVG,
			ID:          fmt.Sprintf("svg-%d", i+1),
			Width:       svgDimension(s, "width"),
			Height:      svgDimension(s, "height"),
			Context:     page.Class(chartAncestor(s, h.SVGChartAncestorSelector)),
			Description: firstNonEmpty(page.Attr(s, "aria-label"), strings.TrimSpace(s.ChildrenFiltered("title").First().Text())),
			Reason:      v.Reason,
			CaptureID:   page.ElementID(s),
		})
	})

	doc.Find(h.ChartContainerSelector).Each(func(i int, s *goquery.Selection) {
		if seen[s.Get(0)] {
			return
		}
		v := ClassifyContainer(s)
		logVerdict("container", i, v)
		if !v.Matched {
			return
		}
		seen[s.Get(0)] = true
		sz := page.Rendered(s)
		out = append(out, Element{
			Type:        KindContainer,
			ID:          fmt.Sprintf("container-%d", i+1),
			Width:       sz.W,
			Height:      sz.H,
			Context:     page.Class(s),
			ClassName:   page.Class(s),
			TextContent: excerpt(s.Text(), h.ContainerExcerptLen),
			Description: firstNonEmpty(page.Attr(s, "aria-label"), page.Attr(s, "title")),
			Reason:      v.Reason,
		})
	})

	doc.Find(h.ChartImageSelector).Each(func(i int, s *goquery.Selection) {
		if seen[s.Get(0)] {
			return
		}
		seen[s.Get(0)] = true
		sz := page.Rendered(s)
		nat := page.Natural(s)
		alt := page.Attr(s, "alt")
		out = append(out, Element{
			Type:          KindImage,
			ID:            fmt.Sprintf("chart-image-%d", i+1),
			Width:         sz.W,
			Height:        sz.H,
			NaturalWidth:  nat.W,
			NaturalHeight: nat.H,
			Src:           doc.Resolve(page.Attr(s, "src")),
			Alt:           alt,
			Title:         page.Attr(s, "title"),
			Description:   firstNonEmpty(page.Attr(s, "title"), alt),
			Reason:        ReasonImageChartKeyword,
			CaptureID:     page.ElementID(s),
		})
	})

	log.Debug().Int("charts", len(out)).Msg("chart detection finished")
	return out
}

// DetectImages finds content images: <img> tags passing the content filter,
// then elements with a qualifying background image.
func DetectImages(doc *page.Document) []Element {
	out := make([]Element, 0)

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src := doc.Resolve(page.Attr(s, "src"))
		v := ClassifyContentImage(s, src)
		logVerdict("img", i, v)
		if !v.Matched {
			return
		}
		rect := page.Rendered(s)
		nat := page.Natural(s)
		alt := page.Attr(s, "alt")
		title := page.Attr(s, "title")
		out = append(out, Element{
			Type:          KindImage,
			ID:            fmt.Sprintf("image-%d", i+1),
			Width:         rect.W,
			Height:        rect.H,
			NaturalWidth:  nat.W,
			NaturalHeight: nat.H,
			Src:           src,
			Alt:           alt,
			Title:         title,
			Context:       page.Class(s.Closest(h.ImageContextSelector)),
			Description:   firstNonEmpty(alt, title, fmt.Sprintf("Image %d", i+1)),
			Reason:        v.Reason,
			CaptureID:     page.ElementID(s),
		})
	})

	// One bounded pass over elements that can carry a background at all:
	// annotated computed styles, or inline styles on static pages.
	count := 0
	doc.Find(backgroundCandidates).Each(func(_ int, s *goquery.Selection) {
		bg := page.BackgroundImage(s)
		if bg == "" || bg == "none" || !strings.Contains(bg, "url(") {
			return
		}
		count++
		u, v := ClassifyBackground(s, bg)
		logVerdict("background", count, v)
		if !v.Matched {
			return
		}
		rect := page.Rendered(s)
		title := page.Attr(s, "title")
		out = append(out, Element{
			Type:        KindBackground,
			ID:          fmt.Sprintf("bg-image-%d", count),
			Width:       rect.W,
			Height:      rect.H,
			Src:         doc.Resolve(u),
			Title:       title,
			Context:     page.Class(s),
			Description: firstNonEmpty(title, page.Attr(s, "aria-label"), fmt.Sprintf("Background image %d", count)),
			Reason:      v.Reason,
			CaptureID:   page.ElementID(s),
		})
	})

	log.Debug().Int("images", len(out)).Msg("image detection finished")
	return out
}

var backgroundCandidates = "[" + page.AttrBackground + `], [style*="background"]`

// svgDimension prefers the explicit attribute, then the viewBox, then the
// rendered box.
func svgDimension(s *goquery.Selection, axis string) float64 {
	attrs := page.Natural(s)
	vb := page.ViewBox(s)
	box := page.SVGBox(s)
	if axis == "width" {
		return firstPositive(attrs.W, vb.W, box.W)
	}
	return firstPositive(attrs.H, vb.H, box.H)
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// excerpt keeps the first n runes, trimmed.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}

func logVerdict(kind string, idx int, v Verdict) {
	log.Debug().Str("kind", kind).Int("index", idx).Bool("matched", v.Matched).Str("reason", string(v.Reason)).Msg("classified")
}
