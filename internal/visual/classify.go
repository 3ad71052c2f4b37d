// Package visual classifies canvases, SVGs, labeled containers and images
// into chart-like or content-like candidates. Nothing here captures pixels.
package visual

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	h "github.com/hyperifyio/pagelens/internal/heuristics"
	"github.com/hyperifyio/pagelens/internal/page"
)

// Reason names the rule that decided a classification.
type Reason string

const (
	ReasonTradingChartAttr    Reason = "trading-chart-attr"
	ReasonChartAncestor       Reason = "chart-ancestor"
	ReasonChartAttr           Reason = "chart-attr"
	ReasonLargeCanvas         Reason = "large-canvas"
	ReasonPlainCanvas         Reason = "plain-canvas"
	ReasonSVGNoChartAncestor  Reason = "svg-no-chart-ancestor"
	ReasonSVGTooFewShapes     Reason = "svg-too-few-shapes"
	ReasonSVGTooSmall         Reason = "svg-too-small"
	ReasonSVGChart            Reason = "svg-chart"
	ReasonContainerHasGraphic Reason = "container-has-graphic"
	ReasonContainerLittleText Reason = "container-too-little-text"
	ReasonContainerChart      Reason = "container-chart"
	ReasonImageChartKeyword   Reason = "image-chart-keyword"
	ReasonNoChartKeyword      Reason = "no-chart-keyword"
	ReasonNotVisible          Reason = "not-visible"
	ReasonNoSource            Reason = "no-source"
	ReasonTooSmall            Reason = "too-small"
	ReasonTinyIcon            Reason = "tiny-icon"
	ReasonUIChrome            Reason = "ui-chrome"
	ReasonPlaceholder         Reason = "placeholder"
	ReasonContentImage        Reason = "content-image"
	ReasonNoBackground        Reason = "no-background"
	ReasonBadBackgroundURL    Reason = "bad-background-url"
	ReasonBackgroundImage     Reason = "background-image"
)

// Verdict is the outcome of one classification.
type Verdict struct {
	Matched bool
	Reason  Reason
}

func yes(r Reason) Verdict { return Verdict{Matched: true, Reason: r} }
func no(r Reason) Verdict  { return Verdict{Matched: false, Reason: r} }

// IsTradingChart reports whether the canvas carries the trading-chart
// rendering attribute.
func IsTradingChart(s *goquery.Selection) bool {
	v, ok := s.Attr(h.TradingChartAttr)
	return ok && v == h.TradingChartValue
}

// ClassifyCanvas applies the trading-chart rule, then the permissive OR of
// weak signals: a chart-labeled ancestor, chart keywords on the canvas
// itself, or a backing store larger than 200px on either axis.
func ClassifyCanvas(s *goquery.Selection) Verdict {
	if IsTradingChart(s) {
		return yes(ReasonTradingChartAttr)
	}
	if chartAncestor(s, h.ChartAncestorSelector).Length() > 0 {
		return yes(ReasonChartAncestor)
	}
	class := page.Class(s)
	if containsAny(class, h.CanvasClassKeywords) {
		return yes(ReasonChartAttr)
	}
	if dn, ok := s.Attr(h.TradingChartAttr); ok && containsAny(dn, h.CanvasDataNameKeywords) {
		return yes(ReasonChartAttr)
	}
	sz := page.CanvasSize(s)
	if sz.W > h.LargeCanvasPx || sz.H > h.LargeCanvasPx {
		return yes(ReasonLargeCanvas)
	}
	return no(ReasonPlainCanvas)
}

// ClassifySVG requires all three: a chart-labeled ancestor, more than ten
// shape primitives, and a rendered box larger than 200x100.
func ClassifySVG(s *goquery.Selection) Verdict {
	if chartAncestor(s, h.SVGChartAncestorSelector).Length() == 0 {
		return no(ReasonSVGNoChartAncestor)
	}
	if s.Find(h.SVGShapeSelector).Length() <= h.SVGMinShapes {
		return no(ReasonSVGTooFewShapes)
	}
	box := page.SVGBox(s)
	if !(box.W > h.SVGMinWidthPx && box.H > h.SVGMinHeightPx) {
		return no(ReasonSVGTooSmall)
	}
	return yes(ReasonSVGChart)
}

// ClassifyContainer accepts chart-labeled elements that hold no canvas or
// SVG of their own and carry more than 50 characters of text.
func ClassifyContainer(s *goquery.Selection) Verdict {
	if s.Find(h.GraphicSelector).Length() > 0 {
		return no(ReasonContainerHasGraphic)
	}
	if utf8.RuneCountInString(s.Text()) <= h.ContainerMinTextLen {
		return no(ReasonContainerLittleText)
	}
	return yes(ReasonContainerChart)
}

// ClassifyChartImage accepts <img> elements whose locator or alt text
// mentions a chart or graph.
func ClassifyChartImage(s *goquery.Selection) Verdict {
	if s.Is(h.ChartImageSelector) {
		return yes(ReasonImageChartKeyword)
	}
	return no(ReasonNoChartKeyword)
}

// ClassifyContentImage decides whether an <img> is worth sending as visual
// context. src is the resolved locator. Checks run cheapest first.
func ClassifyContentImage(s *goquery.Selection, src string) Verdict {
	if strings.TrimSpace(src) == "" {
		return no(ReasonNoSource)
	}
	rect := page.Rendered(s)
	if !rect.Visible() {
		return no(ReasonNotVisible)
	}
	if IsPlaceholder(src) {
		return no(ReasonPlaceholder)
	}
	nat := page.Natural(s)
	reasonable := (rect.W >= h.ImageMinRenderedPx && rect.H >= h.ImageMinRenderedPx) ||
		(nat.W >= h.ImageMinNaturalPx && nat.H >= h.ImageMinNaturalPx) ||
		rect.W >= h.ImageMinAnyAxisPx || rect.H >= h.ImageMinAnyAxisPx
	if !reasonable {
		return no(ReasonTooSmall)
	}
	if rect.W <= h.IconMaxPx && rect.H <= h.IconMaxPx &&
		(strings.Contains(page.Class(s), h.IconKeyword) || strings.Contains(src, h.IconKeyword)) {
		return no(ReasonTinyIcon)
	}
	if strings.Contains(src, h.InlineSVGIconPrefix) || s.Closest(h.UIChromeSelector).Length() > 0 {
		return no(ReasonUIChrome)
	}
	return yes(ReasonContentImage)
}

// ClassifyBackground applies the background-image filter to an element
// whose background-image value is bg. The extracted locator is returned
// alongside the verdict.
func ClassifyBackground(s *goquery.Selection, bg string) (string, Verdict) {
	if bg == "" || bg == "none" || !strings.Contains(bg, "url(") {
		return "", no(ReasonNoBackground)
	}
	rect := page.Rendered(s)
	if !rect.Visible() {
		return "", no(ReasonNotVisible)
	}
	if !(rect.W >= h.BackgroundMinWidth && rect.H >= h.BackgroundMinHeight) ||
		!(rect.W > h.IconMaxPx || rect.H > h.IconMaxPx) {
		return "", no(ReasonTooSmall)
	}
	u := page.BackgroundURL(bg)
	if u == "" || containsAny(u, h.BackgroundExcludedMarkers) {
		return u, no(ReasonBadBackgroundURL)
	}
	return u, yes(ReasonBackgroundImage)
}

// IsPlaceholder matches tracking pixels and placeholder art.
func IsPlaceholder(src string) bool {
	if containsAny(src, h.PlaceholderMarkers) {
		return true
	}
	for _, p := range h.PlaceholderPrefixes {
		if strings.HasPrefix(src, p) {
			return true
		}
	}
	return false
}

// chartAncestor finds the closest element matching sel, starting with s
// itself.
func chartAncestor(s *goquery.Selection, sel string) *goquery.Selection {
	return s.Closest(sel)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
