package heuristics

// TradingChartSelector matches canvases emitted by the trading-chart
// rendering library. They are always charts regardless of size.
const TradingChartSelector = `canvas[data-name="pane-canvas"]`

// TradingChartAttr and TradingChartValue identify the same canvases when
// inspecting a node directly.
const (
	TradingChartAttr  = "data-name"
	TradingChartValue = "pane-canvas"
)

// ChartAncestorSelector finds a chart-labeled container above a canvas.
const ChartAncestorSelector = `[class*="chart"], [id*="chart"], [class*="graph"], [id*="graph"], [class*="trading"], [id*="trading"]`

// SVGChartAncestorSelector is the narrower container test used for SVG.
const SVGChartAncestorSelector = `[class*="chart"], [id*="chart"], [class*="graph"], [id*="graph"]`

// ChartContainerSelector finds labeled containers that may describe a chart
// in text rather than pixels.
const ChartContainerSelector = `[class*="chart"]:not([class*="chart-icon"]):not([class*="chart-button"]), ` +
	`[id*="chart"], [class*="graph"], [id*="graph"], ` +
	`[class*="visualization"], [class*="plot"], [class*="diagram"]`

// ChartImageSelector finds <img> charts by locator or alt text.
const ChartImageSelector = `img[src*="chart"], img[src*="graph"], img[alt*="chart"], img[alt*="graph"]`

// SVGShapeSelector counts drawing primitives inside an SVG.
const SVGShapeSelector = "rect, circle, path, line"

// GraphicSelector marks a container as already holding a drawn chart.
const GraphicSelector = "canvas, svg"

// Canvas keyword checks against the element's own class and data-name.
var (
	CanvasClassKeywords    = []string{"chart", "graph"}
	CanvasDataNameKeywords = []string{"chart", "pane"}
)

// Thresholds for the chart rules.
const (
	LargeCanvasPx       = 200
	SVGMinShapes        = 10 // strictly more than this
	SVGMinWidthPx       = 200
	SVGMinHeightPx      = 100
	ContainerMinTextLen = 50
	ContainerExcerptLen = 200
)

// Content image thresholds.
const (
	ImageMinRenderedPx  = 50
	ImageMinNaturalPx   = 100
	ImageMinAnyAxisPx   = 100
	IconMaxPx           = 32
	BackgroundMinWidth  = 100
	BackgroundMinHeight = 50
)

// IconKeyword marks small images as icons when present in class or src.
const IconKeyword = "icon"

// UIChromeSelector finds buttons and controls an image may be part of.
const UIChromeSelector = `button[class*="close"], button[class*="menu"], .close-btn, .menu-btn`

// InlineSVGIconPrefix is the base64 prefix of inline SVG icon data URIs.
const InlineSVGIconPrefix = "data:image/svg+xml;base64,PHN2Zy"

// PlaceholderMarkers exclude tracking pixels and placeholder art.
var PlaceholderMarkers = []string{
	"placeholder",
	"data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP",
}

// PlaceholderPrefixes are matched against the start of the locator only.
var PlaceholderPrefixes = []string{
	"data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMSI",
}

// ImageContextSelector picks the nearest container describing an image.
const ImageContextSelector = "figure, .image, .photo, .gallery, .content, article, main, div, section"

// BackgroundExcludedMarkers reject background-image locators.
var BackgroundExcludedMarkers = []string{"data:image/svg+xml", "placeholder"}

// VisualKeywords in a chat message ask for screenshots to be attached.
var VisualKeywords = []string{
	"chart", "graph", "analyze", "screenshot", "visual",
	"image", "plot", "diagram", "see", "show", "look",
}
