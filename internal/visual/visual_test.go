package visual

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperifyio/pagelens/internal/page"
)

func parse(t *testing.T, src string) *page.Document {
	t.Helper()
	d, err := page.Parse(strings.NewReader(src), "https://example.com/report/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func shapes(n int) string {
	return strings.Repeat(`<rect width="5" height="5"></rect>`, n)
}

var chartPage = `<html><body>
<canvas data-name="pane-canvas" width="10" height="10" data-pagelens-id="c1"></canvas>
<canvas width="100" height="80"></canvas>
<div class="chart-wrap"><canvas width="100" height="80" aria-label="Sales by region"></canvas></div>
<canvas width="640" height="100"></canvas>
<div id="graph-area"><svg width="400" height="200"><title>Volume</title>` + shapes(11) + `</svg></div>
<div class="chart-area"><svg width="400" height="200">` + shapes(3) + `</svg></div>
<div class="chart-summary">Revenue rose from ten to twelve million over the four quarters of the year.</div>
<img src="/charts/q1.png" alt="Q1 revenue" width="300" height="200">
</body></html>`

func TestDetectCharts_PassOrderAndRules(t *testing.T) {
	got := DetectCharts(parse(t, chartPage))
	want := []struct {
		id     string
		kind   Kind
		reason Reason
	}{
		{"pane-canvas-1", KindCanvas, ReasonTradingChartAttr},
		{"canvas-2", KindCanvas, ReasonChartAncestor},
		{"canvas-3", KindCanvas, ReasonLargeCanvas},
		{"svg-1", KindSVG, ReasonSVGChart},
		{"container-4", KindContainer, ReasonContainerChart},
		{"chart-image-1", KindImage, ReasonImageChartKeyword},
	}
	if len(got) != len(want) {
		for _, e := range got {
			t.Logf("%s %s %s", e.ID, e.Type, e.Reason)
		}
		t.Fatalf("expected %d charts, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Type != w.kind || got[i].Reason != w.reason {
			t.Fatalf("chart %d: got %s/%s/%s, want %s/%s/%s", i, got[i].ID, got[i].Type, got[i].Reason, w.id, w.kind, w.reason)
		}
	}

	trading := got[0]
	if trading.Width != 10 || trading.Height != 10 || trading.Context != "trading-chart" || trading.CaptureID != "c1" {
		t.Fatalf("trading chart: %+v", trading)
	}
	if got[1].Description != "Sales by region" || got[1].Context != "chart-wrap" {
		t.Fatalf("labeled canvas: %+v", got[1])
	}
	if got[3].Width != 400 || got[3].Height != 200 || got[3].Description != "Volume" {
		t.Fatalf("svg: %+v", got[3])
	}
	if !strings.HasPrefix(got[4].TextContent, "Revenue rose") || got[4].ClassName != "chart-summary" {
		t.Fatalf("container: %+v", got[4])
	}
	if got[5].Src != "https://example.com/charts/q1.png" || got[5].Description != "Q1 revenue" {
		t.Fatalf("chart image: %+v", got[5])
	}
}

// A tiny trading-chart canvas is still a chart.
func TestClassifyCanvas_TradingChartIgnoresSize(t *testing.T) {
	doc := parse(t, `<canvas data-name="pane-canvas" width="10" height="10"></canvas>`)
	if v := ClassifyCanvas(doc.Find("canvas")); !v.Matched || v.Reason != ReasonTradingChartAttr {
		t.Fatalf("verdict %+v", v)
	}
}

func TestClassifyCanvas_Rules(t *testing.T) {
	cases := []struct {
		html   string
		reason Reason
		match  bool
	}{
		// The ancestor lookup starts at the canvas itself.
		{`<canvas class="line-chart" width="50" height="50"></canvas>`, ReasonChartAncestor, true},
		{`<canvas data-name="main-pane" width="50" height="50"></canvas>`, ReasonChartAttr, true},
		{`<canvas width="201" height="10"></canvas>`, ReasonLargeCanvas, true},
		{`<canvas width="200" height="200"></canvas>`, ReasonPlainCanvas, false},
		{`<div id="trading-view"><canvas width="20" height="20"></canvas></div>`, ReasonChartAncestor, true},
	}
	for _, c := range cases {
		v := ClassifyCanvas(parse(t, c.html).Find("canvas"))
		if v.Matched != c.match || v.Reason != c.reason {
			t.Fatalf("%s: got %+v", c.html, v)
		}
	}
}

func TestClassifySVG_NeedsAllThree(t *testing.T) {
	cases := []struct {
		html   string
		reason Reason
	}{
		{`<div class="chart"><svg width="400" height="200">` + shapes(10) + `</svg></div>`, ReasonSVGTooFewShapes},
		{`<div class="panel"><svg width="400" height="200">` + shapes(20) + `</svg></div>`, ReasonSVGNoChartAncestor},
		{`<div class="graph"><svg width="200" height="200">` + shapes(20) + `</svg></div>`, ReasonSVGTooSmall},
		{`<div class="graph"><svg viewBox="0 0 600 300">` + shapes(11) + `</svg></div>`, ReasonSVGChart},
	}
	for _, c := range cases {
		v := ClassifySVG(parse(t, c.html).Find("svg"))
		if v.Reason != c.reason || v.Matched != (c.reason == ReasonSVGChart) {
			t.Fatalf("%s: got %+v", c.html, v)
		}
	}
}

func TestClassifyContainer(t *testing.T) {
	long := strings.Repeat("x", 51)
	if v := ClassifyContainer(parse(t, `<div class="chart">`+long+`</div>`).Find("div")); !v.Matched {
		t.Fatalf("long text container rejected: %+v", v)
	}
	if v := ClassifyContainer(parse(t, `<div class="chart">`+long[:50]+`</div>`).Find("div")); v.Reason != ReasonContainerLittleText {
		t.Fatalf("50 chars must not be enough: %+v", v)
	}
	if v := ClassifyContainer(parse(t, `<div class="chart">`+long+`<canvas></canvas></div>`).Find("div")); v.Reason != ReasonContainerHasGraphic {
		t.Fatalf("container with canvas accepted: %+v", v)
	}
}

func TestClassifyContentImage(t *testing.T) {
	cases := []struct {
		html   string
		reason Reason
	}{
		{`<img src="photo.jpg" width="400" height="300">`, ReasonContentImage},
		{`<img width="400" height="300">`, ReasonNoSource},
		{`<img src="photo.jpg" width="0" height="300">`, ReasonNotVisible},
		{`<img src="/img/placeholder.png" width="400" height="300">`, ReasonPlaceholder},
		{`<img src="data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7" width="400" height="300">`, ReasonPlaceholder},
		{`<img src="dot.png" width="40" height="40">`, ReasonTooSmall},
		{`<img src="dot.png" width="120" height="20">`, ReasonContentImage},
		{`<img class="icon" src="i.png" data-pagelens-w="24" data-pagelens-h="24" data-pagelens-nw="128" data-pagelens-nh="128">`, ReasonTinyIcon},
		{`<button class="close-dialog"><img src="x.png" width="200" height="200"></button>`, ReasonUIChrome},
		{`<img src="data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmciLz4=" width="200" height="200">`, ReasonUIChrome},
	}
	for _, c := range cases {
		doc := parse(t, c.html)
		s := doc.Find("img")
		v := ClassifyContentImage(s, doc.Resolve(page.Attr(s, "src")))
		if v.Reason != c.reason || v.Matched != (c.reason == ReasonContentImage) {
			t.Fatalf("%s: got %+v", c.html, v)
		}
	}
}

func TestDetectImages_ContentAndBackgrounds(t *testing.T) {
	doc := parse(t, `<body>
<img src="dot.png" width="4" height="4">
<figure class="lead"><img src="photo.jpg" alt="Harbour at dawn" width="640" height="360"></figure>
<div class="hero" title="Hero" style="background-image:url('hero.jpg'); width:600px; height:300px"></div>
<div style="background:url(data:image/svg+xml;base64,AAAA); width:600px; height:300px"></div>
<div style="background-image:url(small.png); width:30px; height:30px"></div>
</body>`)
	got := DetectImages(doc)
	if len(got) != 2 {
		for _, e := range got {
			t.Logf("%s %s %s", e.ID, e.Src, e.Reason)
		}
		t.Fatalf("expected two images, got %d", len(got))
	}
	img, bg := got[0], got[1]
	if img.ID != "image-2" || img.Src != "https://example.com/report/photo.jpg" || img.Description != "Harbour at dawn" || img.Context != "lead" {
		t.Fatalf("image: %+v", img)
	}
	if bg.Type != KindBackground || bg.ID != "bg-image-1" || bg.Src != "https://example.com/report/hero.jpg" || bg.Description != "Hero" {
		t.Fatalf("background: %+v", bg)
	}
	if !img.Capturable() || !bg.Capturable() {
		t.Fatalf("images with a source must be capturable")
	}
}

func TestElement_Capturable(t *testing.T) {
	if (Element{Type: KindContainer}).Capturable() || (Element{Type: KindSVG}).Capturable() {
		t.Fatalf("containers and SVGs are described, not captured")
	}
	if !(Element{Type: KindCanvas}).Capturable() || (Element{Type: KindImage}).Capturable() {
		t.Fatalf("unexpected capturability")
	}
}

func TestDetect_RepeatableOnUnchangedDocument(t *testing.T) {
	src := `<html><body>
<div class="chart-wrap"><canvas width="300" height="200" data-pagelens-id="k1"></canvas></div>
<canvas width="640" height="480"></canvas>
<div id="graph"><svg viewBox="0 0 600 300">` + shapes(12) + `</svg></div>
<div class="plot-notes">Quarterly volume grew steadily while volatility stayed within its usual band.</div>
<figure class="lead"><img src="/photos/harbor.jpg" width="640" height="360" alt="Harbor"></figure>
<img src="/charts/volume.png" width="500" height="250" alt="Volume">
<div class="hero" title="Skyline" style="background-image: url('/img/skyline.jpg'); width: 800px; height: 400px"></div>
</body></html>`
	doc := parse(t, src)

	charts1, images1 := DetectCharts(doc), DetectImages(doc)
	charts2, images2 := DetectCharts(doc), DetectImages(doc)
	if len(charts1) == 0 || len(images1) == 0 {
		t.Fatalf("expected detections, got %d charts %d images", len(charts1), len(images1))
	}
	kinds := map[Kind]bool{}
	for _, e := range append(append([]Element{}, charts1...), images1...) {
		kinds[e.Type] = true
	}
	for _, k := range []Kind{KindCanvas, KindSVG, KindContainer, KindImage, KindBackground} {
		if !kinds[k] {
			t.Fatalf("page should exercise %s detection, got %+v", k, kinds)
		}
	}
	if !reflect.DeepEqual(charts1, charts2) {
		t.Fatalf("chart detection not repeatable:\n%+v\n%+v", charts1, charts2)
	}
	if !reflect.DeepEqual(images1, images2) {
		t.Fatalf("image detection not repeatable:\n%+v\n%+v", images1, images2)
	}

	// a fresh parse of the same markup yields the same result too
	again := parse(t, src)
	if !reflect.DeepEqual(charts1, DetectCharts(again)) || !reflect.DeepEqual(images1, DetectImages(again)) {
		t.Fatalf("detection differs across parses of the same markup")
	}
}
