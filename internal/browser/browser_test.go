package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/pagelens/internal/page"
	"github.com/hyperifyio/pagelens/internal/raster"
)

func TestAnnotateScript_UsesAnnotationAttributes(t *testing.T) {
	for _, attr := range []string{
		page.AttrWidth, page.AttrHeight, page.AttrNaturalWidth, page.AttrNaturalHeight,
		page.AttrBackground, page.AttrID, page.AttrViewportWidth, page.AttrViewportHeight,
	} {
		if !strings.Contains(annotateScript, `"`+attr+`"`) {
			t.Fatalf("annotate script missing %s", attr)
		}
	}
}

func TestCanvasExportScript_QuotesID(t *testing.T) {
	js := canvasExportScript(`a"b`)
	if !strings.Contains(js, `"a\"b"`) {
		t.Fatalf("id not quoted: %s", js)
	}
	if !strings.Contains(js, taintedMarker) {
		t.Fatalf("missing tainted marker")
	}
}

func TestOptionsSizeDefaults(t *testing.T) {
	w, h := Options{}.size()
	if w != 1280 || h != 800 {
		t.Fatalf("got %dx%d", w, h)
	}
}

// TestSession_RenderAndCapture needs a local Chrome; set PAGELENS_CHROME=1.
func TestSession_RenderAndCapture(t *testing.T) {
	if os.Getenv("PAGELENS_CHROME") == "" {
		t.Skip("set PAGELENS_CHROME=1 to run against a local Chrome")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div class="chart"><canvas id="c" width="400" height="300"></canvas></div>
<script>var x=document.getElementById('c').getContext('2d');x.fillRect(0,0,100,100);</script></body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := Open(ctx, Options{Headless: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Page(ctx); !errors.Is(err, ErrNotNavigated) {
		t.Fatalf("expected ErrNotNavigated, got %v", err)
	}
	if err := s.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	doc, err := s.Page(ctx)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if !doc.Annotated() {
		t.Fatalf("expected annotations")
	}
	id := page.ElementID(doc.Find("canvas").First())
	if id == "" {
		t.Fatalf("canvas has no capture id")
	}
	shot, err := s.CaptureCanvas(ctx, id)
	if err != nil || !raster.IsDataURI(shot) {
		t.Fatalf("canvas capture: %v", err)
	}
	vp, err := s.CaptureViewport(ctx)
	if err != nil || !raster.IsDataURI(vp) {
		t.Fatalf("viewport capture: %v", err)
	}
}
