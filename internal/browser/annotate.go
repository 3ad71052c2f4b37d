package browser

import (
	"fmt"

	"github.com/hyperifyio/pagelens/internal/page"
)

// annotateScript stamps layout facts onto the live DOM so the serialized
// HTML carries them: bounding size on every element, natural size on
// images, computed background images, capture ids on capturable elements
// and the viewport size on <html>. It returns the number of capture ids.
var annotateScript = fmt.Sprintf(`(function () {
  var W = %q, H = %q, NW = %q, NH = %q, BG = %q, ID = %q, VW = %q, VH = %q;
  var seq = 0;
  function mark(el) {
    if (!el.hasAttribute(ID)) { el.setAttribute(ID, "pl-" + (++seq)); }
  }
  var all = document.body ? document.body.getElementsByTagName("*") : [];
  for (var i = 0; i < all.length; i++) {
    var el = all[i];
    var r = el.getBoundingClientRect();
    el.setAttribute(W, String(Math.round(r.width)));
    el.setAttribute(H, String(Math.round(r.height)));
    var tag = el.tagName.toLowerCase();
    if (tag === "img") {
      el.setAttribute(NW, String(el.naturalWidth || 0));
      el.setAttribute(NH, String(el.naturalHeight || 0));
      mark(el);
    } else if (tag === "canvas" || tag === "svg") {
      mark(el);
    }
    if (r.width > 0 && r.height > 0) {
      var bg = window.getComputedStyle(el).backgroundImage;
      if (bg && bg !== "none") {
        el.setAttribute(BG, bg);
        mark(el);
      }
    }
  }
  document.documentElement.setAttribute(VW, String(window.innerWidth));
  document.documentElement.setAttribute(VH, String(window.innerHeight));
  return seq;
})()`,
	page.AttrWidth, page.AttrHeight, page.AttrNaturalWidth, page.AttrNaturalHeight,
	page.AttrBackground, page.AttrID, page.AttrViewportWidth, page.AttrViewportHeight)

// canvasExportScript returns the canvas pixels as a PNG data URI, "" when
// the element is gone, or the taintedMarker when export is refused.
func canvasExportScript(id string) string {
	return fmt.Sprintf(`(function () {
  var c = document.querySelector('[%s=' + JSON.stringify(%q) + ']');
  if (!c || typeof c.toDataURL !== "function") { return ""; }
  try { return c.toDataURL("image/png"); } catch (e) { return %q; }
})()`, page.AttrID, id, taintedMarker)
}

const taintedMarker = "__tainted__"
