package page

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Size is a width/height pair in CSS pixels.
type Size struct {
	W float64
	H float64
}

// Visible reports a non-zero area.
func (s Size) Visible() bool { return s.W > 0 && s.H > 0 }

// Default intrinsic canvas size when no width or height is given.
const (
	defaultCanvasWidth  = 300
	defaultCanvasHeight = 150
)

// Rendered returns the element's bounding size. Without annotations it
// falls back to inline style pixels, then to width/height attributes.
// Anything else is unknown and reported as zero.
func Rendered(s *goquery.Selection) Size {
	if w, ok := s.Attr(AttrWidth); ok {
		h, _ := s.Attr(AttrHeight)
		return Size{W: parsePx(w), H: parsePx(h)}
	}
	st := styleMap(Attr(s, "style"))
	out := Size{W: parsePx(st["width"]), H: parsePx(st["height"])}
	if out.W == 0 {
		out.W = parsePx(Attr(s, "width"))
	}
	if out.H == 0 {
		out.H = parsePx(Attr(s, "height"))
	}
	return out
}

// Natural returns an image's intrinsic size. Without annotations the
// width/height attributes stand in for it.
func Natural(s *goquery.Selection) Size {
	if w, ok := s.Attr(AttrNaturalWidth); ok {
		h, _ := s.Attr(AttrNaturalHeight)
		return Size{W: parsePx(w), H: parsePx(h)}
	}
	return Size{W: parsePx(Attr(s, "width")), H: parsePx(Attr(s, "height"))}
}

// CanvasSize returns a canvas's backing-store size (its width/height
// attributes, defaulting to 300x150).
func CanvasSize(s *goquery.Selection) Size {
	out := Size{W: defaultCanvasWidth, H: defaultCanvasHeight}
	if v, ok := s.Attr("width"); ok {
		out.W = parsePx(v)
	}
	if v, ok := s.Attr("height"); ok {
		out.H = parsePx(v)
	}
	return out
}

// SVGBox returns the rendered box of an <svg>, falling back to the viewBox
// when neither annotations nor explicit dimensions exist.
func SVGBox(s *goquery.Selection) Size {
	out := Rendered(s)
	if out.W > 0 && out.H > 0 {
		return out
	}
	if vb := ViewBox(s); vb.W > 0 || vb.H > 0 {
		if out.W == 0 {
			out.W = vb.W
		}
		if out.H == 0 {
			out.H = vb.H
		}
	}
	return out
}

// ViewBox parses the width and height of an SVG viewBox attribute.
func ViewBox(s *goquery.Selection) Size {
	f := strings.FieldsFunc(Attr(s, "viewBox"), func(r rune) bool { return r == ' ' || r == ',' })
	if len(f) != 4 {
		return Size{}
	}
	return Size{W: parsePx(f[2]), H: parsePx(f[3])}
}

var cssURLRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// BackgroundImage returns the element's background-image value ("" when
// none). Rendered pages report the computed style; static ones only inline
// style.
func BackgroundImage(s *goquery.Selection) string {
	if v, ok := s.Attr(AttrBackground); ok {
		return strings.TrimSpace(v)
	}
	st := styleMap(Attr(s, "style"))
	if v := st["background-image"]; v != "" {
		return v
	}
	if v := st["background"]; strings.Contains(v, "url(") {
		return v
	}
	return ""
}

// BackgroundURL extracts the first url(...) locator from a background-image
// value.
func BackgroundURL(value string) string {
	m := cssURLRe.FindStringSubmatch(value)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ElementID returns the stable capture id stamped by the browser, if any.
func ElementID(s *goquery.Selection) string {
	return Attr(s, AttrID)
}

func attrPx(s *goquery.Selection, name string) float64 {
	return parsePx(Attr(s, name))
}

// parsePx accepts "120", "120px", "120.5px". Relative units yield zero.
func parsePx(v string) float64 {
	v = strings.TrimSpace(strings.ToLower(v))
	v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))
	v = strings.TrimSuffix(v, "px")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func styleMap(style string) map[string]string {
	out := map[string]string{}
	for _, decl := range splitDecls(style) {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// splitDecls splits on ';' outside parentheses so data: URIs inside url()
// survive.
func splitDecls(style string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range style {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				out = append(out, style[start:i])
				start = i + 1
			}
		}
	}
	return append(out, style[start:])
}
