// Package page wraps a parsed HTML document together with the layout facts
// a rendered page would expose (bounding sizes, natural image sizes,
// computed background images). Layout facts come from data-pagelens-*
// annotations stamped by the browser collaborator, with static fallbacks
// read from markup when the document was never rendered.
package page

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Annotation attributes written by the browser before serializing the DOM.
const (
	AttrWidth          = "data-pagelens-w"
	AttrHeight         = "data-pagelens-h"
	AttrNaturalWidth   = "data-pagelens-nw"
	AttrNaturalHeight  = "data-pagelens-nh"
	AttrBackground     = "data-pagelens-bg"
	AttrID             = "data-pagelens-id"
	AttrViewportWidth  = "data-pagelens-vw"
	AttrViewportHeight = "data-pagelens-vh"
)

// Document is one parsed page. It is read-only for the extraction passes;
// the content cleaner works on its own clone.
type Document struct {
	URL  string
	doc  *goquery.Document
	base *url.URL
}

// Parse reads HTML from r. pageURL is used to resolve relative locators and
// may be empty.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromNode(root, pageURL), nil
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(b []byte, pageURL string) (*Document, error) {
	return Parse(bytes.NewReader(b), pageURL)
}

// FromNode wraps an already-parsed tree.
func FromNode(root *html.Node, pageURL string) *Document {
	d := &Document{URL: pageURL, doc: goquery.NewDocumentFromNode(root)}
	if u, err := url.Parse(pageURL); err == nil && pageURL != "" {
		d.base = u
	}
	return d
}

// Find evaluates a selector against the whole document in document order.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Title returns the trimmed text of the first <title>.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Meta returns the content attribute of <meta name="...">. Name matching is
// case-insensitive.
func (d *Document) Meta(name string) (string, bool) {
	var val string
	var found bool
	d.doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		if strings.EqualFold(strings.TrimSpace(n), name) {
			val = Attr(s, "content")
			found = true
			return false
		}
		return true
	})
	return val, found
}

// Viewport returns the annotated viewport size, or zero when unknown.
func (d *Document) Viewport() Size {
	h := d.doc.Find("html").First()
	return Size{W: attrPx(h, AttrViewportWidth), H: attrPx(h, AttrViewportHeight)}
}

// Annotated reports whether the browser stamped layout facts.
func (d *Document) Annotated() bool {
	_, ok := d.doc.Find("html").First().Attr(AttrViewportWidth)
	return ok
}

// Resolve turns a possibly relative locator into an absolute one using the
// page URL. data: URIs and unparsable values are returned unchanged.
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || d.base == nil || strings.HasPrefix(ref, "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.base.ResolveReference(u).String()
}

// Attr returns an attribute value or "".
func Attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

// Class returns the class attribute.
func Class(s *goquery.Selection) string {
	return Attr(s, "class")
}
