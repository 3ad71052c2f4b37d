// Package snapshot assembles the structured page snapshot handed to the
// chat layer: title, url, cleaned text, tables, charts, images and
// metadata.
package snapshot

import (
	"strings"

	"github.com/hyperifyio/pagelens/internal/extract"
	"github.com/hyperifyio/pagelens/internal/page"
	"github.com/hyperifyio/pagelens/internal/raster"
	"github.com/hyperifyio/pagelens/internal/tables"
	"github.com/hyperifyio/pagelens/internal/visual"
)

// Metadata holds the descriptive <meta> values. Keywords keep first-seen
// order without duplicates.
type Metadata struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Author      string   `json:"author"`
}

// PageSnapshot is created fresh for each extraction and not modified after
// it is returned.
type PageSnapshot struct {
	Title       string           `json:"title"`
	URL         string           `json:"url"`
	TextContent string           `json:"textContent"`
	Tables      []tables.Record  `json:"tables"`
	Charts      []visual.Element `json:"charts"`
	Images      []visual.Element `json:"images"`
	Metadata    Metadata         `json:"metadata"`
	ContentInfo extract.Info     `json:"contentInfo"`
}

// Screenshots returns the captured rasters of charts then images, with
// byte-identical captures kept once.
func (p *PageSnapshot) Screenshots() []string {
	set := raster.NewDedupSet()
	out := []string{}
	add := func(els []visual.Element) {
		for _, e := range els {
			if e.Screenshot == "" {
				continue
			}
			if set.Add(e.Screenshot) {
				out = append(out, e.Screenshot)
			}
		}
	}
	add(p.Charts)
	add(p.Images)
	return out
}

// ReadMetadata reads description, keywords and author.
func ReadMetadata(doc *page.Document) Metadata {
	m := Metadata{Keywords: []string{}}
	m.Description, _ = doc.Meta("description")
	m.Author, _ = doc.Meta("author")
	if kw, ok := doc.Meta("keywords"); ok {
		m.Keywords = SplitKeywords(kw)
	}
	return m
}

// SplitKeywords splits a comma-separated keyword list, trimming entries and
// dropping empties and repeats.
func SplitKeywords(s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func empty(doc *page.Document) *PageSnapshot {
	return &PageSnapshot{
		URL:      doc.URL,
		Tables:   []tables.Record{},
		Charts:   []visual.Element{},
		Images:   []visual.Element{},
		Metadata: Metadata{Keywords: []string{}},
	}
}
