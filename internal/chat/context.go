// Package chat turns page snapshots and a running conversation into model
// requests. A Session owns the page context and history; each outgoing
// message goes through a Draft where attached screenshots are chosen.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/pagelens/internal/raster"
	"github.com/hyperifyio/pagelens/internal/snapshot"
	"github.com/hyperifyio/pagelens/internal/tables"
	"github.com/hyperifyio/pagelens/internal/visual"
)

// ErrNoContext is returned when no page could be loaded.
var ErrNoContext = errors.New("no page content available")

// PageContext is what the model is told about the page(s).
type PageContext struct {
	Title   string
	URL     string
	Content string
	Tables  []tables.Record
	Charts  []visual.Element
	Images  []visual.Element
	// Pages lists the titles merged into a multi-page context.
	Pages []string
}

// MultiPage reports whether several snapshots were merged.
func (c *PageContext) MultiPage() bool { return len(c.Pages) > 1 }

// FromSnapshot builds a single-page context.
func FromSnapshot(s *snapshot.PageSnapshot) PageContext {
	return PageContext{
		Title:   s.Title,
		URL:     s.URL,
		Content: s.TextContent,
		Tables:  s.Tables,
		Charts:  s.Charts,
		Images:  s.Images,
		Pages:   []string{s.Title},
	}
}

// Merge combines several snapshots. Content is concatenated under per-page
// headings; tables and visual elements are appended in order. Nil
// snapshots are skipped.
func Merge(snaps []*snapshot.PageSnapshot) (PageContext, error) {
	var live []*snapshot.PageSnapshot
	for _, s := range snaps {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return PageContext{}, ErrNoContext
	case 1:
		return FromSnapshot(live[0]), nil
	}
	c := PageContext{
		Title: fmt.Sprintf("%d tabs selected", len(live)),
		URL:   fmt.Sprintf("Multiple tabs (%d)", len(live)),
	}
	parts := make([]string, 0, len(live))
	for _, s := range live {
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", s.Title, s.TextContent))
		c.Tables = append(c.Tables, s.Tables...)
		c.Charts = append(c.Charts, s.Charts...)
		c.Images = append(c.Images, s.Images...)
		c.Pages = append(c.Pages, s.Title)
	}
	c.Content = strings.Join(parts, "\n\n")
	return c, nil
}

// Screenshots lists distinct captured rasters across charts and images.
func (c *PageContext) Screenshots() []string {
	set := raster.NewDedupSet()
	out := []string{}
	for _, group := range [][]visual.Element{c.Charts, c.Images} {
		for _, e := range group {
			if e.Screenshot != "" && set.Add(e.Screenshot) {
				out = append(out, e.Screenshot)
			}
		}
	}
	return out
}
