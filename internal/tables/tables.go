// Package tables normalizes <table> elements into header/rows/caption
// records.
package tables

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/pagelens/internal/page"
)

// Record is one extracted table. ID is 1-based in emission order.
type Record struct {
	ID      int        `json:"id"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Caption string     `json:"caption"`
}

// Extract scans every table of the live document in document order. Tables
// with neither headers nor data rows are dropped. Data rows shorter than the
// header are padded with empty cells; longer rows are kept whole. The
// result is never nil.
func Extract(doc *page.Document) []Record {
	out := make([]Record, 0)
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		rec := FromTable(t)
		if len(rec.Headers) == 0 && len(rec.Rows) == 0 {
			return
		}
		rec.ID = len(out) + 1
		out = append(out, rec)
	})
	return out
}

// FromTable normalizes a single table element. ID is left zero.
func FromTable(t *goquery.Selection) Record {
	rec := Record{Headers: []string{}, Rows: [][]string{}}
	table := t.Get(0)

	if c := ownCaption(t, table); c != nil {
		rec.Caption = strings.TrimSpace(c.Text())
	}

	rows := ownRows(t, table)
	if len(rows) == 0 {
		return rec
	}
	header := headerRow(rows)
	rec.Headers = cells(header)

	for _, r := range rows {
		if r == header {
			continue
		}
		row := cells(r)
		if len(row) == 0 {
			continue
		}
		for len(row) < len(rec.Headers) {
			row = append(row, "")
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec
}

// ownRows returns rows belonging to this table, skipping nested tables.
func ownRows(t *goquery.Selection, table *html.Node) []*goquery.Selection {
	var rows []*goquery.Selection
	t.Find("tr").Each(func(_ int, r *goquery.Selection) {
		if nearestTable(r.Get(0)) == table {
			rows = append(rows, r)
		}
	})
	return rows
}

func ownCaption(t *goquery.Selection, table *html.Node) *goquery.Selection {
	var found *goquery.Selection
	t.Find("caption").EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if nearestTable(c.Get(0)) == table {
			found = c
			return false
		}
		return true
	})
	return found
}

// headerRow prefers the first row inside a thead, else the first row.
func headerRow(rows []*goquery.Selection) *goquery.Selection {
	for _, r := range rows {
		if p := r.Get(0).Parent; p != nil && p.Type == html.ElementNode && p.Data == "thead" {
			return r
		}
	}
	return rows[0]
}

func cells(r *goquery.Selection) []string {
	out := []string{}
	r.ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

func nearestTable(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "table" {
			return p
		}
	}
	return nil
}
