package tables

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperifyio/pagelens/internal/page"
)

func parse(t *testing.T, src string) *page.Document {
	t.Helper()
	d, err := page.Parse(strings.NewReader(src), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestExtract_HeadersRowsCaption(t *testing.T) {
	doc := parse(t, `<table>
<caption> Prices </caption>
<thead><tr><th> Ticker </th><th>Last</th><th>Change</th></tr></thead>
<tbody>
<tr><td>ACME</td><td> 12.5 </td><td>+1%</td></tr>
<tr><td>INIT</td><td>7</td></tr>
<tr><td>WIDE</td><td>1</td><td>2</td><td>extra</td></tr>
</tbody></table>`)
	got := Extract(doc)
	if len(got) != 1 {
		t.Fatalf("expected one table, got %d", len(got))
	}
	want := Record{
		ID:      1,
		Caption: "Prices",
		Headers: []string{"Ticker", "Last", "Change"},
		Rows: [][]string{
			{"ACME", "12.5", "+1%"},
			{"INIT", "7", ""},
			{"WIDE", "1", "2", "extra"},
		},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Fatalf("got %+v\nwant %+v", got[0], want)
	}
}

func TestExtract_FirstRowIsHeaderWithoutThead(t *testing.T) {
	doc := parse(t, `<table><tr><td>Year</td><td>Sales</td></tr><tr><td>2024</td><td>10</td></tr></table>`)
	got := Extract(doc)
	if len(got) != 1 || !reflect.DeepEqual(got[0].Headers, []string{"Year", "Sales"}) {
		t.Fatalf("unexpected: %+v", got)
	}
	if !reflect.DeepEqual(got[0].Rows, [][]string{{"2024", "10"}}) {
		t.Fatalf("rows: %+v", got[0].Rows)
	}
}

func TestExtract_DropsEmptyTablesAndNumbersInOrder(t *testing.T) {
	doc := parse(t, `
<table></table>
<table><tr><th>Only header</th></tr></table>
<table><tbody></tbody></table>
<table><tr><td>a</td></tr><tr><td>b</td></tr></table>`)
	got := Extract(doc)
	if len(got) != 2 {
		t.Fatalf("expected two tables, got %d: %+v", len(got), got)
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("ids not sequential: %d %d", got[0].ID, got[1].ID)
	}
	if len(got[0].Rows) != 0 || got[0].Headers[0] != "Only header" {
		t.Fatalf("header-only table: %+v", got[0])
	}
	if got[0].Rows == nil {
		t.Fatalf("rows must be an empty slice, not nil")
	}
}

func TestExtract_NestedTablesStaySeparate(t *testing.T) {
	doc := parse(t, `<table><caption>Outer</caption>
<tr><th>Name</th><th>Detail</th></tr>
<tr><td>x</td><td><table><caption>Inner</caption><tr><th>k</th></tr><tr><td>v</td></tr></table></td></tr>
</table>`)
	got := Extract(doc)
	if len(got) != 2 {
		t.Fatalf("expected outer and inner, got %d", len(got))
	}
	outer, inner := got[0], got[1]
	if outer.Caption != "Outer" || len(outer.Rows) != 1 {
		t.Fatalf("outer: %+v", outer)
	}
	if inner.Caption != "Inner" || !reflect.DeepEqual(inner.Rows, [][]string{{"v"}}) {
		t.Fatalf("inner: %+v", inner)
	}
}

func TestExtract_NoTables(t *testing.T) {
	got := Extract(parse(t, "<p>nothing here</p>"))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
