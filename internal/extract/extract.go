package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/pagelens/internal/heuristics"
	"github.com/hyperifyio/pagelens/internal/page"
)

// DefaultMaxChars bounds the text sent to the model.
const DefaultMaxChars = 15000

// TruncationMarker is appended when text was cut at MaxChars.
const TruncationMarker = "..."

// Info describes where the text came from.
type Info struct {
	Source         string `json:"source"`
	Length         int    `json:"length"`
	HasMainElement bool   `json:"hasMainElement"`
	FallbackUsed   bool   `json:"fallbackUsed"`
}

// Result is the cleaned page text plus provenance.
type Result struct {
	Text     string
	Info     Info
	Selector string
	Stats    Stats
}

// Stats counts removals per pass for diagnostics.
type Stats struct {
	Denylisted  int
	Attributes  int
	SmallBlocks int
	ByCategory  map[heuristics.Category]int
}

// Options tunes the cleaner. Zero values select defaults.
type Options struct {
	MaxChars int
}

func (o Options) maxChars() int {
	if o.MaxChars <= 0 {
		return DefaultMaxChars
	}
	return o.MaxChars
}

// ChooseRoot walks heuristics.ContentRoots in priority order and returns the
// first element matched. ok is false only when the document has no body.
func ChooseRoot(doc *page.Document) (*goquery.Selection, heuristics.Candidate, bool) {
	for _, c := range heuristics.ContentRoots {
		if s := doc.Find(c.Selector).First(); s.Length() > 0 {
			return s, c, true
		}
	}
	return nil, heuristics.Candidate{Label: heuristics.UnknownLabel}, false
}

// FromDocument picks the content root and cleans a clone of it. The live
// document is never modified.
func FromDocument(doc *page.Document, opts Options) Result {
	res := Result{Info: Info{Source: heuristics.UnknownLabel}}
	res.Info.HasMainElement = doc.Find("main").Length() > 0

	root, cand, ok := ChooseRoot(doc)
	if !ok {
		log.Debug().Msg("no content root found")
		return res
	}
	res.Selector = cand.Selector
	res.Info.Source = cand.Label
	res.Info.FallbackUsed = cand.Label == heuristics.FallbackLabel
	log.Debug().Str("source", cand.Label).Msg("content root selected")

	res.Text, res.Stats = Clean(root, opts)
	res.Info.Length = utf8.RuneCountInString(res.Text)
	log.Debug().
		Int("denylisted", res.Stats.Denylisted).
		Int("attributes", res.Stats.Attributes).
		Int("small_blocks", res.Stats.SmallBlocks).
		Int("length", res.Info.Length).
		Msg("content cleaned")
	return res
}

// Clean deep-clones root, strips boilerplate subtrees and returns the
// collapsed, bounded text.
func Clean(root *goquery.Selection, opts Options) (string, Stats) {
	clone := root.First().Clone()
	st := Stats{ByCategory: map[heuristics.Category]int{}}

	for _, g := range denylist {
		for _, sel := range g.matchers {
			m := clone.FindMatcher(sel)
			if n := m.Length(); n > 0 {
				st.Denylisted += n
				st.ByCategory[g.category] += n
				m.Remove()
			}
		}
	}
	for _, sel := range attributeNoise {
		m := clone.FindMatcher(sel)
		st.Attributes += m.Length()
		m.Remove()
	}

	// Collected up front; text is measured against the tree as it shrinks.
	clone.Find(heuristics.SmallBlockSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) >= heuristics.MinBlockTextLen {
			return
		}
		if s.Find(heuristics.EmbeddedMediaSelector).Length() > 0 {
			return
		}
		s.Remove()
		st.SmallBlocks++
	})

	var b strings.Builder
	for _, n := range clone.Nodes {
		collectText(&b, n)
	}
	text := normalizeWhitespace(norm.NFC.String(b.String()))
	return truncate(text, opts.maxChars()), st
}

type compiledGroup struct {
	category heuristics.Category
	matchers []goquery.Matcher
}

// The tables are static, so their selectors are compiled once.
var (
	denylist       = compileDenylist()
	attributeNoise = compileAll(heuristics.AttributeNoise)
)

func compileDenylist() []compiledGroup {
	out := make([]compiledGroup, 0, len(heuristics.Denylist))
	for _, g := range heuristics.Denylist {
		out = append(out, compiledGroup{category: g.Category, matchers: compileAll(g.Selectors)})
	}
	return out
}

func compileAll(sels []string) []goquery.Matcher {
	out := make([]goquery.Matcher, 0, len(sels))
	for _, s := range sels {
		out = append(out, cascadia.MustCompile(s))
	}
	return out
}

// blockTags get a separator around them so adjacent blocks do not fuse
// words together.
var blockTags = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "caption": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "hr": true,
	"li": true, "main": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}
	block := n.Type == html.ElementNode && blockTags[strings.ToLower(n.Data)]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// normalizeWhitespace merges every whitespace run, newlines included, into
// a single space and trims the ends.
func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}
