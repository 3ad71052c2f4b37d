package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagelens/internal/heuristics"
	"github.com/hyperifyio/pagelens/internal/page"
)

// ListingExtractor renders listing pages (more than one result card on a
// known host) as a Markdown summary and hands every other page to Next.
type ListingExtractor struct {
	// Next handles non-listing pages. Nil uses HeuristicExtractor.
	Next Extractor
	// Hosts overrides heuristics.ListingHosts.
	Hosts []string
}

func (l ListingExtractor) Extract(doc *page.Document) Result {
	items := doc.Find(heuristics.ListingItemSelector)
	if items.Length() > heuristics.ListingMinItems && l.knownHost(doc.URL) {
		return listingResult(doc, items)
	}
	if l.Next != nil {
		return l.Next.Extract(doc)
	}
	return HeuristicExtractor{}.Extract(doc)
}

func (l ListingExtractor) knownHost(u string) bool {
	hosts := l.Hosts
	if hosts == nil {
		hosts = heuristics.ListingHosts
	}
	for _, h := range hosts {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// listingResult numbers cards by their position among all items, so
// skipped advertising cards leave gaps. The summary is not truncated.
func listingResult(doc *page.Document, items *goquery.Selection) Result {
	var b strings.Builder
	b.WriteString("# Property Listings Summary\n\n")
	kept := 0
	items.Each(func(i int, item *goquery.Selection) {
		if item.HasClass(heuristics.ListingAdClass) {
			return
		}
		kept++
		title, link := "No title", "#"
		if a := item.Find(heuristics.ListingLinkSelector).First(); a.Length() > 0 {
			title = strings.TrimSpace(page.Attr(a, "title"))
			link = doc.Resolve(page.Attr(a, "href"))
		}
		price := "N/A"
		if p := item.Find(heuristics.ListingPriceSelector).First(); p.Length() > 0 {
			price = strings.TrimSpace(p.Text())
		}
		var details []string
		item.Find(heuristics.ListingDetailSelector).Each(func(_ int, d *goquery.Selection) {
			if t := strings.TrimSpace(d.Text()); t != "" {
				details = append(details, t)
			}
		})
		summary := "No description."
		if p := item.Find(heuristics.ListingSummarySelector).First(); p.Length() > 0 {
			summary = strings.TrimSpace(p.Text())
		}

		fmt.Fprintf(&b, "## %d. [%s](%s)\n", i+1, title, link)
		fmt.Fprintf(&b, "- **Price:** %s\n", price)
		fmt.Fprintf(&b, "- **Details:** %s\n", strings.Join(details, " | "))
		fmt.Fprintf(&b, "- **Description:** %s\n\n---\n\n", summary)
	})
	text := b.String()
	log.Debug().Int("items", items.Length()).Int("kept", kept).Msg("listing page summarized")
	return Result{
		Text: text,
		Info: Info{
			Source:         heuristics.ListingLabel,
			Length:         utf8.RuneCountInString(text),
			HasMainElement: doc.Find("main").Length() > 0,
		},
		Selector: heuristics.ListingItemSelector,
	}
}
