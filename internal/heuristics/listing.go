package heuristics

// Selectors for real-estate listing pages, whose result cards are rendered
// as structured Markdown instead of flattened text.
const (
	ListingItemSelector    = "section.items-container article.item"
	ListingAdClass         = "adv"
	ListingLinkSelector    = "a.item-link"
	ListingPriceSelector   = "span.item-price"
	ListingDetailSelector  = ".item-detail-char .item-detail"
	ListingSummarySelector = ".item-description p"
)

// ListingLabel is the content source reported for listing pages.
const ListingLabel = "Idealista Lister Scraper"

// ListingHosts are the hosts whose listing markup the selectors describe.
var ListingHosts = []string{"idealista.it"}

// ListingMinItems is the item count a page must exceed to count as a list.
const ListingMinItems = 1
