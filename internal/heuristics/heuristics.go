// Package heuristics holds the static selector tables used by the extraction
// pipeline. Everything here is data; order is significant where noted.
package heuristics

// Candidate is a content-root selector with the label reported as the
// content source when it wins.
type Candidate struct {
	Selector string
	Label    string
}

// FallbackLabel is reported when no specific container matched and the
// whole body was used.
const FallbackLabel = "full page body"

// UnknownLabel is reported when not even the body could be found.
const UnknownLabel = "unknown"

// ContentRoots is evaluated in order; the first selector matching any
// element wins. The body entry must stay last.
var ContentRoots = []Candidate{
	{Selector: "article", Label: "article element"},
	{Selector: "main", Label: "main element"},
	{Selector: `[role="main"]`, Label: "main role"},
	{Selector: ".content", Label: "content class"},
	{Selector: ".post-content", Label: "post content"},
	{Selector: ".entry-content", Label: "entry content"},
	{Selector: ".article-content", Label: "article content"},
	{Selector: "#content", Label: "content id"},
	{Selector: ".main-content", Label: "main content class"},
	{Selector: "body", Label: FallbackLabel},
}

// Category groups denylist selectors for diagnostics.
type Category string

const (
	Navigation    Category = "navigation"
	Sidebar       Category = "sidebar"
	Advertising   Category = "advertising"
	Social        Category = "social"
	Comments      Category = "comments"
	Related       Category = "related"
	References    Category = "references"
	Metadata      Category = "metadata"
	Search        Category = "search"
	Legal         Category = "legal"
	Popups        Category = "popups"
	Accessibility Category = "accessibility"
	Technical     Category = "technical"
	CMS           Category = "cms"
	Media         Category = "media"
	Identifiers   Category = "identifiers"
)

// Group is one semantic category of unwanted-subtree selectors.
type Group struct {
	Category  Category
	Selectors []string
}

// Denylist is deliberately over-inclusive. Losing some real content is
// accepted in exchange for stripping boilerplate.
var Denylist = []Group{
	{Navigation, []string{
		"nav", "header", "footer", "aside",
		".nav", ".navigation", ".menu", ".navbar", ".nav-bar",
		".breadcrumb", ".breadcrumbs", ".crumb", ".crumbs",
		".pagination", ".pager", ".page-nav",
	}},
	{Sidebar, []string{
		".sidebar", ".side-bar", ".widget", ".widgets",
		".left-sidebar", ".right-sidebar", ".sidebar-left", ".sidebar-right",
		".secondary", ".tertiary", ".complementary",
	}},
	{Advertising, []string{
		".advertisement", ".ad", ".ads", ".advert", ".banner",
		".promo", ".promotion", ".promotional", ".sponsored",
		".affiliate", ".marketing", ".campaign",
	}},
	{Social, []string{
		".social", ".social-share", ".share", ".sharing",
		".follow", ".subscribe", ".newsletter",
		".social-media", ".social-links", ".social-icons",
	}},
	{Comments, []string{
		".comments", ".comment", ".comment-section",
		".reviews", ".review", ".rating", ".ratings",
		".feedback", ".discussion", ".replies",
	}},
	{Related, []string{
		".related", ".related-posts", ".related-articles",
		".recommended", ".suggestions", ".more-posts",
		".popular", ".trending", ".you-might-like",
	}},
	{References, []string{
		".footnotes", ".footnote", ".references", ".refs",
		".endnotes", ".bibliography", ".citations",
	}},
	{Metadata, []string{
		".meta", ".metadata", ".post-meta", ".article-meta",
		".byline", ".author-info", ".publish-date",
		".tags", ".categories", ".taxonomy",
	}},
	{Search, []string{
		".search", ".search-form", ".filter", ".filters",
		".sort", ".sorting", ".facets",
	}},
	{Legal, []string{
		".cookie", ".cookies", ".gdpr", ".privacy-notice",
		".legal", ".disclaimer", ".terms",
	}},
	{Popups, []string{
		".popup", ".modal", ".overlay", ".lightbox",
		".tooltip", ".dropdown", ".flyout",
	}},
	{Accessibility, []string{
		".skip-link", ".skip-nav", ".screen-reader",
		".sr-only", ".visually-hidden", ".accessibility",
	}},
	{Technical, []string{
		"script", "style", "noscript", "iframe", "template",
		".embed", ".embedded", ".video-player",
	}},
	{CMS, []string{
		".wp-block-group", ".wp-block-columns", ".wp-block-sidebar",
		".elementor-widget", ".vc_row", ".fusion-builder",
		".et_pb_section", ".et_pb_row",
	}},
	{Media, []string{
		".print-only", ".no-print", ".mobile-only", ".desktop-only",
	}},
	{Identifiers, []string{
		"#header", "#footer", "#sidebar", "#navigation",
		"#comments", "#related", "#social", "#ads",
	}},
}

// AttributeNoise matches elements by ARIA role or class/data attributes
// signalling banners, navigation, ads and widgets.
var AttributeNoise = []string{
	`[role="banner"]`, `[role="navigation"]`, `[role="complementary"]`,
	`[role="contentinfo"]`, `[role="search"]`, `[role="form"]`,
	"[data-ad]", "[data-advertisement]", "[data-widget]",
	`[class*="ad-"]`, `[class*="advertisement"]`, `[class*="promo"]`,
	`[class*="sidebar"]`, `[class*="widget"]`, `[class*="social"]`,
}

// MinBlockTextLen is the trimmed text length under which a div/p/span with
// no embedded media is dropped as layout noise.
const MinBlockTextLen = 10

// SmallBlockSelector lists the leaf-like text-bearing tags examined for
// small-noise removal.
const SmallBlockSelector = "div, p, span"

// EmbeddedMediaSelector marks a small block as worth keeping.
const EmbeddedMediaSelector = "img, video, canvas"

// DenylistSelectors flattens Denylist in declaration order.
func DenylistSelectors() []string {
	n := 0
	for _, g := range Denylist {
		n += len(g.Selectors)
	}
	out := make([]string, 0, n)
	for _, g := range Denylist {
		out = append(out, g.Selectors...)
	}
	return out
}
