package extract

import "github.com/hyperifyio/pagelens/internal/page"

// Extractor defines the text-extraction strategy used by the snapshot
// orchestrator. Implementations must not mutate the document.
type Extractor interface {
	Extract(doc *page.Document) Result
}

// HeuristicExtractor uses the prioritized content roots and the denylist.
type HeuristicExtractor struct {
	Options Options
}

func (h HeuristicExtractor) Extract(doc *page.Document) Result {
	return FromDocument(doc, h.Options)
}
