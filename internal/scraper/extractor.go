// Package scraper implements the pagination-and-deduplication pipeline: link
// extraction from listing pages, the per-category page walk, filtering of
// already scraped items and the run controller sequencing it all.
package scraper

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultItemLinkSelector matches the anchors of the listing grid. Each item
// card emits two anchors, one for the seller and one for the item.
const DefaultItemLinkSelector = `div[class='feed-grid__item'] a[href]`

// LinkExtractor pulls item URLs out of a rendered listing page using the
// paired-link heuristic: anchors are collected in DOM order and every
// odd-indexed one (0-based) is the item link.
type LinkExtractor struct {
	selector string
	logger   *slog.Logger
}

func NewLinkExtractor(selector string, logger *slog.Logger) *LinkExtractor {
	if selector == "" {
		selector = DefaultItemLinkSelector
	}
	return &LinkExtractor{
		selector: selector,
		logger:   logger.With("component", "link_extractor"),
	}
}

// Selector returns the CSS selector the extractor matches, for callers that
// need to wait for the listing grid to render first.
func (e *LinkExtractor) Selector() string { return e.selector }

// FromHTML extracts item URLs from rendered listing-page HTML. An odd anchor
// count means the paired-link assumption no longer holds for this page, so
// extraction yields nothing rather than a guess. Duplicates within a page
// are kept; the file-level dedupe pass removes them later.
func (e *LinkExtractor) FromHTML(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("failed to parse listing page", "error", err)
		return nil
	}

	var hrefs []string
	doc.Find(e.selector).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})

	e.logger.Info("found links", "count", len(hrefs))

	if len(hrefs)%2 != 0 {
		// Heuristic drift: a cosmetic site change added or removed a link
		// per card. Warn loudly, return nothing.
		e.logger.Warn("odd number of listing links, refusing partial extraction", "count", len(hrefs))
		return nil
	}

	items := make([]string, 0, len(hrefs)/2)
	for i := 1; i < len(hrefs); i += 2 {
		items = append(items, hrefs[i])
	}
	return items
}
