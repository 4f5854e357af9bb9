package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/scraper"
)

// NextPageSelector matches the pagination control that advances to the next
// listing page.
const NextPageSelector = `a[class*='Pagination__next']`

// ListingPager implements scraper.Pager on a playwright page. Element-level
// failures are degraded to absence: an extraction anomaly yields no URLs and
// a missing or unclickable next-page control ends pagination. Only the
// initial navigation can fail the walk.
type ListingPager struct {
	page         playwright.Page
	extractor    *scraper.LinkExtractor
	nextSelector string
	waitTimeout  time.Duration
	logger       *slog.Logger
}

func NewListingPager(page playwright.Page, extractor *scraper.LinkExtractor, waitTimeout time.Duration, logger *slog.Logger) *ListingPager {
	return &ListingPager{
		page:         page,
		extractor:    extractor,
		nextSelector: NextPageSelector,
		waitTimeout:  waitTimeout,
		logger:       logger.With("component", "listing_pager"),
	}
}

func (p *ListingPager) Open(_ context.Context, url string) error {
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// ItemURLs waits for the listing grid to render and extracts the page's item
// links. A wait timeout means "no items on this page" and yields nothing.
func (p *ListingPager) ItemURLs(_ context.Context) []string {
	if _, err := p.page.WaitForSelector(p.extractor.Selector(), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(p.waitTimeout.Milliseconds())),
	}); err != nil {
		p.logger.Warn("items were not returned", "error", err)
		return nil
	}

	html, err := p.page.Content()
	if err != nil {
		p.logger.Warn("failed to read page content", "error", err)
		return nil
	}
	return p.extractor.FromHTML(html)
}

// NextPage locates the next-page control and clicks it. False means the
// current page is the last one, or the control could not be used; either way
// pagination ends.
func (p *ListingPager) NextPage(_ context.Context) bool {
	if _, err := p.page.WaitForSelector(p.nextSelector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(p.waitTimeout.Milliseconds())),
	}); err != nil {
		p.logger.Info("next page button was not found", "error", err)
		return false
	}

	if err := p.page.Locator(p.nextSelector).First().Click(); err != nil {
		p.logger.Warn("failed to click next page button", "error", err)
		return false
	}
	return true
}
