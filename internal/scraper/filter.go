package scraper

import (
	"context"
	"log/slog"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/itemurl"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
)

// ScrapeFilter decides which collected item URLs still need full item
// scraping. An item counts as processed only when its id is recorded in the
// remote ledger AND its scraped image artifact exists; requiring both keeps
// partially failed prior runs (ledger written, image upload lost, or the
// reverse) from silently dropping items forever.
type ScrapeFilter struct {
	sync        *remote.Sync
	ledgerKey   string
	baseURL     string
	imagePrefix string
	logger      *slog.Logger
}

func NewScrapeFilter(sync *remote.Sync, ledgerKey, baseURL, imagePrefix string, logger *slog.Logger) *ScrapeFilter {
	return &ScrapeFilter{
		sync:        sync,
		ledgerKey:   ledgerKey,
		baseURL:     baseURL,
		imagePrefix: imagePrefix,
		logger:      logger.With("component", "scrape_filter"),
	}
}

// FilterUnprocessed returns the candidates not yet fully processed,
// preserving input order. Backend errors while checking a candidate keep the
// candidate in (retained for reprocessing) rather than dropping it.
func (f *ScrapeFilter) FilterUnprocessed(ctx context.Context, candidates []string) ([]string, error) {
	f.logger.Info("filtering out already scraped items", "candidates", len(candidates))

	scrapedIDs, err := f.sync.LedgerIDs(ctx, f.ledgerKey)
	if err != nil {
		return nil, err
	}
	f.logger.Info("found already scraped items", "count", len(scrapedIDs))

	var unprocessed []string
	for _, candidate := range candidates {
		id := itemurl.ID(candidate)
		_, inLedger := scrapedIDs[id]

		imgKey := itemurl.ImageKey(candidate, f.baseURL, f.imagePrefix, true)
		hasImage, err := f.sync.Exists(ctx, imgKey)
		if err != nil {
			f.logger.Warn("image existence check failed, retaining item", "id", id, "error", err)
			hasImage = false
		}

		if inLedger && hasImage {
			continue
		}
		unprocessed = append(unprocessed, candidate)
	}

	f.logger.Info("filtered candidates", "unprocessed", len(unprocessed))
	return unprocessed, nil
}
