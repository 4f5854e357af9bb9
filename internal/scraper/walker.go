package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/ratelimit"
)

// Session tracks one category's walk. It is created when the walk starts,
// advanced each page and discarded when the walk ends.
type Session struct {
	Category    string
	StartingURL string
	OutputPath  string
	PageCursor  int
	// PageLimit caps the number of pages extracted. Zero is invalid and a
	// negative value means no cap.
	PageLimit int
}

// Pager is the browser-facing capability the walker drives. Element-level
// anomalies never surface as errors: ItemURLs returns an empty slice when
// nothing is found and NextPage returns false when the control is absent or
// unclickable, so a flaky page ends pagination early and cleanly.
type Pager interface {
	// Open navigates to the starting listing page. Its failure is the only
	// one the walker propagates.
	Open(ctx context.Context, url string) error
	// ItemURLs extracts the item links of the current page.
	ItemURLs(ctx context.Context) []string
	// NextPage locates and clicks the next-page control, reporting whether
	// pagination advanced.
	NextPage(ctx context.Context) bool
}

// Sink receives each page's extracted URLs. Duplicates are accepted; the
// post-run dedupe pass removes them.
type Sink interface {
	AppendURLs(path string, urls []string) error
}

// Walker owns the per-category pagination loop.
type Walker struct {
	limiter ratelimit.Waiter
	logger  *slog.Logger
}

func NewWalker(limiter ratelimit.Waiter, logger *slog.Logger) *Walker {
	return &Walker{
		limiter: limiter,
		logger:  logger.With("component", "pagination_walker"),
	}
}

// Walk loads the session's starting page and walks pagination until the
// next-page control is absent or the page limit is reached, appending every
// page's links to the sink. The absent control is the success terminal
// state. It returns the final page cursor.
func (w *Walker) Walk(ctx context.Context, session *Session, pager Pager, sink Sink) (int, error) {
	if session.PageLimit == 0 {
		return 0, fmt.Errorf("invalid page limit 0: at least the starting page must be scraped")
	}

	if err := pager.Open(ctx, session.StartingURL); err != nil {
		return 0, fmt.Errorf("failed to open starting page %s: %w", session.StartingURL, err)
	}
	session.PageCursor = 1

	for {
		w.logger.Info("scraping page", "category", session.Category, "page", session.PageCursor)

		urls := pager.ItemURLs(ctx)
		w.logger.Info("scraped urls", "category", session.Category, "page", session.PageCursor, "count", len(urls))

		if err := w.limiter.Wait(ctx); err != nil {
			return session.PageCursor, err
		}

		if err := sink.AppendURLs(session.OutputPath, urls); err != nil {
			return session.PageCursor, fmt.Errorf("failed to persist page urls: %w", err)
		}

		if session.PageLimit > 0 && session.PageCursor >= session.PageLimit {
			w.logger.Info("page limit reached", "category", session.Category, "page", session.PageCursor)
			break
		}

		if !pager.NextPage(ctx) {
			w.logger.Info("there are no more pages", "category", session.Category, "page", session.PageCursor)
			break
		}
		session.PageCursor++

		if err := w.limiter.Wait(ctx); err != nil {
			return session.PageCursor, err
		}
	}

	return session.PageCursor, nil
}
