package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/browser"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/config"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/database"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/notify"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/ratelimit"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/scraper"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/storage"
)

// runService implements api.RunService. One browser session backs the whole
// process, so at most one scrape run is active at a time.
type runService struct {
	cfg       *config.Config
	db        *database.DB
	browser   *browser.Browser
	publisher *notify.Publisher
	syncs     []*remote.Sync
	logger    *slog.Logger

	mu     sync.Mutex
	active bool
}

func newRunService(cfg *config.Config, db *database.DB, b *browser.Browser, publisher *notify.Publisher, syncs []*remote.Sync, logger *slog.Logger) *runService {
	return &runService{
		cfg:       cfg,
		db:        db,
		browser:   b,
		publisher: publisher,
		syncs:     syncs,
		logger:    logger.With("component", "run_service"),
	}
}

func (s *runService) StartRun(ctx context.Context) (*database.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil, errors.New("a run is already in progress")
	}

	// Triggered runs are debug-capped, matching the scheduled invocation of
	// the scraper: a few pages per category, uploaded right away.
	run := &database.Run{
		ID:         uuid.NewString(),
		Site:       s.cfg.Site.Name,
		Categories: s.cfg.Site.Categories,
		MaxPages:   config.DebugMaxPages,
		Status:     database.RunStatusRunning,
		StartedAt:  time.Now(),
	}
	if err := s.db.InsertRun(ctx, run); err != nil {
		return nil, err
	}

	s.active = true
	go s.execute(run)
	return run, nil
}

func (s *runService) execute(run *database.Run) {
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	logger := s.logger.With("run_id", run.ID)

	runCfg := *s.cfg
	runCfg.Scraper.MaxPages = run.MaxPages
	runCfg.Output.File = fmt.Sprintf("item_urls_%s%s",
		run.StartedAt.Format(storage.FileTimestampLayout), storage.URLFileSuffix)

	page, err := s.browser.NewPage()
	if err != nil {
		s.fail(ctx, run.ID, fmt.Errorf("failed to open page: %w", err))
		return
	}
	defer page.Close()

	if err := s.browser.DismissConsent(page, runCfg.Site.BaseURL, runCfg.Scraper.Country); err != nil {
		s.fail(ctx, run.ID, err)
		return
	}

	extractor := scraper.NewLinkExtractor("", logger)
	pager := browser.NewListingPager(page, extractor, runCfg.Scraper.WaitTimeout, logger)
	walker := scraper.NewWalker(
		ratelimit.NewRandomDelay(runCfg.Scraper.DelayMin, runCfg.Scraper.DelayMax), logger)
	urlStore := storage.NewURLStore(logger)

	runner := scraper.NewRunner(&runCfg, pager, walker, urlStore, s.syncs, logger)
	result, err := runner.Run(ctx)
	if err != nil {
		s.fail(ctx, run.ID, err)
		return
	}

	if err := s.db.CompleteRun(ctx, run.ID, result.PagesScraped, result.URLsFound, result.Summary); err != nil {
		logger.Error("failed to record run completion", "error", err)
	}

	if s.publisher != nil {
		event := notify.RunEvent{
			RunID:        run.ID,
			Site:         runCfg.Site.Name,
			Categories:   runCfg.Site.Categories,
			URLsFound:    result.URLsFound,
			UploadedKeys: result.UploadedKeys,
			CompletedAt:  result.CompletedAt,
		}
		if err := s.publisher.PublishRunCompleted(ctx, event); err != nil {
			logger.Error("failed to publish run event", "error", err)
		}
	}
}

func (s *runService) fail(ctx context.Context, id string, runErr error) {
	s.logger.Error("run failed", "run_id", id, "error", runErr)
	if err := s.db.FailRun(ctx, id, runErr.Error()); err != nil {
		s.logger.Error("failed to record run failure", "run_id", id, "error", err)
	}
}

func (s *runService) GetRun(ctx context.Context, id string) (*database.Run, error) {
	return s.db.GetRun(ctx, id)
}

func (s *runService) ListRuns(ctx context.Context, limit int) ([]*database.Run, error) {
	return s.db.ListRuns(ctx, limit)
}

// Status opens a probe page against the home URL and reports what the
// browser sees. Failure here means the session is unusable.
func (s *runService) Status(ctx context.Context) (string, error) {
	page, err := s.browser.NewPage()
	if err != nil {
		return "", err
	}
	defer page.Close()

	if _, err := page.Goto(s.cfg.Site.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", fmt.Errorf("failed to reach %s: %w", s.cfg.Site.BaseURL, err)
	}

	title, err := page.Title()
	if err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return fmt.Sprintf("%s - %s", title, page.URL()), nil
}
