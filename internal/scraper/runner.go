package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/config"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/itemurl"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/storage"
)

// Runner sequences a whole run: walk every configured category, deduplicate
// the URL files, push artifacts to each enabled backend and optionally clean
// local data.
type Runner struct {
	cfg    *config.Config
	pager  Pager
	walker *Walker
	store  *storage.URLStore
	syncs  []*remote.Sync
	logger *slog.Logger
}

func NewRunner(cfg *config.Config, pager Pager, walker *Walker, store *storage.URLStore, syncs []*remote.Sync, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		pager:  pager,
		walker: walker,
		store:  store,
		syncs:  syncs,
		logger: logger.With("component", "run_controller"),
	}
}

// RunResult is the user-visible outcome of a run. Anomalies along the way
// are visible only in logs.
type RunResult struct {
	Summary      string
	PagesScraped int
	URLsFound    int
	UploadedKeys []string
	StartedAt    time.Time
	CompletedAt  time.Time
}

// Run executes the full pipeline. Only an unreachable browser session or an
// unwritable local disk abort the run; page anomalies and backend failures
// are logged and worked around.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{StartedAt: start}

	for _, category := range r.cfg.Site.Categories {
		startingURL := itemurl.StartingURL(r.cfg.Site.BaseURL, category, r.cfg.Site.CatalogSection)
		r.logger.Info("scraping category", "category", category, "starting_url", startingURL)

		session := &Session{
			Category:    category,
			StartingURL: startingURL,
			OutputPath:  r.outputPath(category),
			PageLimit:   r.cfg.Scraper.MaxPages,
		}

		finalPage, err := r.walker.Walk(ctx, session, r.pager, r.store)
		if err != nil {
			return nil, fmt.Errorf("walk of category %s failed: %w", category, err)
		}
		result.PagesScraped += finalPage

		r.logger.Info("scraping finished",
			"category", category, "final_page", finalPage, "output", session.OutputPath)
	}

	r.dedupe(result)
	r.upload(ctx, result)

	if r.cfg.Output.CleanLocal {
		r.cleanLocal()
	}

	result.CompletedAt = time.Now()
	result.Summary = r.summary(result)
	r.logger.Info(result.Summary)
	return result, nil
}

func (r *Runner) outputPath(category string) string {
	return storage.FilePath(r.cfg.Output.Dir, r.cfg.Site.Name, category, r.cfg.Output.File)
}

// dedupe rewrites each category's URL file without duplicates. A category
// whose walk produced no file (every page extracted nothing) is skipped.
func (r *Runner) dedupe(result *RunResult) {
	r.logger.Info("removing duplicates from scraped item urls")
	for _, category := range r.cfg.Site.Categories {
		path := r.outputPath(category)
		if _, err := os.Stat(path); err != nil {
			r.logger.Warn("no url file to deduplicate", "category", category, "path", path)
			continue
		}

		before, after, err := r.store.Dedupe(path)
		if err != nil {
			r.logger.Warn("failed to deduplicate url file", "path", path, "error", err)
			continue
		}
		result.URLsFound += after
		r.logger.Info("deduplicated url file", "category", category, "before", before, "after", after)
	}
}

// upload pushes the run log and every category's URL file to each enabled
// backend. Backends fail independently: an unreachable one is logged and the
// remaining uploads still run.
func (r *Runner) upload(ctx context.Context, result *RunResult) {
	for _, sync := range r.syncs {
		r.logger.Info("uploading log and item urls", "backend", sync.Name())

		logFile := r.cfg.LogFile()
		if _, err := os.Stat(logFile); err == nil {
			if err := sync.UploadFile(ctx, logFile, logFile); err != nil {
				r.logger.Warn("failed to upload run log", "backend", sync.Name(), "error", err)
			}
		}

		for _, category := range r.cfg.Site.Categories {
			path := r.outputPath(category)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			key := remote.ArtifactKey(r.cfg.Site.Name, category, r.cfg.Output.File)
			if err := sync.UploadFile(ctx, path, key); err != nil {
				r.logger.Warn("failed to upload url file",
					"backend", sync.Name(), "category", category, "error", err)
				continue
			}
			result.UploadedKeys = append(result.UploadedKeys, key)
		}
	}
}

func (r *Runner) cleanLocal() {
	r.logger.Info("cleaning local data, removing logs and scraped item urls")
	if err := os.RemoveAll(r.cfg.Logging.Dir); err != nil {
		r.logger.Warn("failed to remove log directory", "error", err)
	}
	if err := os.RemoveAll(r.cfg.Output.Dir); err != nil {
		r.logger.Warn("failed to remove output directory", "error", err)
	}
}

func (r *Runner) summary(result *RunResult) string {
	const layout = "2006-01-02 15:04:05"
	return fmt.Sprintf("%s item_urls for %s categories were scraped. It took %s. Start time %s - end time %s.",
		r.cfg.Site.Name,
		strings.Join(r.cfg.Site.Categories, ", "),
		result.CompletedAt.Sub(result.StartedAt).Round(time.Second),
		result.StartedAt.Format(layout),
		result.CompletedAt.Format(layout))
}
