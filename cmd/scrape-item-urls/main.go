// Command scrape-item-urls walks the listing pages of the given categories,
// persists every discovered item URL locally and pushes the deduplicated
// files plus the run log to the enabled object stores.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/browser"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/config"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/ratelimit"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/scraper"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/storage"
)

var (
	maxPages       int
	outputDir      string
	outputFile     string
	saveToS3       bool
	saveToGCS      bool
	cleanLocalData bool
	debugMode      bool
	inDocker       bool
)

var rootCmd = &cobra.Command{
	Use:   "scrape-item-urls [categories...]",
	Short: "Harvest item listing URLs from catalog category pages",
	Long: `Walks the paginated listing pages of each given category, extracts the
item URLs, deduplicates them per category and optionally uploads the
resulting files to S3 and/or GCS.`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0,
		"max number of pages to be scraped, set some low number for debugging")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "data",
		"output directory where all the scraped data will be saved")
	rootCmd.Flags().StringVarP(&outputFile, "output-file", "f", "",
		"output file where all the scraped data will be saved")
	rootCmd.Flags().BoolVar(&saveToS3, "save-to-s3", false, "save scraped data to S3")
	rootCmd.Flags().BoolVar(&saveToGCS, "save-to-gcs", false, "save scraped data to GCS")
	rootCmd.Flags().BoolVar(&cleanLocalData, "clean-local-data", false,
		"remove local logs and scraped data at the end")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "scrape only a tiny part of the website")
	rootCmd.Flags().BoolVar(&inDocker, "in-docker", false, "run the headless driver only")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cfg.Site.Categories = args
	cfg.Output.Dir = outputDir
	cfg.Output.CleanLocal = cleanLocalData
	cfg.Scraper.Debug = debugMode
	cfg.Scraper.InDocker = inDocker
	cfg.Remote.SaveToS3 = saveToS3
	cfg.Remote.SaveToGCS = saveToGCS

	if maxPages != 0 {
		cfg.Scraper.MaxPages = maxPages
	}
	if debugMode {
		cfg.Scraper.MaxPages = config.DebugMaxPages
	}

	cfg.Output.File = outputFile
	if cfg.Output.File == "" {
		cfg.Output.File = fmt.Sprintf("item_urls_%s%s",
			time.Now().Format(storage.FileTimestampLayout), storage.URLFileSuffix)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if debugMode {
		logger.Info("running in a debug mode")
	}
	logger.Info("given arguments",
		"categories", cfg.Site.Categories,
		"max_pages", cfg.Scraper.MaxPages,
		"output_dir", cfg.Output.Dir,
		"output_file", cfg.Output.File,
		"save_to_s3", saveToS3,
		"save_to_gcs", saveToGCS,
		"clean_local_data", cleanLocalData)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncs, err := buildSyncs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("setting up driver")
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Scraper.Headless
	opts.InDocker = cfg.Scraper.InDocker
	opts.Timeout = cfg.Scraper.WaitTimeout
	b, err := browser.New(opts)
	if err != nil {
		return fmt.Errorf("failed to set up browser: %w", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := b.DismissConsent(page, cfg.Site.BaseURL, cfg.Scraper.Country); err != nil {
		return err
	}

	extractor := scraper.NewLinkExtractor("", logger)
	pager := browser.NewListingPager(page, extractor, cfg.Scraper.WaitTimeout, logger)
	walker := scraper.NewWalker(
		ratelimit.NewRandomDelay(cfg.Scraper.DelayMin, cfg.Scraper.DelayMax), logger)
	urlStore := storage.NewURLStore(logger)

	runner := scraper.NewRunner(cfg, pager, walker, urlStore, syncs, logger)
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Summary)
	return nil
}

func buildSyncs(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]*remote.Sync, error) {
	var syncs []*remote.Sync
	if cfg.Remote.SaveToS3 {
		store, err := remote.NewS3Store(ctx)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, remote.NewSync(store, cfg.Remote.S3Bucket, "s3", logger))
	}
	if cfg.Remote.SaveToGCS {
		store, err := remote.NewGCSStore(ctx)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, remote.NewSync(store, cfg.Remote.GCSBucket, "gcs", logger))
	}
	return syncs, nil
}

// setupLogger tees structured logs to stdout and to the per-run log file,
// which is itself uploaded as a run artifact.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	logFile := cfg.LogFile()
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50, // MB
		MaxBackups: 1,
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, fileWriter), &slog.HandlerOptions{
		Level: parseLevel(cfg.Logging.Level),
	})
	return slog.New(handler).With("run_id", uuid.NewString()), nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
