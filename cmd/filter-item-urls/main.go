// Command filter-item-urls feeds the downstream item-detail stage: it pulls
// the latest URL files of each category from one object store backend,
// merges them and drops the items that were already fully processed in a
// prior run.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/config"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/scraper"
)

var (
	backendName string
	useAllFiles bool
)

var rootCmd = &cobra.Command{
	Use:   "filter-item-urls [categories...]",
	Short: "Print the collected item URLs that still need full item scraping",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&backendName, "backend", "gcs", "object store backend to read from (s3 or gcs)")
	rootCmd.Flags().BoolVar(&useAllFiles, "all-files", false,
		"merge every stored url file instead of only the latest per category")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	sync, err := buildSync(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var keys []string
	for _, category := range args {
		if useAllFiles {
			categoryKeys, err := sync.ListArtifacts(ctx, cfg.Site.Name, category)
			if err != nil {
				return err
			}
			keys = append(keys, categoryKeys...)
			continue
		}

		latest, err := sync.LatestArtifact(ctx, cfg.Site.Name, category)
		if err != nil {
			return err
		}
		keys = append(keys, latest)
	}

	merged, err := sync.FetchMerged(ctx, keys)
	if err != nil {
		return err
	}

	candidates := make([]string, 0, len(merged))
	for url := range merged {
		candidates = append(candidates, url)
	}
	sort.Strings(candidates)

	filter := scraper.NewScrapeFilter(sync,
		cfg.Remote.LedgerKey, cfg.Site.BaseURL, cfg.Remote.ImagePrefix, logger)
	unprocessed, err := filter.FilterUnprocessed(ctx, candidates)
	if err != nil {
		return err
	}

	if len(unprocessed) > 0 {
		fmt.Println(strings.Join(unprocessed, "\n"))
	}
	logger.Info("filtering finished", "candidates", len(candidates), "unprocessed", len(unprocessed))
	return nil
}

func buildSync(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*remote.Sync, error) {
	switch backendName {
	case "s3":
		store, err := remote.NewS3Store(ctx)
		if err != nil {
			return nil, err
		}
		return remote.NewSync(store, cfg.Remote.S3Bucket, "s3", logger), nil
	case "gcs":
		store, err := remote.NewGCSStore(ctx)
		if err != nil {
			return nil, err
		}
		return remote.NewSync(store, cfg.Remote.GCSBucket, "gcs", logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q, expected s3 or gcs", backendName)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
