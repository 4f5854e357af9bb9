package scraper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/config"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/ratelimit"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/storage"
)

func testRunConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Load()
	cfg.Site.Categories = []string{"zeny"}
	cfg.Scraper.MaxPages = 1000
	cfg.Output.Dir = filepath.Join(root, "data")
	cfg.Output.File = "item_urls_2024-01-01-10-00.txt"
	cfg.Logging.Dir = filepath.Join(root, "logs")
	require.NoError(t, cfg.Validate())
	return cfg
}

func writeTestLog(t *testing.T, cfg *config.Config) {
	t.Helper()
	logFile := cfg.LogFile()
	require.NoError(t, os.MkdirAll(filepath.Dir(logFile), 0o755))
	require.NoError(t, os.WriteFile(logFile, []byte("run log"), 0o644))
}

func TestRunTwoPageCategory(t *testing.T) {
	cfg := testRunConfig(t)
	writeTestLog(t, cfg)

	pager := &fakePager{pages: [][]string{
		{"https://www.vinted.cz/zeny/saty/1-a", "https://www.vinted.cz/zeny/saty/2-b", "https://www.vinted.cz/zeny/saty/3-c"},
		{"https://www.vinted.cz/zeny/saty/4-d", "https://www.vinted.cz/zeny/saty/5-e"},
	}}

	memStore := remote.NewMemoryStore()
	sync := remote.NewSync(memStore, "test-bucket", "fake", slog.Default())
	urlStore := storage.NewURLStore(slog.Default())
	walker := NewWalker(ratelimit.None{}, slog.Default())

	runner := NewRunner(cfg, pager, walker, urlStore, []*remote.Sync{sync}, slog.Default())
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.PagesScraped)
	assert.Equal(t, 5, result.URLsFound)
	assert.Contains(t, result.Summary, "vinted item_urls for zeny categories were scraped")

	urls, err := urlStore.ReadURLs(storage.FilePath(cfg.Output.Dir, "vinted", "zeny", cfg.Output.File))
	require.NoError(t, err)
	assert.Len(t, urls, 5)

	// URL file and run log landed in the backend.
	key := remote.ArtifactKey("vinted", "zeny", cfg.Output.File)
	assert.Equal(t, []string{key}, result.UploadedKeys)

	exists, err := sync.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = sync.Exists(context.Background(), cfg.LogFile())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunDeduplicatesRepeatedURLAcrossPages(t *testing.T) {
	cfg := testRunConfig(t)

	repeated := "https://www.vinted.cz/zeny/saty/1-a"
	pager := &fakePager{pages: [][]string{
		{repeated, "https://www.vinted.cz/zeny/saty/2-b"},
		{repeated, "https://www.vinted.cz/zeny/saty/3-c"},
	}}

	urlStore := storage.NewURLStore(slog.Default())
	walker := NewWalker(ratelimit.None{}, slog.Default())
	runner := NewRunner(cfg, pager, walker, urlStore, nil, slog.Default())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.URLsFound)
}

func TestRunBackendFailureDoesNotBlockOtherBackend(t *testing.T) {
	cfg := testRunConfig(t)

	pager := &fakePager{pages: [][]string{{"https://www.vinted.cz/zeny/saty/1-a"}}}

	good := remote.NewMemoryStore()
	syncs := []*remote.Sync{
		remote.NewSync(failingStore{}, "bucket-a", "down", slog.Default()),
		remote.NewSync(good, "bucket-b", "up", slog.Default()),
	}

	urlStore := storage.NewURLStore(slog.Default())
	walker := NewWalker(ratelimit.None{}, slog.Default())
	runner := NewRunner(cfg, pager, walker, urlStore, syncs, slog.Default())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	key := remote.ArtifactKey("vinted", "zeny", cfg.Output.File)
	assert.Equal(t, []string{key}, result.UploadedKeys)

	exists, err := good.ObjectExists(context.Background(), "bucket-b", key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunCleanLocalRemovesArtifacts(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.Output.CleanLocal = true
	writeTestLog(t, cfg)

	pager := &fakePager{pages: [][]string{{"https://www.vinted.cz/zeny/saty/1-a"}}}
	urlStore := storage.NewURLStore(slog.Default())
	walker := NewWalker(ratelimit.None{}, slog.Default())
	runner := NewRunner(cfg, pager, walker, urlStore, nil, slog.Default())

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(cfg.Output.Dir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.Logging.Dir)
	assert.True(t, os.IsNotExist(err))
}

// failingStore simulates an unreachable backend for runner tests.
type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, []byte) error {
	return assert.AnError
}

func (failingStore) ObjectExists(context.Context, string, string) (bool, error) {
	return false, assert.AnError
}

func (failingStore) ListObjects(context.Context, string, string) ([]string, error) {
	return nil, assert.AnError
}

func (failingStore) GetObject(context.Context, string, string) ([]byte, error) {
	return nil, assert.AnError
}
