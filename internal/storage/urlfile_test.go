package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *URLStore {
	return NewURLStore(slog.Default())
}

func TestAppendURLsCreatesParentDirectories(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "item_urls", "vinted", "zeny", "item_urls_2024-01-01-10-00.txt")

	err := store.AppendURLs(path, []string{"https://example.com/a", "https://example.com/b"})
	require.NoError(t, err)

	urls, err := store.ReadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestAppendURLsAcrossPagesDoesNotGlueLines(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "urls.txt")

	require.NoError(t, store.AppendURLs(path, []string{"url1", "url2"}))
	require.NoError(t, store.AppendURLs(path, []string{"url3"}))

	urls, err := store.ReadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"url1", "url2", "url3"}, urls)
}

func TestAppendURLsEmptyBatchIsNoop(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "urls.txt")

	require.NoError(t, store.AppendURLs(path, nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		expectedBefore int
		expectedAfter  int
		expectedSet    []string
	}{
		{
			name:           "duplicates removed",
			content:        "a\nb\na\nc\nb",
			expectedBefore: 5,
			expectedAfter:  3,
			expectedSet:    []string{"a", "b", "c"},
		},
		{
			name:           "already unique",
			content:        "a\nb\nc",
			expectedBefore: 3,
			expectedAfter:  3,
			expectedSet:    []string{"a", "b", "c"},
		},
		{
			name:           "blank lines and missing final newline tolerated",
			content:        "a\n\nb\n\na",
			expectedBefore: 3,
			expectedAfter:  2,
			expectedSet:    []string{"a", "b"},
		},
		{
			name:           "empty file",
			content:        "",
			expectedBefore: 0,
			expectedAfter:  0,
			expectedSet:    nil,
		},
	}

	store := newTestStore()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "urls.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			before, after, err := store.Dedupe(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedBefore, before)
			assert.Equal(t, tt.expectedAfter, after)

			urls, err := store.ReadURLs(path)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expectedSet, urls)
		})
	}
}

func TestDedupeIsIdempotent(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\na"), 0o644))

	_, first, err := store.Dedupe(path)
	require.NoError(t, err)

	before, after, err := store.Dedupe(path)
	require.NoError(t, err)
	assert.Equal(t, first, before)
	assert.Equal(t, first, after)
}

func TestFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("data", "item_urls", "vinted", "zeny", "item_urls_2024-01-01-10-00.txt"),
		FilePath("data", "vinted", "zeny", "item_urls_2024-01-01-10-00.txt"))
}
