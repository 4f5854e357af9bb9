// Package storage persists harvested item URLs as line-oriented text files,
// one URL per line, laid out as
// {outputRoot}/item_urls/{site}/{category}/item_urls_{YYYY-MM-DD-HH-MM}.txt.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileTimestampLayout is the timestamp token embedded in URL file names.
// It is zero-padded so the lexicographic order of tokens matches real time;
// the "latest artifact" selection depends on that.
const FileTimestampLayout = "2006-01-02-15-04"

// URLFileSuffix is the required extension of URL files.
const URLFileSuffix = ".txt"

// URLStore appends and deduplicates URL files. Files are opened per write,
// never held across pages, so external readers always see a consistent
// append-only file.
type URLStore struct {
	logger *slog.Logger
}

func NewURLStore(logger *slog.Logger) *URLStore {
	return &URLStore{logger: logger.With("component", "url_store")}
}

// FilePath builds the local path of a category's URL file.
func FilePath(outputDir, site, category, filename string) string {
	return filepath.Join(outputDir, "item_urls", site, category, filename)
}

// AppendURLs appends urls to the file at path, creating parent directories as
// needed. URLs are newline-joined; the file carries no trailing-newline
// guarantee, so readers must tolerate a missing final newline.
func (s *URLStore) AppendURLs(path string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open url file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat url file: %w", err)
	}

	block := strings.Join(urls, "\n")
	if info.Size() > 0 {
		block = "\n" + block
	}

	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("failed to append urls: %w", err)
	}
	return nil
}

// ReadURLs reads all non-blank lines from the file at path.
func (s *URLStore) ReadURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read url file: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

// Dedupe rewrites the file at path with each URL appearing once, one per
// line, in unspecified order. It returns the line counts before and after.
// An empty file stays empty and yields (0, 0). Dedupe is idempotent and
// preserves set membership.
func (s *URLStore) Dedupe(path string) (before, after int, err error) {
	urls, err := s.ReadURLs(path)
	if err != nil {
		return 0, 0, err
	}

	unique := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		unique[u] = struct{}{}
	}

	lines := make([]string, 0, len(unique))
	for u := range unique {
		lines = append(lines, u)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return 0, 0, fmt.Errorf("failed to rewrite url file: %w", err)
	}

	s.logger.Info("removed duplicate urls", "path", path, "before", len(urls), "after", len(unique))
	return len(urls), len(unique), nil
}
