package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
)

// artifactRoot is the fixed remote root under which all artifacts live,
// mirroring the local layout regardless of the local output directory.
const artifactRoot = "data"

// Sync wraps one Store backend and a bucket with artifact-level operations.
// Callers that persist to both backends hold two Syncs and call each
// independently, so one unreachable backend never blocks the other.
type Sync struct {
	store  Store
	bucket string
	name   string
	logger *slog.Logger
}

func NewSync(store Store, bucket, name string, logger *slog.Logger) *Sync {
	return &Sync{
		store:  store,
		bucket: bucket,
		name:   name,
		logger: logger.With("component", "remote_sync", "backend", name),
	}
}

// Name identifies the backend in logs and summaries.
func (s *Sync) Name() string { return s.name }

// UploadFile uploads the file at localPath to key in the backend's bucket.
func (s *Sync) UploadFile(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	if err := s.store.PutObject(ctx, s.bucket, key, data); err != nil {
		return err
	}
	s.logger.Info("uploaded file", "local", localPath, "key", key)
	return nil
}

// Exists reports whether an object exists at key.
func (s *Sync) Exists(ctx context.Context, key string) (bool, error) {
	return s.store.ObjectExists(ctx, s.bucket, key)
}

// ItemURLsPrefix is the remote prefix holding a category's URL files.
func ItemURLsPrefix(site, category string) string {
	return path.Join(artifactRoot, "item_urls", site, category) + "/"
}

// ArtifactKey is the remote key of one URL file.
func ArtifactKey(site, category, filename string) string {
	return path.Join(artifactRoot, "item_urls", site, category, filename)
}

// ListArtifacts returns all URL file keys stored for a site and category.
func (s *Sync) ListArtifacts(ctx context.Context, site, category string) ([]string, error) {
	keys, err := s.store.ListObjects(ctx, s.bucket, ItemURLsPrefix(site, category))
	if err != nil {
		return nil, err
	}
	s.logger.Info("listed artifacts", "site", site, "category", category, "count", len(keys))
	return keys, nil
}

// LatestArtifact selects the URL file whose embedded timestamp token sorts
// lexicographically greatest. The token is the third underscore-delimited
// field of the base name, extension stripped. This relies on the tokens
// being zero-padded and therefore lexicographically monotonic with real
// time; a change of the timestamp width silently breaks the selection.
func (s *Sync) LatestArtifact(ctx context.Context, site, category string) (string, error) {
	keys, err := s.ListArtifacts(ctx, site, category)
	if err != nil {
		return "", err
	}

	var latest, latestKey string
	for _, key := range keys {
		fields := strings.Split(path.Base(key), "_")
		if len(fields) < 3 {
			continue
		}
		token := strings.TrimSuffix(fields[2], path.Ext(fields[2]))
		if token > latest {
			latest = token
			latestKey = key
		}
	}
	if latestKey == "" {
		return "", fmt.Errorf("no url file artifacts under %s", ItemURLsPrefix(site, category))
	}
	return latestKey, nil
}

// FetchMerged downloads every artifact at keys, splits each on newlines and
// unions the lines into one set. Duplicate lines across files collapse.
func (s *Sync) FetchMerged(ctx context.Context, keys []string) (map[string]struct{}, error) {
	merged := make(map[string]struct{})
	for _, key := range keys {
		data, err := s.store.GetObject(ctx, s.bucket, key)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				merged[line] = struct{}{}
			}
		}
	}
	s.logger.Info("fetched merged urls", "files", len(keys), "urls", len(merged))
	return merged, nil
}

// Categories extracts the distinct category names present under a site's
// item_urls prefix in the backend.
func (s *Sync) Categories(ctx context.Context, site string) ([]string, error) {
	prefix := path.Join(artifactRoot, "item_urls", site) + "/"
	keys, err := s.store.ListObjects(ctx, s.bucket, prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		category, _, found := strings.Cut(rest, "/")
		if !found || category == "" {
			continue
		}
		if _, ok := seen[category]; !ok {
			seen[category] = struct{}{}
			categories = append(categories, category)
		}
	}
	return categories, nil
}

// LedgerIDs reads the item ids recorded in a newline-delimited JSON ledger
// at key. A missing ledger yields an empty set, not an error, so first runs
// retain every candidate.
func (s *Sync) LedgerIDs(ctx context.Context, key string) (map[string]struct{}, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.Warn("ledger not found, treating all items as unprocessed", "key", key)
		return map[string]struct{}{}, nil
	}

	data, err := s.store.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("malformed ledger line: %w", err)
		}
		ids[entry.ID] = struct{}{}
	}
	return ids, nil
}
