package remote

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreUnavailable = errors.New("backend unavailable")

// failingStore simulates an unreachable backend.
type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, []byte) error {
	return errStoreUnavailable
}

func (failingStore) ObjectExists(context.Context, string, string) (bool, error) {
	return false, errStoreUnavailable
}

func (failingStore) ListObjects(context.Context, string, string) ([]string, error) {
	return nil, errStoreUnavailable
}

func (failingStore) GetObject(context.Context, string, string) ([]byte, error) {
	return nil, errStoreUnavailable
}

func newTestSync(store Store) *Sync {
	return NewSync(store, "test-bucket", "fake", slog.Default())
}

func TestUploadFileAndExists(t *testing.T) {
	store := NewMemoryStore()
	sync := newTestSync(store)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(local, []byte("a\nb"), 0o644))

	key := ArtifactKey("vinted", "zeny", "item_urls_2024-01-01-10-00.txt")
	require.NoError(t, sync.UploadFile(ctx, local, key))

	exists, err := sync.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = sync.Exists(ctx, "data/item_urls/vinted/zeny/missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLatestArtifactPicksLexicographicallyGreatestTimestamp(t *testing.T) {
	store := NewMemoryStore()
	sync := newTestSync(store)
	ctx := context.Background()

	for _, ts := range []string{"2024-01-01-10-00", "2024-03-01-09-00", "2023-12-31-23-59"} {
		key := ArtifactKey("vinted", "zeny", "item_urls_"+ts+".txt")
		require.NoError(t, store.PutObject(ctx, "test-bucket", key, []byte("x")))
	}

	latest, err := sync.LatestArtifact(ctx, "vinted", "zeny")
	require.NoError(t, err)
	assert.Equal(t, "data/item_urls/vinted/zeny/item_urls_2024-03-01-09-00.txt", latest)
}

func TestLatestArtifactNoFiles(t *testing.T) {
	sync := newTestSync(NewMemoryStore())

	_, err := sync.LatestArtifact(context.Background(), "vinted", "zeny")
	assert.Error(t, err)
}

func TestFetchMergedUnionsAndDropsDuplicates(t *testing.T) {
	store := NewMemoryStore()
	sync := newTestSync(store)
	ctx := context.Background()

	k1 := ArtifactKey("vinted", "zeny", "item_urls_2024-01-01-10-00.txt")
	k2 := ArtifactKey("vinted", "zeny", "item_urls_2024-02-01-10-00.txt")
	require.NoError(t, store.PutObject(ctx, "test-bucket", k1, []byte("a\nb\n\nc")))
	require.NoError(t, store.PutObject(ctx, "test-bucket", k2, []byte("b\nc\nd")))

	merged, err := sync.FetchMerged(ctx, []string{k1, k2})
	require.NoError(t, err)

	assert.Len(t, merged, 4)
	for _, u := range []string{"a", "b", "c", "d"} {
		assert.Contains(t, merged, u)
	}
}

func TestCategories(t *testing.T) {
	store := NewMemoryStore()
	sync := newTestSync(store)
	ctx := context.Background()

	require.NoError(t, store.PutObject(ctx, "test-bucket",
		ArtifactKey("vinted", "zeny", "item_urls_2024-01-01-10-00.txt"), []byte("x")))
	require.NoError(t, store.PutObject(ctx, "test-bucket",
		ArtifactKey("vinted", "muzi", "item_urls_2024-01-01-10-00.txt"), []byte("x")))

	categories, err := sync.Categories(ctx, "vinted")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"zeny", "muzi"}, categories)
}

func TestLedgerIDs(t *testing.T) {
	store := NewMemoryStore()
	sync := newTestSync(store)
	ctx := context.Background()

	t.Run("missing ledger yields empty set", func(t *testing.T) {
		ids, err := sync.LedgerIDs(ctx, "data/item_data/vinted/data/item_data_all.jsonl")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("jsonl entries parsed", func(t *testing.T) {
		ledger := `{"id": "111", "title": "a"}` + "\n" + `{"id": "222"}` + "\n"
		key := "data/item_data/vinted/data/item_data_all.jsonl"
		require.NoError(t, store.PutObject(ctx, "test-bucket", key, []byte(ledger)))

		ids, err := sync.LedgerIDs(ctx, key)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
		assert.Contains(t, ids, "111")
		assert.Contains(t, ids, "222")
	})

	t.Run("malformed line is an error", func(t *testing.T) {
		key := "data/item_data/vinted/data/broken.jsonl"
		require.NoError(t, store.PutObject(ctx, "test-bucket", key, []byte("not-json")))

		_, err := sync.LedgerIDs(ctx, key)
		assert.Error(t, err)
	})
}

func TestBackendFailureSurfacesAsError(t *testing.T) {
	sync := newTestSync(failingStore{})
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(local, []byte("a"), 0o644))

	err := sync.UploadFile(ctx, local, "data/item_urls/vinted/zeny/f.txt")
	assert.ErrorIs(t, err, errStoreUnavailable)

	_, err = sync.ListArtifacts(ctx, "vinted", "zeny")
	assert.ErrorIs(t, err, errStoreUnavailable)
}
