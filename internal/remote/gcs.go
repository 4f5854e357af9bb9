package remote

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore is the Google Cloud Storage implementation of Store.
type GCSStore struct {
	client *gcs.Client
}

func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (g *GCSStore) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gcs object %s: %w", key, err)
	}
	return nil
}

func (g *GCSStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat gcs object %s: %w", key, err)
	}
	return true, nil
}

func (g *GCSStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	it := g.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gcs objects under %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (g *GCSStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gcs object %s: %w", key, err)
	}
	return data, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
