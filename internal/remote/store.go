// Package remote pushes local artifacts (URL files, run logs) to durable
// object stores and lists or fetches prior artifacts back. Two backends are
// supported with identical semantics; a failure to reach one backend never
// blocks the other.
package remote

import "context"

// Store is an object-store backend. Implementations must treat keys as
// opaque slash-separated paths under a bucket.
type Store interface {
	PutObject(ctx context.Context, bucket, key string, body []byte) error
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}
