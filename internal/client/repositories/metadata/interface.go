// Package metadata is a small key-value store over the client database,
// used for settings (offline filter, feature sync markers, navigation
// history).
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	// ListPrefix returns the entries whose key starts with prefix.
	ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
	// DeletePrefix removes the entries whose key starts with prefix and
	// reports how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	Clear(ctx context.Context) error
}
