// Package cache defines the key-value slot contract behind the layer cache.
package cache

import "context"

// Store is one persistence slot namespace. A missing key is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Close() error
	Driver() string
}
