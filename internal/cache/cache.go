// Package cache is the best-effort durability layer used to snapshot store
// state for offline-first startup. Entries are JSON blobs keyed by well-known
// names; a miss is normal (first launch, cleared storage) and a write failure
// must never fail the in-memory operation it backs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys carry a schema version suffix. A data-shape change bumps the suffix,
// turning stale entries into plain misses instead of parse failures.
const (
	KeyUser          = "user:v1"
	KeyCart          = "cart:v1"
	KeyWishlist      = "wishlist:v1"
	KeyTheme         = "theme_mode:v1"
	KeyOnboarding    = "onboarding:v1"
	KeySearchHistory = "search_history:v1"
)

var ErrCacheMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON reads and decodes a cached entry. An entry that no longer decodes is
// reported as a miss; the cache is a seed, never the source of truth.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return ErrCacheMiss
	}
	return nil
}

// SetJSON encodes and writes a cached entry.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return s.Set(ctx, key, data)
}
