// Package cache stores serialized analysis results with a TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockAnalyzer/internal/metrics"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON decodes the cached value at key into out. A miss or an undecodable
// entry reports false.
func GetJSON(ctx context.Context, c BytesCache, key string, out any) (bool, error) {
	if c == nil {
		return false, nil
	}
	b, ok, err := c.GetBytes(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return false, err
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c BytesCache, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.SetBytes(ctx, key, b, ttl)
}

// Key joins parts into a namespaced cache key.
func Key(kind string, parts ...any) string {
	k := "stock_analyzer:" + kind
	for _, p := range parts {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}
