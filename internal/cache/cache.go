// Package cache stores fetched shape results keyed by the compiled query
// and the anchor they were fetched for.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
)

// Cache is a byte-oriented result cache.
type Cache interface {
	// Get returns the value stored under key. ok is false on a miss.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)

	// Set stores val under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Key identifies the result of running q for anchorID. Two queries that
// produce the same statement, binds and dialect share a key.
func Key(q querysql.Query, anchorID any) (string, error) {
	binds, err := ir.FromGo(q.Binds)
	if err != nil {
		return "", fmt.Errorf("cache key: binds: %w", err)
	}
	anchor, err := ir.FromGo(anchorID)
	if err != nil {
		return "", fmt.Errorf("cache key: anchor: %w", err)
	}

	return ir.Fingerprint(ir.DomainResult, ir.Object{
		"sql":     ir.String(q.SQL),
		"binds":   binds,
		"anchor":  anchor,
		"dialect": ir.String(q.Dialect),
		"list":    ir.Bool(q.List),
	})
}

// LoadFunc produces a value on a cache miss.
type LoadFunc func(ctx context.Context) (ir.Value, error)

// Through returns the value cached under key, or calls load and caches its
// result for ttl. hit reports whether the cache answered.
//
// A failing cache read is treated as a miss. A failing cache write is
// returned alongside the loaded value so callers can log it.
func Through(ctx context.Context, c Cache, key string, ttl time.Duration, load LoadFunc) (v ir.Value, hit bool, err error) {
	if data, ok, getErr := c.Get(ctx, key); getErr == nil && ok {
		if cached, decErr := ir.Decode(data); decErr == nil {
			return cached, true, nil
		}
	}

	v, err = load(ctx)
	if err != nil {
		return nil, false, err
	}

	data, err := ir.MarshalValue(v)
	if err != nil {
		return v, false, fmt.Errorf("cache encode: %w", err)
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return v, false, fmt.Errorf("cache set: %w", err)
	}
	return v, false, nil
}
