// Package cache provides keyed memoization for read-heavy endpoints.
// Values are JSON strings; writers invalidate after their transaction
// commits, so readers may briefly observe stale entries. Nothing that
// authorizes a write reads from here.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	DeleteByPrefix(ctx context.Context, prefix string)
}

// Noop satisfies Cache and caches nothing. Used when no cache is wired.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool)        { return "", false }
func (Noop) Set(context.Context, string, string, time.Duration) {}
func (Noop) Delete(context.Context, ...string)                 {}
func (Noop) DeleteByPrefix(context.Context, string)            {}
