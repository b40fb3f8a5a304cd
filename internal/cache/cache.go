package cache

import (
	"context"
	"time"
)

// Cache stores JSON documents under string keys. A ttl of 0 keeps the entry until deleted.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
