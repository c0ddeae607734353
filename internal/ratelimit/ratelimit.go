// Package ratelimit implements fixed-window request limiting for the public
// API. The default store is a process-local map, so a horizontally scaled
// deployment enforces the limit per instance; the Redis store makes the
// window global and is selected by configuration only.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the window state after accounting for one request.
type Result struct {
	OK        bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter accounts one request against the fixed window for the given key
// (client IP). Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
