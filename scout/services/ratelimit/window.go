package ratelimit

import (
	"fmt"
	"time"
)

// WindowFor maps a wall-clock instant onto its fixed, window-aligned
// bucket. All callers inside the same interval converge on the same key
// regardless of request order, so one logical counter exists per window.
func WindowFor(now time.Time, window time.Duration, prefix string) (string, time.Time) {
	windowMs := window.Milliseconds()
	startMs := now.UnixMilli() / windowMs * windowMs
	key := fmt.Sprintf("%s:%d", prefix, startMs)
	return key, time.UnixMilli(startMs)
}
