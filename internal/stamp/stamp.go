// Package stamp converts between millisecond epoch timestamps and the
// RFC3339 strings used in scene front matter.
package stamp

import (
	"fmt"
	"sync"
	"time"
)

// Clock hands out strictly increasing millisecond timestamps so that two
// records written in the same millisecond still order deterministically.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock returns a Clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Now returns the current time in ms, bumped past the previous value if needed.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

var defaultClock = NewClock()

// Now returns a monotonic ms timestamp from the process-wide clock.
func Now() int64 {
	return defaultClock.Now()
}

// ToRFC3339 formats ms as an RFC3339 string in UTC with millisecond precision.
func ToRFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FromRFC3339 parses s into ms. An empty string yields the current time.
func FromRFC3339(s string) (int64, error) {
	if s == "" {
		return Now(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("stamp: parse %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// Suffix formats t for trash folder and restore suffixes (YYYYMMDD_HHMMSS).
func Suffix(t time.Time) string {
	return t.Format("20060102_150405")
}

// Compact formats t for backup and import folder names (YYYYMMDDHHMMSS).
func Compact(t time.Time) string {
	return t.Format("20060102150405")
}

// Coerce reads a timestamp decoded from loosely typed JSON: a positive ms
// number or an RFC3339 string. Anything else yields fallback.
func Coerce(v any, fallback int64) int64 {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return int64(t)
		}
	case int64:
		if t > 0 {
			return t
		}
	case string:
		if t == "" {
			return fallback
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UnixMilli()
		}
	}
	return fallback
}
