package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimitReached is returned by Use when the window budget is spent.
var ErrLimitReached = errors.New("request budget exhausted")

// Budget caps how many generative requests are made per window.
// A max of 0 means unlimited.
type Budget struct {
	mu        sync.Mutex
	name      string
	count     int
	max       int
	window    time.Duration
	resetTime time.Time
	denied    int

	now func() time.Time
}

// NewBudget creates a budget that resets every window (24h when window <= 0).
func NewBudget(name string, max int, window time.Duration) *Budget {
	if window <= 0 {
		window = 24 * time.Hour
	}
	b := &Budget{name: name, max: max, window: window, now: time.Now}
	b.resetTime = b.now().Add(window)
	return b
}

// Use records one request, or returns ErrLimitReached.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.count >= b.max {
		b.denied++
		return fmt.Errorf("%s (%d/%d): %w", b.name, b.count, b.max, ErrLimitReached)
	}
	b.count++
	return nil
}

// remaining is what is left in the current window, -1 if unlimited. mu must be held.
func (b *Budget) remaining() int {
	if b.max <= 0 {
		return -1
	}
	return b.max - b.count
}

func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return map[string]interface{}{
		"name":       b.name,
		"used":       b.count,
		"max":        b.max,
		"denied":     b.denied,
		"remaining":  b.remaining(),
		"reset_time": b.resetTime.Format(time.RFC3339),
	}
}

// checkReset must be called with mu held.
func (b *Budget) checkReset() {
	if now := b.now(); !now.Before(b.resetTime) {
		b.count = 0
		b.resetTime = now.Add(b.window)
	}
}
