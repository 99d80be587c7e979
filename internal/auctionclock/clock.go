package auctionclock

import (
	"sync"
	"time"

	model "auction-house/internal/models"
)

// Clock supplies the current time to deadline decisions
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a manually advanced clock for tests and replays
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock returns a clock frozen at now
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// Now returns the frozen time
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ExtendedDeadline returns the deadline an accepted bid arriving at now leaves
// the auction with, and whether it moved. The deadline moves by ExtendMinutes
// only when the bid lands inside the closing window and before expiry.
func ExtendedDeadline(auction model.Auction, now time.Time) (time.Time, bool) {
	policy := auction.AutoExtend
	if !policy.Enabled() {
		return auction.EndsAt, false
	}

	remaining := auction.EndsAt.Sub(now)
	if remaining <= 0 || remaining > minutes(policy.ThresholdMinutes) {
		return auction.EndsAt, false
	}
	return auction.EndsAt.Add(minutes(policy.ExtendMinutes)), true
}

// IsExpired reports whether the auction's deadline has passed at now
func IsExpired(auction model.Auction, now time.Time) bool {
	return !now.Before(auction.EndsAt)
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
