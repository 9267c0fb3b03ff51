// Package ratelimit provides a blocking token bucket used to stay inside the
// request budget of rate-limited upstream APIs.
//
// A bucket hands out at most capacity permits per refill interval. Each
// outstanding permit also lowers the bucket's ceiling by one until it is
// released, so a refill only restores as many tokens as there are free slots.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket bounds the use of one named resource to capacity operations
// per refill interval.
//
// The internal mutex is held only while inspecting and updating counters. It
// is never held while waiting for a refill or for the lifetime of a Permit.
type TokenBucket struct {
	name  string
	clock func() time.Time

	mu             sync.Mutex
	tokens         int
	capacity       int
	maxCapacity    int
	lastRefill     time.Time
	refillInterval time.Duration
}

// State is a point-in-time view of a bucket.
type State struct {
	Name           string        `json:"name"`
	Tokens         int           `json:"tokens"`
	Capacity       int           `json:"capacity"`
	MaxCapacity    int           `json:"max_capacity"`
	LastRefill     time.Time     `json:"last_refill"`
	RefillInterval time.Duration `json:"refill_interval"`
}

// Option configures a TokenBucket.
type Option func(*TokenBucket)

// WithName labels the bucket for logs, metrics and snapshots.
func WithName(name string) Option {
	return func(b *TokenBucket) { b.name = name }
}

// WithClock replaces time.Now. Waits still use real timers.
func WithClock(clock func() time.Time) Option {
	return func(b *TokenBucket) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// New creates a full bucket. It panics if capacity or refillInterval is not
// positive; buckets are built once at startup from validated configuration.
func New(capacity int, refillInterval time.Duration, opts ...Option) *TokenBucket {
	if capacity <= 0 {
		panic("ratelimit: capacity must be positive")
	}
	if refillInterval <= 0 {
		panic("ratelimit: refill interval must be positive")
	}

	b := &TokenBucket{
		clock:          time.Now,
		tokens:         capacity,
		capacity:       capacity,
		maxCapacity:    capacity,
		refillInterval: refillInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRefill = b.clock()
	return b
}

// Name returns the bucket label, possibly empty.
func (b *TokenBucket) Name() string {
	return b.name
}

// Acquire blocks until a token is available and returns a permit for it.
//
// The only error is ctx.Err(). A caller whose context ends while waiting has
// consumed nothing. A successful caller must Release the permit on every exit
// path, normally with defer.
func (b *TokenBucket) Acquire(ctx context.Context) (*Permit, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wait, ok := b.take()
		if ok {
			return &Permit{bucket: b}, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token if one is available. Otherwise it reports how long
// until the next refill.
func (b *TokenBucket) take() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock()
	b.refillLocked(now)

	if b.tokens > 0 {
		b.tokens--
		b.capacity--
		return 0, true
	}

	wait := b.refillInterval - now.Sub(b.lastRefill)
	if wait <= 0 {
		// Clock went backwards; poll again after one interval.
		wait = b.refillInterval
	}
	return wait, false
}

// refillLocked resets tokens to the current, possibly reduced, capacity once
// a full interval has passed. Caller must hold b.mu.
func (b *TokenBucket) refillLocked(now time.Time) {
	if now.Sub(b.lastRefill) >= b.refillInterval {
		b.tokens = b.capacity
		b.lastRefill = now
	}
}

func (b *TokenBucket) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.capacity++
	if b.capacity > b.maxCapacity {
		b.capacity = b.maxCapacity
	}
}

// Snapshot returns the current counters without triggering a refill.
func (b *TokenBucket) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return State{
		Name:           b.name,
		Tokens:         b.tokens,
		Capacity:       b.capacity,
		MaxCapacity:    b.maxCapacity,
		LastRefill:     b.lastRefill,
		RefillInterval: b.refillInterval,
	}
}

// Permit is one unit of granted allowance. It is owned by the goroutine that
// acquired it and must not be handed to another owner.
type Permit struct {
	bucket *TokenBucket
	once   sync.Once
}

// Release returns one unit of capacity to the bucket. Calls after the first
// are no-ops, so it is safe to both defer Release and call it early.
func (p *Permit) Release() {
	if p == nil || p.bucket == nil {
		return
	}
	p.once.Do(p.bucket.release)
}
