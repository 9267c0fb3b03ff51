package discord

import (
	"time"

	"github.com/stationlink/stationlink/internal/ratelimit"
)

// Limit sizes one rate limit bucket.
type Limit struct {
	Capacity int
	Interval time.Duration
}

// Limits holds the bucket sizes for every rate limited scope.
type Limits struct {
	Global        Limit
	GetMember     Limit
	SearchMembers Limit
}

// DefaultLimits mirrors Discord's published limits with a small margin on
// each interval.
func DefaultLimits() Limits {
	return Limits{
		Global:        Limit{Capacity: 50, Interval: 1100 * time.Millisecond},
		GetMember:     Limit{Capacity: 5, Interval: 1100 * time.Millisecond},
		SearchMembers: Limit{Capacity: 10, Interval: 10100 * time.Millisecond},
	}
}

// Buckets are the token buckets shared by every request to the Discord API.
// Every call takes a Global permit plus the permit for its route.
type Buckets struct {
	Global        *ratelimit.TokenBucket
	GetMember     *ratelimit.TokenBucket
	SearchMembers *ratelimit.TokenBucket
}

// NewBuckets builds one bucket per scope. Zero-valued limits fall back to
// DefaultLimits.
func NewBuckets(limits Limits, opts ...ratelimit.Option) *Buckets {
	defaults := DefaultLimits()
	build := func(name string, limit, fallback Limit) *ratelimit.TokenBucket {
		if limit.Capacity <= 0 {
			limit.Capacity = fallback.Capacity
		}
		if limit.Interval <= 0 {
			limit.Interval = fallback.Interval
		}
		bucketOpts := append([]ratelimit.Option{ratelimit.WithName(name)}, opts...)
		return ratelimit.New(limit.Capacity, limit.Interval, bucketOpts...)
	}

	return &Buckets{
		Global:        build("discord_global", limits.Global, defaults.Global),
		GetMember:     build("discord_get_member", limits.GetMember, defaults.GetMember),
		SearchMembers: build("discord_search_members", limits.SearchMembers, defaults.SearchMembers),
	}
}

// All returns the buckets in a stable order.
func (b *Buckets) All() []*ratelimit.TokenBucket {
	if b == nil {
		return nil
	}
	return []*ratelimit.TokenBucket{b.Global, b.GetMember, b.SearchMembers}
}
