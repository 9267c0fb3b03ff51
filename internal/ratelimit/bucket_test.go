package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewStartsFull(t *testing.T) {
	b := New(5, time.Second, WithName("discord.global"))

	state := b.Snapshot()
	require.Equal(t, "discord.global", state.Name)
	require.Equal(t, 5, state.Tokens)
	require.Equal(t, 5, state.Capacity)
	require.Equal(t, 5, state.MaxCapacity)
	require.Equal(t, time.Second, state.RefillInterval)
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	require.Panics(t, func() { New(0, time.Second) })
	require.Panics(t, func() { New(1, 0) })
}

func TestAcquireBurstThenWaitsForRefill(t *testing.T) {
	const (
		capacity = 3
		interval = 150 * time.Millisecond
	)
	created := time.Now()
	b := New(capacity, interval)
	ctx := context.Background()

	burstStart := time.Now()
	for i := 0; i < capacity; i++ {
		p, err := b.Acquire(ctx)
		require.NoError(t, err)
		p.Release()
	}
	require.Less(t, time.Since(burstStart), interval/2, "burst should not wait")

	p, err := b.Acquire(ctx)
	require.NoError(t, err)
	defer p.Release()

	require.GreaterOrEqual(t, time.Since(created), interval)
}

func TestPermitsCanBeHeldConcurrently(t *testing.T) {
	b := New(2, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	first, err := b.Acquire(ctx)
	require.NoError(t, err)
	defer first.Release()

	// A bucket that serialized permit holders would block here.
	second, err := b.Acquire(ctx)
	require.NoError(t, err)
	defer second.Release()

	state := b.Snapshot()
	require.Equal(t, 0, state.Tokens)
	require.Equal(t, 0, state.Capacity)
}

func TestAcquireCancelledWhileWaitingConsumesNothing(t *testing.T) {
	b := New(1, time.Hour)

	held, err := b.Acquire(context.Background())
	require.NoError(t, err)

	before := b.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p, err := b.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, p)

	after := b.Snapshot()
	require.Equal(t, before.Tokens, after.Tokens)
	require.Equal(t, before.Capacity, after.Capacity)

	held.Release()
	require.Equal(t, 1, b.Snapshot().Capacity)
}

func TestAcquireWithCancelledContext(t *testing.T) {
	b := New(1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, b.Snapshot().Tokens)
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := New(2, time.Hour)

	p, err := b.Acquire(context.Background())
	require.NoError(t, err)

	p.Release()
	p.Release()

	state := b.Snapshot()
	require.Equal(t, 2, state.Capacity)
	require.Equal(t, 1, state.Tokens)

	var nilPermit *Permit
	require.NotPanics(t, nilPermit.Release)
}

func TestRefillUsesReducedCapacity(t *testing.T) {
	clock := newFakeClock()
	b := New(2, time.Second, WithClock(clock.Now))
	ctx := context.Background()

	held, err := b.Acquire(ctx)
	require.NoError(t, err)
	defer held.Release()

	spent, err := b.Acquire(ctx)
	require.NoError(t, err)
	spent.Release()

	clock.Advance(time.Second)

	p, err := b.Acquire(ctx)
	require.NoError(t, err)
	defer p.Release()

	// One permit was still outstanding at refill time, so only one token
	// came back even though max capacity is two.
	state := b.Snapshot()
	assert.Equal(t, 0, state.Tokens)
	assert.Equal(t, 0, state.Capacity)
	assert.Equal(t, 2, state.MaxCapacity)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = b.Acquire(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTakeReportsRemainingWait(t *testing.T) {
	clock := newFakeClock()
	b := New(1, 10*time.Second, WithClock(clock.Now))

	_, ok := b.take()
	require.True(t, ok)

	clock.Advance(4 * time.Second)
	wait, ok := b.take()
	require.False(t, ok)
	require.Equal(t, 6*time.Second, wait)
}

func TestCapacityNeverExceedsMax(t *testing.T) {
	b := New(4, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < 20; j++ {
				p, err := b.Acquire(ctx)
				if err != nil {
					return
				}
				state := b.Snapshot()
				assert.LessOrEqual(t, state.Tokens, state.Capacity)
				assert.LessOrEqual(t, state.Capacity, state.MaxCapacity)
				assert.GreaterOrEqual(t, state.Tokens, 0)
				time.Sleep(time.Duration(rng.Intn(500)) * time.Microsecond)
				p.Release()
				p.Release()
			}
		}(int64(i))
	}
	wg.Wait()

	state := b.Snapshot()
	require.Equal(t, state.MaxCapacity, state.Capacity)
}
