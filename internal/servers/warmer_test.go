package servers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmerStart(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "descriptor", schedule: "@every 30s", wantRunning: true},
		{name: "five field", schedule: "*/5 * * * *", wantRunning: true},
		{name: "empty disables", schedule: ""},
		{name: "invalid", schedule: "every now and then", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWarmer(NewAggregator(&fakePoller{}, testTargets), tt.schedule, 0)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := w.Start(ctx)
			if tt.wantError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRunning, w.Running())

			if tt.wantRunning {
				next := w.NextRun()
				require.NotNil(t, next)
				assert.True(t, next.After(time.Now()))
			} else {
				assert.Nil(t, w.NextRun())
			}

			w.Stop()
			assert.False(t, w.Running())
		})
	}
}

func TestWarmerStopsWithContext(t *testing.T) {
	w := NewWarmer(NewAggregator(&fakePoller{}, testTargets), "@every 1h", 0)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !w.Running() }, time.Second, 10*time.Millisecond)
}

func TestWarmerRestartSchedulesOneJob(t *testing.T) {
	w := NewWarmer(NewAggregator(&fakePoller{}, testTargets), "@every 1h", 0)

	first, cancelFirst := context.WithCancel(context.Background())
	require.NoError(t, w.Start(first))
	w.Stop()
	require.False(t, w.Running())

	second, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()
	require.NoError(t, w.Start(second))
	require.NoError(t, w.Start(second), "starting twice is a no-op")

	w.mu.Lock()
	entries := len(w.cron.Entries())
	w.mu.Unlock()
	assert.Equal(t, 1, entries)

	// The first run's context no longer controls the warmer.
	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, w.Running())

	cancelSecond()
	assert.Eventually(t, func() bool { return !w.Running() }, time.Second, 10*time.Millisecond)
}

func TestWarmerRefreshFillsCache(t *testing.T) {
	poller := &fakePoller{}
	agg := NewAggregator(poller, testTargets, WithTTL(time.Hour))
	w := NewWarmer(agg, "@every 1h", time.Second)

	w.refresh(context.Background())
	assert.Equal(t, int32(3), poller.calls.Load())

	agg.Status(context.Background())
	assert.Equal(t, int32(3), poller.calls.Load())
}

func TestParseSchedule(t *testing.T) {
	assert.NoError(t, ParseSchedule("@hourly"))
	assert.Error(t, ParseSchedule("61 * * * *"))
}
