package servers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/observability"
)

// Warmer refreshes an Aggregator on a cron schedule so requests find a warm
// cache. Standard five-field expressions and descriptors such as
// "@every 30s" are accepted.
type Warmer struct {
	agg      *Aggregator
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	stopped chan struct{}
}

// ParseSchedule reports whether schedule is a valid cron expression.
func ParseSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// NewWarmer creates a stopped warmer. timeout bounds each refresh; zero
// means one minute.
func NewWarmer(agg *Aggregator, schedule string, timeout time.Duration) *Warmer {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Warmer{
		agg:      agg,
		schedule: schedule,
		timeout:  timeout,
	}
}

// Start schedules refreshes until ctx is done or Stop is called. An empty
// schedule leaves the warmer stopped. Each start gets its own scheduler, so
// a warmer can be restarted after Stop.
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.schedule == "" || w.cron != nil {
		return nil
	}
	if err := ParseSchedule(w.schedule); err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.refresh(ctx) }); err != nil {
		return fmt.Errorf("schedule status refresh: %w", err)
	}
	c.Start()
	w.cron = c
	w.stopped = make(chan struct{})

	if logger := observability.Logger(); logger != nil {
		logger.Info("Server status warmer started", zap.String("schedule", w.schedule))
	}

	go func(stopped <-chan struct{}) {
		select {
		case <-ctx.Done():
			w.stopRun(c)
		case <-stopped:
		}
	}(w.stopped)
	return nil
}

func (w *Warmer) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	list := w.agg.Refresh(ctx)
	if logger := observability.Logger(); logger != nil {
		logger.Debug("Server status refreshed", zap.Int("servers", len(list)))
	}
}

// Stop halts the schedule and waits for a running refresh to finish.
func (w *Warmer) Stop() {
	w.mu.Lock()
	c := w.cron
	w.mu.Unlock()

	if c != nil {
		w.stopRun(c)
	}
}

// stopRun stops c if it is still the active scheduler.
func (w *Warmer) stopRun(c *cron.Cron) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != c {
		return
	}
	<-c.Stop().Done()
	close(w.stopped)
	w.cron = nil
	w.stopped = nil
}

// Running reports whether refreshes are scheduled.
func (w *Warmer) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cron != nil
}

// NextRun returns the next scheduled refresh, or nil when stopped.
func (w *Warmer) NextRun() *time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron == nil {
		return nil
	}
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
