// Package servers aggregates the status of every configured game server.
package servers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/metrics"
	"github.com/stationlink/stationlink/internal/observability"
	"github.com/stationlink/stationlink/internal/topic"
)

// DefaultTTL is how long an aggregated result is served from memory.
const DefaultTTL = 30 * time.Second

// State says whether a server answered its status query.
type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Target is one game server to poll.
type Target struct {
	Name              string
	Address           string
	ConnectionAddress string
	ErrorMessage      string
}

// Round is the live data reported by an online server.
type Round struct {
	RoundID       uint32              `json:"round_id" yaml:"round_id"`
	Players       uint32              `json:"players" yaml:"players"`
	Map           string              `json:"map" yaml:"map"`
	SecurityLevel topic.SecurityLevel `json:"security_level" yaml:"security_level"`
	RoundDuration uint32              `json:"round_duration" yaml:"round_duration"`
	GameState     topic.GameState     `json:"gamestate" yaml:"gamestate"`
}

// Server is the aggregated record for one target. Round is set only for
// online servers and ErrorMessage only for offline ones.
type Server struct {
	State        State  `json:"status" yaml:"status"`
	Name         string `json:"name" yaml:"name"`
	Address      string `json:"address" yaml:"address"`
	*Round       `yaml:",inline"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Poller fetches one server's status record.
type Poller interface {
	Status(ctx context.Context, address string) (*topic.Status, error)
}

// Aggregator polls all targets concurrently and caches the combined result.
type Aggregator struct {
	poller  Poller
	targets []Target
	ttl     time.Duration
	clock   func() time.Time

	mu       sync.Mutex
	cached   []Server
	cachedAt time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTTL sets the cache lifetime. A non-positive ttl disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.ttl = ttl
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAggregator creates an aggregator over targets in display order.
func NewAggregator(poller Poller, targets []Target, opts ...Option) *Aggregator {
	a := &Aggregator{
		poller:  poller,
		targets: append([]Target(nil), targets...),
		ttl:     DefaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Targets returns a copy of the configured targets.
func (a *Aggregator) Targets() []Target {
	return append([]Target(nil), a.targets...)
}

// Status returns every target's record in configuration order, serving a
// cached result while it is younger than the TTL. A server that fails to
// answer for any reason is reported offline; Status itself never fails.
func (a *Aggregator) Status(ctx context.Context) []Server {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && a.ttl > 0 && a.clock().Sub(a.cachedAt) < a.ttl {
		return append([]Server(nil), a.cached...)
	}
	return a.refreshLocked(ctx)
}

// Refresh polls every target regardless of the cache and stores the result.
func (a *Aggregator) Refresh(ctx context.Context) []Server {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshLocked(ctx)
}

func (a *Aggregator) refreshLocked(ctx context.Context) []Server {
	now := a.clock()
	result := a.poll(ctx)
	a.cached = result
	a.cachedAt = now
	return append([]Server(nil), result...)
}

// Invalidate drops the cached result.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = nil
}

func (a *Aggregator) poll(ctx context.Context) []Server {
	result := make([]Server, len(a.targets))

	var wg sync.WaitGroup
	for i, target := range a.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result[i] = a.pollOne(ctx, target)
		}()
	}
	wg.Wait()

	online := 0
	for _, s := range result {
		if s.State == StateOnline {
			online++
		}
	}
	metrics.RecordServerStatusRefresh(online, len(result))

	return result
}

func (a *Aggregator) pollOne(ctx context.Context, target Target) Server {
	status, err := a.poller.Status(ctx, target.Address)
	if err != nil {
		logPollError(target, err)
		return Server{
			State:        StateOffline,
			Name:         target.Name,
			Address:      target.ConnectionAddress,
			ErrorMessage: target.ErrorMessage,
		}
	}

	return Server{
		State:   StateOnline,
		Name:    target.Name,
		Address: target.ConnectionAddress,
		Round: &Round{
			RoundID:       status.RoundID,
			Players:       status.Players,
			Map:           status.MapName,
			SecurityLevel: status.SecurityLevel,
			RoundDuration: status.RoundDuration,
			GameState:     status.GameState,
		},
	}
}

// logPollError keeps timeouts quiet; an unreachable server is routine.
func logPollError(target Target, err error) {
	logger := observability.Logger()
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("server", target.Name),
		zap.String("address", target.Address),
		zap.Error(err),
	}
	if topic.IsTimeout(err) {
		logger.Debug("Game server status query timed out", fields...)
		return
	}
	logger.Error("Error fetching game server status", fields...)
}
