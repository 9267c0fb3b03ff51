package servers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stationlink/stationlink/internal/topic"
)

type fakePoller struct {
	mu       sync.Mutex
	calls    atomic.Int32
	delay    time.Duration
	statuses map[string]*topic.Status
	errs     map[string]error
}

func (f *fakePoller) Status(ctx context.Context, address string) (*topic.Status, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[address]; ok {
		return nil, err
	}
	if status, ok := f.statuses[address]; ok {
		return status, nil
	}
	return nil, &topic.OpError{Op: "dial", Addr: address, Err: errors.New("connection refused")}
}

var testTargets = []Target{
	{Name: "Sybil", Address: "10.0.0.1:1337", ConnectionAddress: "byond://sybil:1337", ErrorMessage: "Sybil is restarting"},
	{Name: "Terry", Address: "10.0.0.2:3336", ConnectionAddress: "byond://terry:3336", ErrorMessage: "Terry is down"},
	{Name: "Manuel", Address: "10.0.0.3:1447", ConnectionAddress: "byond://manuel:1447", ErrorMessage: "Manuel is down"},
}

func TestStatusReportsOnlineAndOffline(t *testing.T) {
	poller := &fakePoller{
		statuses: map[string]*topic.Status{
			"10.0.0.1:1337": {
				RoundID:       204,
				Players:       61,
				MapName:       "Ice Box Station",
				SecurityLevel: topic.SecurityLevelBlue,
				RoundDuration: 3600,
				GameState:     topic.GameStatePlaying,
			},
		},
		errs: map[string]error{
			"10.0.0.2:3336": &topic.OpError{Op: "read header", Addr: "10.0.0.2:3336", Err: context.DeadlineExceeded},
		},
	}

	result := NewAggregator(poller, testTargets).Status(context.Background())
	require.Len(t, result, 3)

	assert.Equal(t, StateOnline, result[0].State)
	assert.Equal(t, "Sybil", result[0].Name)
	assert.Equal(t, "byond://sybil:1337", result[0].Address)
	require.NotNil(t, result[0].Round)
	assert.Equal(t, uint32(204), result[0].RoundID)
	assert.Equal(t, "Ice Box Station", result[0].Map)
	assert.Empty(t, result[0].ErrorMessage)

	// Timeout and any other failure are both offline
	for i, name := range []string{"Terry", "Manuel"} {
		s := result[i+1]
		assert.Equal(t, StateOffline, s.State)
		assert.Equal(t, name, s.Name)
		assert.Nil(t, s.Round)
		assert.Equal(t, testTargets[i+1].ErrorMessage, s.ErrorMessage)
	}
}

func TestStatusPollsConcurrently(t *testing.T) {
	poller := &fakePoller{delay: 200 * time.Millisecond}

	start := time.Now()
	result := NewAggregator(poller, testTargets).Status(context.Background())

	require.Len(t, result, 3)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(3), poller.calls.Load())
}

func TestStatusCachesUntilTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	poller := &fakePoller{}

	agg := NewAggregator(poller, testTargets, WithTTL(30*time.Second), WithClock(clock))

	agg.Status(context.Background())
	assert.Equal(t, int32(3), poller.calls.Load())

	now = now.Add(29 * time.Second)
	agg.Status(context.Background())
	assert.Equal(t, int32(3), poller.calls.Load(), "served from cache")

	now = now.Add(time.Second)
	agg.Status(context.Background())
	assert.Equal(t, int32(6), poller.calls.Load(), "expired at ttl")

	agg.Invalidate()
	agg.Status(context.Background())
	assert.Equal(t, int32(9), poller.calls.Load())
}

func TestRefreshBypassesCache(t *testing.T) {
	poller := &fakePoller{}
	agg := NewAggregator(poller, testTargets[:1], WithTTL(time.Hour))

	agg.Status(context.Background())
	agg.Refresh(context.Background())
	assert.Equal(t, int32(2), poller.calls.Load())

	agg.Status(context.Background())
	assert.Equal(t, int32(2), poller.calls.Load(), "refresh repopulates the cache")
}

func TestStatusWithoutCache(t *testing.T) {
	poller := &fakePoller{}
	agg := NewAggregator(poller, testTargets[:1], WithTTL(0))

	agg.Status(context.Background())
	agg.Status(context.Background())
	assert.Equal(t, int32(2), poller.calls.Load())
}

func TestServerEncoding(t *testing.T) {
	online := Server{
		State:   StateOnline,
		Name:    "Sybil",
		Address: "byond://sybil:1337",
		Round: &Round{
			RoundID:       1,
			Players:       2,
			Map:           "Delta",
			SecurityLevel: topic.SecurityLevelRed,
			GameState:     topic.GameStateSettingUp,
		},
	}
	offline := Server{State: StateOffline, Name: "Terry", Address: "byond://terry:3336", ErrorMessage: "down"}

	data, err := json.Marshal([]Server{online, offline})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "online", decoded[0]["status"])
	assert.Equal(t, "red", decoded[0]["security_level"])
	assert.Equal(t, "settingup", decoded[0]["gamestate"])
	assert.NotContains(t, decoded[0], "error_message")
	assert.Equal(t, "down", decoded[1]["error_message"])
	assert.NotContains(t, decoded[1], "round_id")

	out, err := yaml.Marshal(online)
	require.NoError(t, err)
	assert.Contains(t, string(out), "map: Delta")
	assert.Contains(t, string(out), "security_level: red")
}
