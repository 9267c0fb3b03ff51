package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/stationlink/stationlink/internal/errors"
)

func checker(err error) HealthCheckerFunc {
	return func(context.Context) error { return err }
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]HealthChecker
		wantCode   int
		wantStatus string
	}{
		{
			name:       "all healthy",
			checkers:   map[string]HealthChecker{"config": checker(nil)},
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name: "degraded dependency",
			checkers: map[string]HealthChecker{
				"config":       checker(nil),
				"game_servers": checker(fmt.Errorf("0 of 3 online: %w", ErrDegraded)),
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name: "unhealthy wins",
			checkers: map[string]HealthChecker{
				"config":       checker(errors.New("bad")),
				"game_servers": checker(ErrDegraded),
			},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewHealthManager("1.2.3")
			for name, c := range tt.checkers {
				manager.RegisterChecker(name, c)
			}

			rec := httptest.NewRecorder()
			manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tt.wantCode, rec.Code)

			if tt.wantCode != http.StatusOK {
				var resp apperrors.HTTPErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, apperrors.CodeServiceUnavailable, resp.Error.Code)
				checks, ok := resp.Error.Details["checks"].(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, StatusUnhealthy, checks["config"])
				return
			}

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestRunChecksReportsTimeoutAfterDeadline(t *testing.T) {
	manager := NewHealthManager("dev")
	ctx, cancel := context.WithCancel(context.Background())
	manager.RegisterChecker("a_first", HealthCheckerFunc(func(context.Context) error {
		cancel()
		return nil
	}))
	manager.RegisterChecker("b_second", checker(nil))

	checks := manager.runChecks(ctx)
	assert.Equal(t, StatusHealthy, checks["a_first"])
	assert.Equal(t, StatusTimeout, checks["b_second"])
	assert.Equal(t, StatusDegraded, overallStatus(checks))
}

func TestProbes(t *testing.T) {
	manager := NewHealthManager("dev")
	calls := 0
	manager.RegisterChecker("config", HealthCheckerFunc(func(context.Context) error {
		calls++
		return errors.New("config missing")
	}))

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores checkers")
	assert.Zero(t, calls)

	for _, handler := range []http.HandlerFunc{manager.ReadinessHandler, manager.StartupHandler} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestGlobalHandlersWithoutManager(t *testing.T) {
	previous := globalHealthManager
	globalHealthManager = nil
	t.Cleanup(func() { globalHealthManager = previous })

	rec := httptest.NewRecorder()
	ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
