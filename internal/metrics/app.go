// Package metrics records stationlink's counters, gauges and histograms on
// the global telemetry system. Every recorder is a no-op while
// observability.TelemetrySystem is nil, which is the case for CLI runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/stationlink/stationlink/internal/observability"
)

// Metric names, prefixed with the exporter namespace at scrape time.
var (
	TopicQueriesTotal   = "topic_queries_total"
	TopicQueryDuration  = "topic_query_duration_ms"
	ServersOnline       = "servers_online"
	ServerStatusRefresh = "server_status_refresh_total"

	RateLimitWait = "ratelimit_wait_ms"

	DiscordRequestsTotal = "discord_requests_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordTopicQuery records one topic query by result (ok, timeout,
// invalid_response, error) and how long it took.
func RecordTopicQuery(result string, duration time.Duration) {
	labels := map[string]string{"result": result}
	count(TopicQueriesTotal, labels)
	observe(TopicQueryDuration, duration, labels)
}

// RecordServerStatusRefresh records one poll of every game server.
func RecordServerStatusRefresh(online, total int) {
	count(ServerStatusRefresh, nil)
	gauge(ServersOnline, float64(online), map[string]string{"total": strconv.Itoa(total)})
}

// RecordRateLimitWait records how long a caller waited for a bucket permit.
func RecordRateLimitWait(bucket string, wait time.Duration) {
	observe(RateLimitWait, wait, map[string]string{"bucket": bucket})
}

// RecordDiscordRequest records a Discord API call by route and HTTP status.
func RecordDiscordRequest(route string, statusCode int) {
	count(DiscordRequestsTotal, map[string]string{
		"route":  route,
		"status": strconv.Itoa(statusCode),
	})
}

// RecordHealthCheck records one health checker run.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	count(HealthCheckTotal, map[string]string{"check": checkName, "status": status})
	observe(HealthCheckDuration, duration, map[string]string{"check": checkName})
}

// SetServerStartTime records the server start time as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp), nil)
}

func gauge(name string, value float64, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(name, value, labels)
}

func observe(name string, d time.Duration, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(name, d, labels)
}
