package metrics

import (
	"strconv"
	"time"
)

// HTTP metric names.
const (
	HTTPRequestsTotal   = "http_requests_total"
	HTTPRequestDuration = "http_request_duration_ms"
	HTTPRequestSize     = "http_request_size_bytes"
	HTTPResponseSize    = "http_response_size_bytes"
	HTTPErrorsTotal     = "http_errors_total"
)

// HTTPRequest describes one served request. Endpoint must be a route
// pattern, never a raw path.
type HTTPRequest struct {
	Method       string
	Endpoint     string
	Status       int
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64
}

// RecordHTTPRequest records the request counter, latency, body sizes and,
// for 4xx and 5xx statuses, the error counter.
func RecordHTTPRequest(req HTTPRequest) {
	status := strconv.Itoa(req.Status)
	labels := map[string]string{"method": req.Method, "endpoint": req.Endpoint, "status": status}
	count(HTTPRequestsTotal, labels)
	observe(HTTPRequestDuration, req.Duration, labels)

	sizeLabels := map[string]string{"method": req.Method, "endpoint": req.Endpoint}
	gauge(HTTPRequestSize, float64(req.RequestSize), sizeLabels)
	gauge(HTTPResponseSize, float64(req.ResponseSize), sizeLabels)

	if req.Status < 400 {
		return
	}
	class := "client_error"
	if req.Status >= 500 {
		class = "server_error"
	}
	count(HTTPErrorsTotal, map[string]string{
		"method":     req.Method,
		"endpoint":   req.Endpoint,
		"status":     status,
		"error_type": class,
	})
}
