package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	apperrors "github.com/stationlink/stationlink/internal/errors"
	"github.com/stationlink/stationlink/internal/observability"
)

// metricsTransport reaches the exporter on loopback.
var metricsTransport http.RoundTripper = &http.Transport{
	ResponseHeaderTimeout: 5 * time.Second,
}

// MetricsHandler serves the Prometheus exporter's output on the main HTTP
// port so a single address can be scraped.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		apperrors.RespondWithError(w, r, apperrors.NewServiceUnavailableError("Metrics exporter not initialized"))
		return
	}

	port := observability.GetMetricsPort()
	if port == 0 {
		port = observability.DefaultMetricsPort
	}
	target := &url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", port)}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = "/metrics"
			pr.Out.URL.RawQuery = ""
		},
		Transport: metricsTransport,
		ModifyResponse: func(resp *http.Response) error {
			if resp.Header.Get("Content-Type") == "" {
				resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			apperrors.RespondWithError(w, r,
				apperrors.WrapExternalService(r.Context(), err, "Prometheus exporter unavailable"))
		},
	}
	proxy.ServeHTTP(w, r)
}
