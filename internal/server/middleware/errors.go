package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/metrics"
	"github.com/stationlink/stationlink/internal/observability"
)

// panicBody mirrors the JSON error shape of internal/errors, which imports
// this package and so cannot be used here.
type panicBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery turns a handler panic into a 500. The panic value and stack go to
// the log; the response carries only the request ID.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			requestID := GetRequestID(r.Context())
			metrics.RecordPanic()
			if logger := observability.Logger(); logger != nil {
				logger.Error("Recovered from handler panic",
					zap.String("panic", fmt.Sprint(recovered)),
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.String("severity", "critical"),
					zap.ByteString("stack_trace", debug.Stack()))
			}

			var body panicBody
			body.Error.Code = "INTERNAL_ERROR"
			body.Error.Message = "internal server error"
			body.Error.RequestID = requestID

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}
