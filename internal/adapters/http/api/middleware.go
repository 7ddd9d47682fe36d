package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tutorboard/pkg/logger"
	"github.com/okian/tutorboard/pkg/metrics"
)

// MetricsMiddleware records request counts, latency and error classes for
// endpoint. The endpoint name is also attached to the request context so
// pipeline logs for the request carry it.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithFields(r.Context(), logger.String("endpoint", endpoint))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		elapsed := time.Since(start)
		code := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(elapsed.Milliseconds()))

		if sw.status < http.StatusBadRequest {
			return
		}
		class := errorClass(sw.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
		metrics.RecordErrorByComponent("http", class)
		if sw.status >= http.StatusInternalServerError {
			logger.Named("http").Warn(ctx, "request failed",
				logger.String("method", r.Method),
				logger.Int("status", sw.status),
				logger.Duration("elapsed", elapsed),
			)
		}
	}
}

// errorClass buckets a status code into the error_type label.
func errorClass(status int) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusBadRequest:
		return "bad_request"
	default:
		return "client_error"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}
