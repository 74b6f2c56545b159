package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_engine_http_requests_total",
		Help: "Total number of HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	// Buckets skew toward the sub-second range; the only slow endpoints are
	// the ledger computations, which stay well under a second.
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lending_engine_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route", "status"})
)

func MetricsMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				route := chi.RouteContext(r.Context()).RoutePattern()
				status := strconv.Itoa(ww.Status())

				httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
				httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
