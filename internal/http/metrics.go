package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secretnick_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	roomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretnick_room_events_total",
			Help: "Successful room and participant changes by event",
		},
		[]string{"event"},
	)
)

// PrometheusMiddleware records request duration labelled with the matched route.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// RecordRoomEvent counts a successful change, e.g. "room_created" or "user_joined".
func RecordRoomEvent(event string) {
	roomEvents.WithLabelValues(event).Inc()
}

// routePattern keeps user ids out of label values.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
