package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "board_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	MessagesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_messages_posted_total",
		Help: "Total messages successfully submitted",
	})

	MessagesApproved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_messages_approved_total",
		Help: "Total pending messages moved to approved",
	})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_notifications_sent_total",
		Help: "Total notification emails sent",
	}, []string{"class"})

	NotificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_notifications_failed_total",
		Help: "Total notification emails that could not be sent or queued",
	}, []string{"class"})

	Signups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_signups_total",
		Help: "Total successful account registrations",
	})

	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_login_failure_total",
		Help: "Total failed login attempts",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(MessagesPosted)
	prometheus.MustRegister(MessagesApproved)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(NotificationsFailed)
	prometheus.MustRegister(Signups)
	prometheus.MustRegister(LoginFailure)
}

// Middleware to track request timing and status code
type statusRecordingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler labels requests with the chi route pattern rather than the raw path,
// keeping label cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}
