package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafe_pos",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the POS API.",
		},
		[]string{"method", "route", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kafe_pos",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests sent to the POS API.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		},
		[]string{"method", "route"},
	)

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafe_pos",
			Subsystem: "api",
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts after a 401.",
		},
		[]string{"result"},
	)

	pollTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafe_pos",
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Handler invocations per poller.",
		},
		[]string{"poller"},
	)

	activePollers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kafe_pos",
			Subsystem: "poller",
			Name:      "active",
			Help:      "Number of running pollers.",
		},
	)

	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafe_pos",
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafe_pos",
			Subsystem: "payments",
			Name:      "submitted_total",
			Help:      "Payment submissions by method and result.",
		},
		[]string{"method", "result"},
	)

	catalogCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafe_pos",
			Subsystem: "catalog_cache",
			Name:      "lookups_total",
			Help:      "Catalog cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		apiRequests,
		apiDuration,
		tokenRefreshes,
		pollTicks,
		activePollers,
		cartMutations,
		payments,
		catalogCache,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveAPIRequest records one API round trip. status 0 means no response was received.
func ObserveAPIRequest(method, path string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	route := CanonicalRoute(path)
	apiRequests.WithLabelValues(strings.ToUpper(method), route, label).Inc()
	apiDuration.WithLabelValues(strings.ToUpper(method), route).Observe(duration.Seconds())
}

func RecordTokenRefresh(ok bool) {
	tokenRefreshes.WithLabelValues(result(ok)).Inc()
}

func RecordPollTick(poller string) {
	pollTicks.WithLabelValues(poller).Inc()
}

func PollerStarted() { activePollers.Inc() }
func PollerStopped() { activePollers.Dec() }

func RecordCartMutation(op string, err error) {
	cartMutations.WithLabelValues(op, result(err == nil)).Inc()
}

func RecordPayment(method string, err error) {
	payments.WithLabelValues(method, result(err == nil)).Inc()
}

func RecordCatalogCache(hit bool) {
	if hit {
		catalogCache.WithLabelValues("hit").Inc()
		return
	}
	catalogCache.WithLabelValues("miss").Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// CanonicalRoute replaces numeric path segments with ":id" to keep label cardinality low.
func CanonicalRoute(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/") + "/"
}
