package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/manager"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	modelEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "model",
			Name:      "events_total",
			Help:      "Model lifecycle events by name (download_done, load_ready, evict, ...)",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, modelEventsTotal)
}

// EventsCollector forwards manager lifecycle events into Prometheus. Wire
// it with Manager.SetEventPublisher.
type EventsCollector struct{}

func NewEventsCollector() EventsCollector { return EventsCollector{} }

func (EventsCollector) Publish(e manager.Event) {
	modelEventsTotal.WithLabelValues(e.Name).Inc()
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		method := r.Method
		httpInflight.WithLabelValues(path).Inc()
		defer httpInflight.WithLabelValues(path).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		statusLabel := itoa(sr.status)
		dur := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(path, method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, method, statusLabel).Observe(dur)
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// Stats is the optional read side a Service can expose to get live gauges
// on the metrics endpoint.
type Stats interface {
	UsagePercent() float64
	LoadedCount() int
	EvictionsTotal() uint64
	LoadsTotal() uint64
	FetchesTotal() uint64
}

// metricsHandler serves the default registry plus, when the service
// implements Stats, collectors bound to it. The per-mux registry keeps a
// rebuilt server (common in tests) from re-registering globally.
func metricsHandler(svc Service) http.HandlerFunc {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if st, ok := svc.(Stats); ok {
		reg := prometheus.NewRegistry()
		reg.MustRegister(statsCollectors(st)...)
		gatherers = append(gatherers, reg)
	}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}).ServeHTTP
}

func statsCollectors(st Stats) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "inferd",
				Subsystem: "vram",
				Name:      "usage_percent",
				Help:      "Device memory in use as a percentage of capacity",
			},
			st.UsagePercent,
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "inferd",
				Subsystem: "models",
				Name:      "loaded",
				Help:      "Models resident in device memory",
			},
			func() float64 { return float64(st.LoadedCount()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "inferd",
				Subsystem: "models",
				Name:      "evictions_total",
				Help:      "Models evicted to make room since startup",
			},
			func() float64 { return float64(st.EvictionsTotal()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "inferd",
				Subsystem: "models",
				Name:      "loads_total",
				Help:      "Successful model loads since startup",
			},
			func() float64 { return float64(st.LoadsTotal()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "inferd",
				Subsystem: "models",
				Name:      "downloads_total",
				Help:      "Completed artifact downloads since startup",
			},
			func() float64 { return float64(st.FetchesTotal()) },
		),
	}
}

// fast integer to ascii for small set of status codes
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
