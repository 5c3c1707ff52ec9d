package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Business metrics
	accountsRegisteredTotal prometheus.Counter
	loginsTotal             *prometheus.CounterVec
	recommendationsTotal    *prometheus.CounterVec
	viewTransitionsTotal    *prometheus.CounterVec
	ordersStartedTotal      prometheus.Counter
	imageLookupsTotal       *prometheus.CounterVec

	// LLM metrics
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensTotal     *prometheus.CounterVec

	// System metrics
	cacheOperations *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewMetricsCollector creates a collector backed by its own registry so
// several instances can coexist in tests.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		accountsRegisteredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_registered_total",
				Help: "Total number of accounts created",
			},
		),
		loginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"status"},
		),
		recommendationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommendations_total",
				Help: "Meal recommendation requests by outcome",
			},
			[]string{"status"},
		),
		viewTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "view_transitions_total",
				Help: "Navigation into each view",
			},
			[]string{"view"},
		),
		ordersStartedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_started_total",
				Help: "Total number of simulated orders placed",
			},
		),
		imageLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_lookups_total",
				Help: "Recipe image lookups by result",
			},
			[]string{"result"},
		),

		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM completion requests",
			},
			[]string{"provider", "model", "status"},
		),
		llmRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "LLM completion duration in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"provider", "model"},
		),
		llmTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Tokens consumed by LLM completions",
			},
			[]string{"provider", "type"},
		),

		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Total number of cache operations",
			},
			[]string{"operation", "backend", "status"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Sessions currently held by the session store",
			},
		),
	}
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPMiddleware records request count, latency and response size per chi route
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusCode := strconv.Itoa(status)

		m.httpRequestsTotal.WithLabelValues(r.Method, route, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route, statusCode).Observe(time.Since(start).Seconds())
		m.httpResponseSize.WithLabelValues(r.Method, route).Observe(float64(ww.BytesWritten()))
	})
}

func (m *MetricsCollector) AccountRegistered() {
	m.accountsRegisteredTotal.Inc()
}

func (m *MetricsCollector) Login(success bool) {
	m.loginsTotal.WithLabelValues(outcome(success)).Inc()
}

func (m *MetricsCollector) Recommendations(success bool) {
	m.recommendationsTotal.WithLabelValues(outcome(success)).Inc()
}

func (m *MetricsCollector) ViewTransition(view string) {
	m.viewTransitionsTotal.WithLabelValues(view).Inc()
}

func (m *MetricsCollector) OrderStarted() {
	m.ordersStartedTotal.Inc()
}

// ImageLookup records whether a recipe image was found or replaced by the placeholder
func (m *MetricsCollector) ImageLookup(found bool) {
	result := "found"
	if !found {
		result = "placeholder"
	}
	m.imageLookupsTotal.WithLabelValues(result).Inc()
}

// LLMRequest records a completion call
func (m *MetricsCollector) LLMRequest(provider, model string, err error, duration time.Duration) {
	m.llmRequestsTotal.WithLabelValues(provider, model, outcome(err == nil)).Inc()
	m.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// LLMTokens records prompt and completion token usage
func (m *MetricsCollector) LLMTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		m.llmTokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.llmTokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

func (m *MetricsCollector) CacheOperation(operation, backend string, err error) {
	m.cacheOperations.WithLabelValues(operation, backend, outcome(err == nil)).Inc()
}

func (m *MetricsCollector) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
