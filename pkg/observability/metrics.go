package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/easternmills/millops/pkg/access"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Access resolution metrics
	AccessResolutionsTotal *prometheus.CounterVec
	UsersProvisionedTotal  prometheus.Counter
	AccessDeniedTotal      *prometheus.CounterVec

	// Session metrics
	SessionsIssuedTotal  prometheus.Counter
	SessionsRevokedTotal prometheus.Counter

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	DBConnectionsActive      prometheus.Gauge
	DBConnectionsIdle        prometheus.Gauge

	// Document metrics
	DocumentUploadsTotal  *prometheus.CounterVec
	DocumentUploadedBytes prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "millops_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "millops_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "millops_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		AccessResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "millops_access_resolutions_total",
				Help: "Total access resolutions by outcome (record, fallback)",
			},
			[]string{"outcome"},
		),
		UsersProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "millops_users_provisioned_total",
				Help: "Deny-by-default user records created on first sign-in",
			},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "millops_access_denied_total",
				Help: "Requests denied by an access guard",
			},
			[]string{"resource"},
		),

		SessionsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "millops_sessions_issued_total",
				Help: "Total sessions issued",
			},
		),
		SessionsRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "millops_sessions_revoked_total",
				Help: "Total sessions revoked",
			},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "millops_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "millops_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "millops_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "millops_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		DocumentUploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "millops_document_uploads_total",
				Help: "Total document uploads by department",
			},
			[]string{"department"},
		),
		DocumentUploadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "millops_document_uploaded_bytes_total",
				Help: "Total bytes of uploaded documents",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AccessResolutionsTotal,
		m.UsersProvisionedTotal,
		m.AccessDeniedTotal,
		m.SessionsIssuedTotal,
		m.SessionsRevokedTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DocumentUploadsTotal,
		m.DocumentUploadedBytes,
	)

	return m
}

// ResolverMetrics adapts the registry's counters to the access resolver.
func (m *Metrics) ResolverMetrics() *access.ResolverMetrics {
	return &access.ResolverMetrics{
		Resolutions: m.AccessResolutionsTotal,
		Provisioned: m.UsersProvisionedTotal,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
