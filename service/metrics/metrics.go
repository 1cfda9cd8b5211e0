package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Ethereum RPC Metrics
	ethRPCCallsTotal   *prometheus.CounterVec
	ethRPCCallDuration *prometheus.HistogramVec

	// Wave Feed Metrics
	wavesFetchedTotal      *prometheus.CounterVec
	wavesListSize          prometheus.Gauge
	waveNotificationsTotal *prometheus.CounterVec
	waveSubmissionsTotal   *prometheus.CounterVec
	waveFinalizeDuration   prometheus.Histogram
	wavePrizesWonTotal     prometheus.Counter
	subscriptionActive     prometheus.Gauge

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections prometheus.Gauge
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Ethereum RPC Metrics
		ethRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eth_rpc_calls_total",
				Help: "Total number of Ethereum RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		ethRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eth_rpc_call_duration_seconds",
				Help:    "Duration of Ethereum RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),

		// Wave Feed Metrics
		wavesFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waves_fetched_total",
				Help: "Total number of full wave list fetches by status",
			},
			[]string{"status"},
		),
		wavesListSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "waves_list_size",
				Help: "Number of waves currently held in the feed",
			},
		),
		waveNotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wave_notifications_total",
				Help: "Total number of NewWave notifications received",
			},
			[]string{"status"},
		),
		waveSubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wave_submissions_total",
				Help: "Total number of wave submissions by outcome",
			},
			[]string{"status"},
		),
		waveFinalizeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wave_finalize_duration_seconds",
				Help:    "Time between submitting a wave and its finalization",
				Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
			},
		),
		wavePrizesWonTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wave_prizes_won_total",
				Help: "Total number of submissions after which the contract balance decreased",
			},
		),
		subscriptionActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wave_subscription_active",
				Help: "1 while the NewWave subscription is open, 0 otherwise",
			},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"event_type"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of messages published to NATS",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),
	}
}

// Ethereum RPC metric helpers

// RecordRPCCall records an Ethereum RPC call with its status and duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.ethRPCCallsTotal.WithLabelValues(method, status).Inc()
	m.ethRPCCallDuration.WithLabelValues(method).Observe(duration)
}

// Wave feed metric helpers

// RecordFetch records a full wave list fetch and the resulting list size.
func (m *Metrics) RecordFetch(status string, size int) {
	m.wavesFetchedTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.wavesListSize.Set(float64(size))
	}
}

// RecordNotification records a NewWave notification and the resulting list size.
func (m *Metrics) RecordNotification(status string, size int) {
	m.waveNotificationsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.wavesListSize.Set(float64(size))
	}
}

// RecordSubmission records the outcome of a wave submission.
func (m *Metrics) RecordSubmission(status string) {
	m.waveSubmissionsTotal.WithLabelValues(status).Inc()
}

// RecordFinalization records how long a submitted wave took to finalize.
func (m *Metrics) RecordFinalization(duration float64) {
	m.waveFinalizeDuration.Observe(duration)
}

// RecordPrizeWon records a submission after which the contract paid out.
func (m *Metrics) RecordPrizeWon() {
	m.wavePrizesWonTotal.Inc()
}

// SetSubscriptionActive records whether the NewWave subscription is open.
func (m *Metrics) SetSubscriptionActive(active bool) {
	if active {
		m.subscriptionActive.Set(1)
		return
	}
	m.subscriptionActive.Set(0)
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(delta float64) {
	m.sseActiveConnections.Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(eventType string) {
	m.sseEventsSent.WithLabelValues(eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
