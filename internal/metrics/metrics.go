package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prescription-chatbot/internal/llm"
)

// Metrics holds the Prometheus collectors of the intake service.  A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LLMCalls       *prometheus.CounterVec
	LLMLatency     *prometheus.HistogramVec
	Turns          *prometheus.CounterVec
	FieldsLearned  prometheus.Histogram
	Documents      *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
	SessionsSwept  prometheus.Counter
	RateLimitedReq prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LLMCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_llm_calls_total",
			Help: "Inference calls by task and outcome",
		}, []string{"task", "outcome"}),

		LLMLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_llm_call_duration_seconds",
			Help:    "Inference call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"task"}),

		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_turns_total",
			Help: "Processed turns by resulting record completeness",
		}, []string{"complete"}),

		FieldsLearned: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_fields_extracted",
			Help:    "Fields extracted per turn",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7},
		}),

		Documents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_documents_total",
			Help: "Prescription documents by outcome",
		}, []string{"outcome"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		SessionsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_sessions_swept_total",
			Help: "Sessions deleted by the retention sweeper",
		}),

		RateLimitedReq: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OnCallComplete implements llm.Observer.
func (m *Metrics) OnCallComplete(e llm.CallEvent) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !e.Success {
		outcome = e.ErrorCode
	}
	m.LLMCalls.WithLabelValues(string(e.Task), outcome).Inc()
	m.LLMLatency.WithLabelValues(string(e.Task)).Observe(e.Latency.Seconds())
}

// TurnProcessed records one turn.
func (m *Metrics) TurnProcessed(extracted int, complete bool) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(strconv.FormatBool(complete)).Inc()
	m.FieldsLearned.Observe(float64(extracted))
}

// DocumentGenerated records one generation attempt.
func (m *Metrics) DocumentGenerated(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Documents.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Swept records sessions removed by the sweeper.
func (m *Metrics) Swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}

// RateLimited records a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedReq.Inc()
}
