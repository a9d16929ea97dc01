// Package metrics holds the Prometheus collectors for the engine and the
// HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "adaptiq"

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	Answers           *prometheus.CounterVec
	Adjustments       *prometheus.CounterVec
	SessionsEnded     *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	OperationDuration *prometheus.HistogramVec

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. reg may be nil,
// in which case nothing is registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started.",
		}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers recorded, by correctness.",
		}, []string{"correct"}),
		Adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "difficulty_adjustments_total",
			Help:      "Difficulty adjustments applied, by direction.",
		}, []string{"direction"}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions that reached a terminal state, by status.",
		}, []string{"status"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently active in the engine.",
		}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		RequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsStarted, m.Answers, m.Adjustments, m.SessionsEnded,
			m.ActiveSessions, m.OperationDuration,
			m.RequestCounter, m.RequestDuration,
		)
	}
	return m
}

// ObserveOp records the duration of op since start.
func (m *Metrics) ObserveOp(op string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded(status string) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(status).Inc()
	m.ActiveSessions.Dec()
}

// SessionRestored counts a session reloaded into the engine at startup.
func (m *Metrics) SessionRestored() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) AnswerRecorded(correct bool) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) DifficultyAdjusted(direction string, n int) {
	if m == nil {
		return
	}
	m.Adjustments.WithLabelValues(direction).Add(float64(n))
}

// Request records one finished HTTP request.
func (m *Metrics) Request(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(StatusOf(status))).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// StatusOf maps a status code of zero to 200, the net/http default.
func StatusOf(code int) int {
	if code == 0 {
		return http.StatusOK
	}
	return code
}
