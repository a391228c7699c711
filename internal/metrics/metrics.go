// Package metrics exposes Prometheus counters for the assistant.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cyberguard/internal/llm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Classifications   *prometheus.CounterVec
	StepOutcomes      *prometheus.CounterVec
	ReportsExported   prometheus.Counter
	DetectorAnalyses  *prometheus.CounterVec
	BadgesAwarded     *prometheus.CounterVec
	LLMRequests       *prometheus.CounterVec
	LLMRequestSeconds *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberguard_incident_classifications_total",
				Help: "Incident classifications by outcome (success, failure, stale).",
			},
			[]string{"outcome"},
		),
		StepOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberguard_playbook_steps_total",
				Help: "Playbook step confirmations by outcome.",
			},
			[]string{"completed"},
		),
		ReportsExported: factory.NewCounter(prometheus.CounterOpts{
			Name: "cyberguard_reports_exported_total",
			Help: "Incident reports written to the report store.",
		}),
		DetectorAnalyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberguard_detector_analyses_total",
				Help: "Scam detector analyses by risk level.",
			},
			[]string{"risk_level"},
		),
		BadgesAwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberguard_badges_awarded_total",
				Help: "Detector badges awarded.",
			},
			[]string{"badge"},
		),
		LLMRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberguard_llm_requests_total",
				Help: "LLM requests by phase and result.",
			},
			[]string{"phase", "result"},
		),
		LLMRequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cyberguard_llm_request_duration_seconds",
				Help:    "LLM request latency by phase.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"phase"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The methods below satisfy incident.Recorder.

func (m *Metrics) Classification(outcome string) {
	m.Classifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StepOutcome(completed bool) {
	m.StepOutcomes.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

func (m *Metrics) ReportExported() { m.ReportsExported.Inc() }

func (m *Metrics) DetectorAnalysis(riskLevel string) {
	m.DetectorAnalyses.WithLabelValues(riskLevel).Inc()
}

func (m *Metrics) BadgeAwarded(name string) {
	m.BadgesAwarded.WithLabelValues(name).Inc()
}

// LLMMiddleware counts and times every request by llm phase.
func (m *Metrics) LLMMiddleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return &instrumented{next: next, m: m}
	}
}

type instrumented struct {
	next llm.LLMClient
	m    *Metrics
}

func (c *instrumented) Name() string { return c.next.Name() }
func (c *instrumented) Close() error { return c.next.Close() }
func (c *instrumented) GenerateJSON(ctx context.Context, prompt string, input any, media ...llm.Media) (json.RawMessage, error) {
	phase := llm.PhaseFrom(ctx)
	start := time.Now()
	raw, err := c.next.GenerateJSON(ctx, prompt, input, media...)
	c.m.LLMRequestSeconds.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.m.LLMRequests.WithLabelValues(phase, result).Inc()
	return raw, err
}
