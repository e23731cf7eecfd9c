package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_http_requests_total",
		Help: "HTTP requests by route pattern and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "diary_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	DispatchPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_dispatch_passes_total",
		Help: "Dispatch passes by result",
	}, []string{"result"})

	DispatchPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "diary_dispatch_pass_duration_seconds",
		Help:    "Duration of one dispatch pass",
		Buckets: prometheus.DefBuckets,
	})

	DispatchDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_dispatch_decisions_total",
		Help: "Per-user dispatch decisions by reason",
	}, []string{"reason"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_emails_sent_total",
		Help: "Emails handed to a transport",
	}, []string{"transport", "result"})

	PATAuthentications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_pat_authentications_total",
		Help: "PAT authentication attempts by outcome",
	}, []string{"outcome"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_llm_requests_total",
		Help: "LLM completion requests by result",
	}, []string{"result"})

	LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "diary_llm_request_duration_seconds",
		Help:    "LLM completion latency",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	HousekeepingPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_housekeeping_purged_total",
		Help: "Rows removed by housekeeping",
	}, []string{"kind"})
)
