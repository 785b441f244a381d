// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the gremium server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// FanoutBuckets defines histogram buckets for the number of council members
// addressed by a single query.
var FanoutBuckets = []float64{1, 2, 4, 8, 16, 32}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremium_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gremium_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// MemberRequestsTotal counts completions requested from council members.
	// The status label is "success" or the failure kind (auth, rate_limited,
	// timeout, provider).
	MemberRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremium_member_requests_total",
			Help: "Member completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	// MemberLatency records member completion latency in seconds.
	MemberLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gremium_member_latency_seconds",
			Help:    "Member completion latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// MemberTokensTotal counts tokens processed by direction (input/output).
	MemberTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremium_member_tokens_total",
			Help: "Member token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// QueryFanout records how many members each council query addressed.
	QueryFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gremium_query_fanout_members",
			Help:    "Members addressed per query",
			Buckets: FanoutBuckets,
		},
	)

	// SynthesisTotal counts chairman synthesis runs by model and outcome.
	SynthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremium_synthesis_total",
			Help: "Chairman synthesis runs",
		},
		[]string{"model", "status"},
	)

	// ToolExecutionsTotal counts MCP tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremium_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremium_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		MemberRequestsTotal,
		MemberLatency,
		MemberTokensTotal,
		QueryFanout,
		SynthesisTotal,
		ToolExecutionsTotal,
		RateLimitRejectedTotal,
	)
}
