// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequests counts chat turns by outcome (ok, invalid, unavailable, upstream, error).
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmastore_chat_requests_total",
		Help: "Chat requests by outcome",
	}, []string{"outcome"})

	ChatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pharmastore_chat_duration_seconds",
		Help:    "End-to-end chat turn latency",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// ToolCalls counts dispatched assistant tools by name and result.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmastore_tool_calls_total",
		Help: "Assistant tool invocations by tool and result",
	}, []string{"tool", "result"})

	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmastore_cart_mutations_total",
		Help: "Cart mutations by operation",
	}, []string{"op"})

	WarmupPings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmastore_keepwarm_pings_total",
		Help: "Keep-warm pings by result",
	}, []string{"result"})
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
