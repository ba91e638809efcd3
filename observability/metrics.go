package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the SDK.
type Metrics struct {
	ActiveConversations prometheus.Gauge
	ConversationEvents  *prometheus.CounterVec
	StartupFailures     *prometheus.CounterVec
	ClientToolCalls     *prometheus.CounterVec
	AgentReadyLatency   prometheus.Histogram
	StartupLatency      prometheus.Histogram
}

// NewMetrics registers the SDK instruments with reg. A nil reg uses the
// default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConversations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of active realtime conversations.",
		}),
		ConversationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_events_total",
			Help:      "Incoming conversation events by type.",
		}, []string{"event"}),
		StartupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "startup_failures_total",
			Help:      "Startup failures by phase.",
		}, []string{"phase"}),
		ClientToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_tool_calls_total",
			Help:      "Client tool executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		AgentReadyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_ready_latency_ms",
			Help:      "Latency from room join to agent readiness in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 700, 1000, 2000, 5000},
		}),
		StartupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "startup_latency_ms",
			Help:      "Latency from session start to active in milliseconds.",
			Buckets:   []float64{200, 500, 1000, 2000, 3000, 5000, 10000},
		}),
	}
}

func (m *Metrics) ObserveAgentReadyLatency(d time.Duration) {
	m.AgentReadyLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveStartupLatency(d time.Duration) {
	m.StartupLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
