package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat and booking flows.
type ChatMetrics struct {
	turnsTotal     *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	droppedCalls   prometheus.Counter
	llmLatency     *prometheus.HistogramVec
	bookingsTotal  *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartschedule",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns handled, by outcome",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartschedule",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched, by tool name",
		}, []string{"tool"}),
		droppedCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartschedule",
			Subsystem: "chat",
			Name:      "ignored_tool_calls_total",
			Help:      "Tool calls ignored because the model returned more than one",
		}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smartschedule",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of model completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartschedule",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts, by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.toolCallsTotal, m.droppedCalls, m.llmLatency, m.bookingsTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveToolCall(tool string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool).Inc()
}

func (m *ChatMetrics) ObserveIgnoredToolCalls(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedCalls.Add(float64(n))
}

func (m *ChatMetrics) ObserveLLMLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(status).Observe(seconds)
}

// ObserveBooking satisfies booking.Observer.
func (m *ChatMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}
