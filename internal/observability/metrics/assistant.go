package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics tracks LLM calls and tool usage of the chat agent.
type AssistantMetrics struct {
	llmLatency *prometheus.HistogramVec
	tokens     *prometheus.CounterVec
	toolCalls  *prometheus.CounterVec
	turns      *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "klinikai",
			Subsystem: "assistant",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinikai",
			Subsystem: "assistant",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by LLM calls",
		}, []string{"direction"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinikai",
			Subsystem: "assistant",
			Name:      "tool_calls_total",
			Help:      "Agent tool invocations by tool and status",
		}, []string{"tool", "status"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinikai",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Chat turns by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.llmLatency, m.tokens, m.toolCalls, m.turns)
	return m
}

// ObserveLLM records one completion call.
func (m *AssistantMetrics) ObserveLLM(seconds float64, inputTokens, outputTokens int32, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmLatency.WithLabelValues(status).Observe(seconds)
	if inputTokens > 0 {
		m.tokens.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.tokens.WithLabelValues("output").Add(float64(outputTokens))
	}
}

func (m *AssistantMetrics) ObserveToolCall(tool string, success bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

func (m *AssistantMetrics) ObserveTurn(channel, outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(channel, outcome).Inc()
}
