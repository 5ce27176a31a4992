package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/klinikai/internal/archive"
	"github.com/wolfman30/klinikai/internal/observability/metrics"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

var assistantTracer = otel.Tracer("klinikai.internal.assistant")

const defaultMaxSteps = 10

// ErrEmptyConversation is returned when there is no user message to answer.
var ErrEmptyConversation = errors.New("assistant: conversation has no user message")

// Agent drives the model through triage, recommendation and booking tools.
type Agent struct {
	llm         LLMClient
	tools       *Toolbox
	prompt      *Prompt
	catalog     *triage.Catalog
	model       string
	maxSteps    int
	temperature float32
	metrics     *metrics.AssistantMetrics
	logger      *logging.Logger
}

type AgentOption func(*Agent)

// WithModel overrides the provider's default model id.
func WithModel(model string) AgentOption {
	return func(a *Agent) { a.model = model }
}

func WithMaxSteps(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

func WithPrompt(p *Prompt) AgentOption {
	return func(a *Agent) {
		if p != nil {
			a.prompt = p
		}
	}
}

// WithCatalog lists the catalog's specialties in the system prompt.
func WithCatalog(c *triage.Catalog) AgentOption {
	return func(a *Agent) { a.catalog = c }
}

func WithTemperature(t float32) AgentOption {
	return func(a *Agent) { a.temperature = t }
}

func WithMetrics(m *metrics.AssistantMetrics) AgentOption {
	return func(a *Agent) { a.metrics = m }
}

// NewAgent builds an agent. The embedded prompt is used unless WithPrompt
// is given.
func NewAgent(llm LLMClient, tools *Toolbox, logger *logging.Logger, opts ...AgentOption) *Agent {
	if llm == nil || tools == nil {
		panic("assistant: llm client and toolbox required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Agent{
		llm:         llm,
		tools:       tools,
		prompt:      DefaultPrompt(),
		catalog:     triage.DefaultCatalog(),
		temperature: -1,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxSteps == 0 {
		a.maxSteps = a.prompt.MaxSteps
	}
	if a.maxSteps <= 0 {
		a.maxSteps = defaultMaxSteps
	}
	return a
}

// Reply is the outcome of one agent run.
type Reply struct {
	Text string
	// Messages is the input history followed by every step of this run.
	Messages  []Message
	ToolCalls []archive.ToolCall
	Steps     int
	Usage     TokenUsage
}

// Outcome names the furthest successful tool step.
func (r *Reply) Outcome() string {
	return archive.OutcomeFor(r.ToolCalls)
}

// Run answers the last user message. The loop ends when the model replies
// without tool calls or after the step limit, returning the last text.
func (a *Agent) Run(ctx context.Context, lang triage.Language, history []Message) (*Reply, error) {
	ctx, span := assistantTracer.Start(ctx, "assistant.run")
	defer span.End()

	if !hasUserMessage(history) {
		return nil, ErrEmptyConversation
	}

	system := []string{a.prompt.SystemFor(lang, a.catalog)}
	specs := a.tools.Specs(a.prompt)
	msgs := append([]Message(nil), history...)
	reply := &Reply{}

	for step := 1; step <= a.maxSteps; step++ {
		start := time.Now()
		resp, err := a.llm.Complete(ctx, LLMRequest{
			Model:       a.model,
			System:      system,
			Messages:    msgs,
			Tools:       specs,
			Temperature: a.temperature,
		})
		a.metrics.ObserveLLM(time.Since(start).Seconds(), resp.Usage.InputTokens, resp.Usage.OutputTokens, err)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("assistant: step %d: %w", step, err)
		}

		reply.Steps = step
		reply.Text = resp.Text
		reply.Usage.InputTokens += resp.Usage.InputTokens
		reply.Usage.OutputTokens += resp.Usage.OutputTokens
		reply.Usage.TotalTokens += resp.Usage.TotalTokens
		msgs = append(msgs, Message{Role: RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})

		a.logger.Debug("agent step", "step", step, "tool_calls", len(resp.ToolCalls), "finish_reason", resp.StopReason)
		if len(resp.ToolCalls) == 0 {
			break
		}

		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			res, ok := a.tools.Execute(ctx, call)
			a.metrics.ObserveToolCall(call.Name, ok)
			reply.ToolCalls = append(reply.ToolCalls, archive.ToolCall{Name: call.Name, Success: ok})
			results = append(results, res)
		}
		msgs = append(msgs, Message{Role: RoleTool, ToolResults: results})
	}

	reply.Messages = msgs
	span.SetAttributes(
		attribute.Int("klinikai.agent.steps", reply.Steps),
		attribute.String("klinikai.agent.outcome", reply.Outcome()),
	)
	a.logger.Info("agent completed", "steps", reply.Steps, "tool_calls", len(reply.ToolCalls), "outcome", reply.Outcome())
	return reply, nil
}

func hasUserMessage(msgs []Message) bool {
	for _, m := range msgs {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}
