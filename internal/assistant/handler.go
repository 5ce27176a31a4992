package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

const defaultChatTimeout = 30 * time.Second

// IncomingMessage is a chat message as sent by the web client. Text may
// arrive in parts[0].text or in content.
type IncomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Parts   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"parts"`
}

// Text returns parts[0].text, else content.
func (m IncomingMessage) Text() string {
	if len(m.Parts) > 0 && m.Parts[0].Text != "" {
		return m.Parts[0].Text
	}
	return m.Content
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages  []IncomingMessage `json:"messages"`
	Language  string            `json:"language"`
	SessionID string            `json:"sessionId,omitempty"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ConversationFrom converts client messages to agent history. Only user and
// assistant turns are kept, and leading assistant greetings are dropped.
func ConversationFrom(in []IncomingMessage) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		if role == RoleAssistant && len(out) == 0 {
			continue
		}
		out = append(out, Message{Role: role, Content: m.Text()})
	}
	return out
}

// Handler serves POST /api/chat.
type Handler struct {
	agent   *Agent
	archive Transcripts
	timeout time.Duration
	logger  *logging.Logger
}

type HandlerOption func(*Handler)

// WithTimeout bounds each chat request.
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithArchive stores each completed exchange.
func WithArchive(t Transcripts) HandlerOption {
	return func(h *Handler) { h.archive = t }
}

func NewHandler(agent *Agent, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if agent == nil {
		panic("assistant: agent required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{agent: agent, timeout: defaultChatTimeout, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		h.internalError(w, err)
		return
	}

	lang := triage.ParseLanguage(req.Language)
	history := ConversationFrom(req.Messages)
	h.logger.Info("chat request", "messages", len(history), "language", lang)

	reply, err := h.agent.Run(ctx, lang, history)
	if err != nil {
		h.logger.Error("chat failed", "error", err)
		h.internalError(w, err)
		return
	}

	h.agent.metrics.ObserveTurn("http", reply.Outcome())
	h.writeJSON(w, http.StatusOK, ChatResponse{Response: reply.Text})

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	archiveAsync(r.Context(), h.archive, h.logger, NewTranscript(sessionID, "http", lang, reply))
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
