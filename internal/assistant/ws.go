package assistant

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

const (
	wsReadLimit = 64 << 10
	wsWriteWait = 10 * time.Second
)

// Frames exchanged over the chat websocket.
type wsInbound struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type wsOutbound struct {
	Type      string `json:"type"` // session|reply|error
	SessionID string `json:"sessionId"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WSHandler serves GET /api/chat/ws. Each session's history lives in Redis
// so a reconnect with ?session=<id> resumes the conversation.
type WSHandler struct {
	agent    *Agent
	history  *HistoryStore
	archive  Transcripts
	upgrader websocket.Upgrader
	timeout  time.Duration
	logger   *logging.Logger
}

type WSOption func(*WSHandler)

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// An empty list accepts any origin.
func WithAllowedOrigins(origins []string) WSOption {
	return func(h *WSHandler) {
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[strings.TrimSuffix(strings.TrimSpace(o), "/")] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		}
	}
}

func WithWSArchive(t Transcripts) WSOption {
	return func(h *WSHandler) { h.archive = t }
}

func WithWSTimeout(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func NewWSHandler(agent *Agent, history *HistoryStore, logger *logging.Logger, opts ...WSOption) *WSHandler {
	if agent == nil || history == nil {
		panic("assistant: agent and history store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &WSHandler{
		agent:   agent,
		history: history,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		timeout: defaultChatTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve upgrades the connection and answers one frame at a time.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}
	lang := triage.ParseLanguage(r.URL.Query().Get("language"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)
	// The server's read/write timeouts carry over to the hijacked conn.
	_ = conn.SetReadDeadline(time.Time{})

	logger := h.logger.With("session_id", sessionID)
	if err := h.write(conn, wsOutbound{Type: "session", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if in.Language != "" {
			lang = triage.ParseLanguage(in.Language)
		}

		out := wsOutbound{Type: "reply", SessionID: sessionID}
		text := strings.TrimSpace(in.Text)
		if text == "" {
			out.Type, out.Error = "error", "Message text is required"
		} else if reply, err := h.turn(r.Context(), sessionID, lang, text); err != nil {
			logger.Error("chat turn failed", "error", err)
			out.Type, out.Error = "error", "Internal server error"
		} else {
			out.Text = reply.Text
		}

		if err := h.write(conn, out); err != nil {
			logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, frame wsOutbound) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func (h *WSHandler) turn(ctx context.Context, sessionID string, lang triage.Language, text string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	history, err := h.history.Load(ctx, sessionID)
	if err != nil {
		h.logger.Warn("starting session without history", "session_id", sessionID, "error", err)
		history = nil
	}
	history = append(history, Message{Role: RoleUser, Content: text})

	reply, err := h.agent.Run(ctx, lang, history)
	if err != nil {
		return nil, err
	}
	if err := h.history.Save(ctx, sessionID, reply.Messages); err != nil {
		h.logger.Warn("failed to save session history", "session_id", sessionID, "error", err)
	}

	h.agent.metrics.ObserveTurn("websocket", reply.Outcome())
	archiveAsync(ctx, h.archive, h.logger, NewTranscript(sessionID, "websocket", lang, reply))
	return reply, nil
}
