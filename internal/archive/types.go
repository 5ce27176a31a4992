package archive

import "time"

// TranscriptVersion is bumped whenever the Transcript layout changes.
const TranscriptVersion = "1.0"

// Outcomes recorded for a transcript, from furthest to least progressed.
const (
	OutcomeBooked       = "booked"
	OutcomeRecommended  = "recommended"
	OutcomeTriaged      = "triaged"
	OutcomeConversation = "conversation"
)

// Transcript is one completed assistant exchange archived to S3.
type Transcript struct {
	Version      string     `json:"version"`
	SessionID    string     `json:"session_id"`
	Channel      string     `json:"channel"` // http|websocket
	Language     string     `json:"language"`
	ArchivedAt   time.Time  `json:"archived_at"`
	MessageCount int        `json:"message_count"`
	Outcome      string     `json:"outcome"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Messages     []Message  `json:"messages"`
}

// ToolCall records which tool the assistant ran and whether it succeeded.
type ToolCall struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	Channel      string `json:"channel"`
	Language     string `json:"language"`
	Outcome      string `json:"outcome"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}

// OutcomeFor picks the furthest successful step among calls.
func OutcomeFor(calls []ToolCall) string {
	rank := map[string]int{
		"triagePatient":            1,
		"getClinicRecommendations": 2,
		"bookAppointment":          3,
	}
	best := 0
	for _, c := range calls {
		if c.Success && rank[c.Name] > best {
			best = rank[c.Name]
		}
	}
	switch best {
	case 3:
		return OutcomeBooked
	case 2:
		return OutcomeRecommended
	case 1:
		return OutcomeTriaged
	default:
		return OutcomeConversation
	}
}
