package assistant

import (
	"context"
	"time"

	"github.com/wolfman30/klinikai/internal/archive"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

const archiveTimeout = 10 * time.Second

// Transcripts stores finished exchanges.
type Transcripts interface {
	ArchiveTranscript(ctx context.Context, t *archive.Transcript) error
}

// NewTranscript flattens a reply into an archive record.
func NewTranscript(sessionID, channel string, lang triage.Language, reply *Reply) *archive.Transcript {
	t := &archive.Transcript{
		SessionID: sessionID,
		Channel:   channel,
		Language:  string(lang),
		Outcome:   reply.Outcome(),
		ToolCalls: reply.ToolCalls,
	}
	for _, m := range reply.Messages {
		switch m.Role {
		case RoleTool:
			for _, res := range m.ToolResults {
				t.Messages = append(t.Messages, archive.Message{Role: RoleTool, Content: res.Name + ": " + string(res.Content)})
			}
		default:
			if m.Content != "" {
				t.Messages = append(t.Messages, archive.Message{Role: m.Role, Content: m.Content})
			}
			for _, call := range m.ToolCalls {
				t.Messages = append(t.Messages, archive.Message{Role: m.Role, Content: "call " + call.Name + " " + string(call.Args)})
			}
		}
	}
	return t
}

// archiveAsync stores the transcript without holding up the response.
func archiveAsync(ctx context.Context, store Transcripts, logger *logging.Logger, t *archive.Transcript) {
	if store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
		defer cancel()
		if err := store.ArchiveTranscript(ctx, t); err != nil {
			logger.Warn("failed to archive transcript", "session_id", t.SessionID, "error", err)
		}
	}()
}
