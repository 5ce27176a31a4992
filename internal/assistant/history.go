package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultHistoryTTL = 24 * time.Hour
	// maxHistoryMessages bounds what is replayed to the model each turn.
	maxHistoryMessages = 40
)

// HistoryStore keeps websocket session history in Redis.
type HistoryStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewHistoryStore(client *redis.Client, ttl time.Duration) *HistoryStore {
	if client == nil {
		panic("assistant: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &HistoryStore{redis: client, ttl: ttl}
}

func (s *HistoryStore) Save(ctx context.Context, sessionID string, history []Message) error {
	ctx, span := assistantTracer.Start(ctx, "assistant.save_history")
	defer span.End()

	data, err := json.Marshal(trimHistory(history, maxHistoryMessages))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to persist history: %w", err)
	}
	return nil
}

// Load returns the stored history. An unknown session has none.
func (s *HistoryStore) Load(ctx context.Context, sessionID string) ([]Message, error) {
	ctx, span := assistantTracer.Start(ctx, "assistant.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to load history: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to decode history: %w", err)
	}
	return history, nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("chat:session:%s", id)
}

// trimHistory keeps at most max messages, cutting at a user turn so tool
// calls stay paired with their results.
func trimHistory(msgs []Message, max int) []Message {
	if len(msgs) <= max {
		return msgs
	}
	start := len(msgs) - max
	for start < len(msgs) && msgs[start].Role != RoleUser {
		start++
	}
	if start == len(msgs) {
		return nil
	}
	return msgs[start:]
}
