package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSessionTTL bounds how long an idle session keeps its history.
const DefaultSessionTTL = 24 * time.Hour

// HistoryStore persists the turns of each chat session. Load returns an
// empty history for unknown or expired sessions.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]ChatMessage, error)
	Save(ctx context.Context, sessionID string, history []ChatMessage) error
	Reset(ctx context.Context, sessionID string) error
}

// RedisHistoryStore keeps history as JSON under conversation:<id>.
type RedisHistoryStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisHistoryStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("smartschedule.internal.conversation.history"),
	}
}

func (s *RedisHistoryStore) Save(ctx context.Context, sessionID string, history []ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Load(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *RedisHistoryStore) Reset(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.reset_history")
	defer span.End()

	if err := s.redis.Del(ctx, conversationKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to reset history: %w", err)
	}
	return nil
}

func conversationKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

// MemoryHistoryStore is the in-process HistoryStore used without Redis.
type MemoryHistoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memorySession
}

type memorySession struct {
	history   []ChatMessage
	expiresAt time.Time
}

func NewMemoryHistoryStore(ttl time.Duration) *MemoryHistoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryHistoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memorySession),
	}
}

func (s *MemoryHistoryStore) Load(_ context.Context, sessionID string) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	return append([]ChatMessage(nil), sess.history...), nil
}

func (s *MemoryHistoryStore) Save(_ context.Context, sessionID string, history []ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.sessions[sessionID] = memorySession{
		history:   append([]ChatMessage(nil), history...),
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryHistoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryHistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.sessions)
}

func (s *MemoryHistoryStore) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
