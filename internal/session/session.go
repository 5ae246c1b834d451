// Package session keeps operator authorization state between the authorize
// and callback requests. Sessions are keyed by an opaque id carried in a
// cookie; the state itself never leaves the server.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aniketdhankar/tweetscope/internal/auth"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store persists authorization sessions for their TTL.
type Store interface {
	// Put saves the session and returns its opaque id.
	Put(ctx context.Context, sess *auth.Session) (string, error)

	// Get loads a session by id. Returns ErrNotFound if missing or expired.
	Get(ctx context.Context, id string) (*auth.Session, error)

	// Update overwrites an existing session, keeping its id.
	Update(ctx context.Context, id string, sess *auth.Session) error

	// Delete discards a session.
	Delete(ctx context.Context, id string) error
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// RedisStore keeps sessions in Redis with a TTL, so multiple instances can
// share the operator flow.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, sess *auth.Session) (string, error) {
	id := uuid.NewString()
	if err := s.set(ctx, id, sess); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	b, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess auth.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, sess *auth.Session) error {
	return s.set(ctx, id, sess)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func (s *RedisStore) set(ctx context.Context, id string, sess *auth.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(id), b, s.ttl).Err()
}

// MemoryStore is a single-process fallback used when no Redis address is
// configured, and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
}

type memoryEntry struct {
	sess      auth.Session
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
	}
}

func (s *MemoryStore) Put(ctx context.Context, sess *auth.Session) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memoryEntry{sess: *sess, expiresAt: time.Now().Add(s.ttl)}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	sess := entry.sess
	return &sess, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memoryEntry{sess: *sess, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
