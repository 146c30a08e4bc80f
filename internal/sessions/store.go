// Package sessions provides the session history store behind replay
// detection. Sessions recorded here are what makes a later submission with
// the same agent session id count as a replay.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	commonerrors "bias-audit-harness/internal/common/errors"
)

// Store records agent session ids and answers membership queries. Record
// is called after scoring completes so the triggering submission itself is
// not counted as previously seen.
type Store interface {
	Record(ctx context.Context, sessionID string) error
	Seen(ctx context.Context, sessionID string) (bool, error)
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store for single-binary runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (s *MemoryStore) Record(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[sessionID] = struct{}{}
	return nil
}

func (s *MemoryStore) Seen(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[sessionID]
	return ok, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
	return nil
}

// RedisStore keeps session history in Redis so replay detection survives
// restarts and is shared across harness instances.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl means entries never expire.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Record(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.client.Set(ctx, s.key(sessionID), "1", s.ttl).Err(); err != nil {
		return commonerrors.NewSessionStoreError(err)
	}
	return nil
}

func (s *RedisStore) Seen(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, commonerrors.NewSessionStoreError(err)
	}
	return n > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return commonerrors.NewSessionStoreError(err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return commonerrors.NewSessionStoreError(err)
	}
	return nil
}

// Checker adapts a Store to the read-only interface the rule engine takes,
// binding a context for the duration of one evaluation. Store errors map to
// "not seen": a degraded session backend must not invent replay violations.
type Checker struct {
	ctx   context.Context
	store Store
}

// NewChecker binds ctx to store for use inside a single evaluation.
func NewChecker(ctx context.Context, store Store) *Checker {
	return &Checker{ctx: ctx, store: store}
}

func (c *Checker) Seen(sessionID string) bool {
	seen, err := c.store.Seen(c.ctx, sessionID)
	if err != nil {
		return false
	}
	return seen
}
