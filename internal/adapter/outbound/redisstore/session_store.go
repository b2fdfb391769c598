// Package redisstore provides a Redis-backed session store.
//
// Sessions are stored as JSON values with a key TTL derived from the
// session's expiry, so Redis evicts stale sessions on its own. The lazy
// expiry check in the domain service still runs on every access; the two
// mechanisms agree because both derive from ExpiresAt.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatherline/fulfil/internal/domain/fulfilment"
)

const keyPrefix = "fulfil:session:"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// SessionStore implements fulfilment.SessionStore on Redis.
type SessionStore struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis and returns a session store.
func New(cfg Config, logger *slog.Logger) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connected to Redis session store", "addr", cfg.Addr, "db", cfg.DB)

	return &SessionStore{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{client: client, logger: logger}
}

// Close releases the underlying Redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection is alive.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Create stores a new session with a TTL matching its expiry.
func (s *SessionStore) Create(ctx context.Context, sess *fulfilment.Session) error {
	return s.set(ctx, sess)
}

// Get retrieves a session by ID.
// Returns fulfilment.ErrSessionNotFound once Redis has evicted the key.
func (s *SessionStore) Get(ctx context.Context, id string) (*fulfilment.Session, error) {
	val, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fulfilment.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess fulfilment.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Update saves changes to an existing session.
func (s *SessionStore) Update(ctx context.Context, sess *fulfilment.Session) error {
	exists, err := s.client.Exists(ctx, keyPrefix+sess.ID).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return fulfilment.ErrSessionNotFound
	}
	return s.set(ctx, sess)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *SessionStore) set(ctx context.Context, sess *fulfilment.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		// Already past expiry: storing it would be wasted work, and Get
		// must not see it either way.
		return s.Delete(ctx, sess.ID)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Compile-time interface verification.
var _ fulfilment.SessionStore = (*SessionStore)(nil)
