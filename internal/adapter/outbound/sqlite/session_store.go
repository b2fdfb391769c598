// Package sqlite provides a SQLite-backed session store.
//
// Sessions survive process restarts, which matters for single-node
// deployments where an engine restart mid-flow would otherwise strand every
// in-flight registration. Entities are stored as a JSON document: the engine
// always reads and writes a session as a whole, so there is nothing to gain
// from normalizing steps into their own table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gatherline/fulfil/internal/domain/entity"
	"github.com/gatherline/fulfil/internal/domain/fulfilment"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	resource_id   TEXT NOT NULL,
	quantity      INTEGER NOT NULL,
	current_index INTEGER NOT NULL,
	entities      TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at);
`

// SessionStore persists fulfilment sessions in SQLite.
type SessionStore struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite session store at the given path and applies the schema.
func Open(path string) (*SessionStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SessionStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SessionStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping verifies the database handle is usable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Create inserts one session record.
func (s *SessionStore) Create(ctx context.Context, sess *fulfilment.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entities, err := json.Marshal(sess.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (
		   id, resource_id, quantity, current_index, entities, created_at, expires_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.ResourceID,
		sess.Quantity,
		sess.CurrentIndex,
		string(entities),
		toMillis(sess.CreatedAt),
		toMillis(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get returns one session by ID. Rows past their expiry are treated as
// absent, matching the auto-evicting stores.
func (s *SessionStore) Get(ctx context.Context, id string) (*fulfilment.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, resource_id, quantity, current_index, entities, created_at, expires_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	var (
		sess         fulfilment.Session
		entitiesJSON string
		createdAt    int64
		expiresAt    int64
	)
	err := row.Scan(&sess.ID, &sess.ResourceID, &sess.Quantity, &sess.CurrentIndex,
		&entitiesJSON, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fulfilment.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess.CreatedAt = fromMillis(createdAt)
	sess.ExpiresAt = fromMillis(expiresAt)
	if sess.IsExpired() {
		return nil, fulfilment.ErrSessionNotFound
	}

	var entities []entity.Record
	if err := json.Unmarshal([]byte(entitiesJSON), &entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	sess.Entities = entities

	return &sess, nil
}

// Update saves changes to an existing session.
func (s *SessionStore) Update(ctx context.Context, sess *fulfilment.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entities, err := json.Marshal(sess.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE sessions
		 SET current_index = ?, entities = ?, expires_at = ?
		 WHERE id = ?`,
		sess.CurrentIndex,
		string(entities),
		toMillis(sess.ExpiresAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected == 0 {
		return fulfilment.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes every session past its expiry and reports how many
// rows were removed. Storage hygiene only; correctness never depends on it.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`,
		toMillis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return affected, nil
}

// Compile-time interface verification.
var _ fulfilment.SessionStore = (*SessionStore)(nil)
