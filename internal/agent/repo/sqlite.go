package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const sessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	data          BLOB NOT NULL,
	last_activity INTEGER NOT NULL
)`

// SQLiteSessionStore keeps one JSON snapshot per session in a SQLite table,
// so sessions survive restarts without a Redis server. Writers in this
// process are serialized by mu; other processes wait on SQLite's write lock.
type SQLiteSessionStore struct {
	db *sql.DB
	mu sync.Mutex
}

// sqlQueryer is satisfied by both *sql.DB and *sql.Tx.
type sqlQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteSessionStore(ctx context.Context, db *sql.DB) (*SQLiteSessionStore, error) {
	if _, err := db.ExecContext(ctx, sessionsSchema); err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteSessionStore{db: db}, nil
}

func (s *SQLiteSessionStore) Load(ctx context.Context, id string) (*model.Session, error) {
	return loadSQLiteSession(ctx, s.db, id)
}

func (s *SQLiteSessionStore) Save(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.ID == "" {
		return errx.Validation("session id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSQLiteSession(ctx, s.db, sess)
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update reads, transforms and writes the session in one transaction.
func (s *SQLiteSessionStore) Update(ctx context.Context, id string, fn func(*model.Session) (*model.Session, error)) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// a write statement first, so the write lock is held before the read
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET id = id WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}

	current, err := loadSQLiteSession(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("update of session %s produced no session", id)
	}
	if next.ID != id {
		return nil, fmt.Errorf("update of session %s returned session %s", id, next.ID)
	}
	if err := saveSQLiteSession(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session %s: %w", id, err)
	}
	return next, nil
}

// Prune deletes sessions whose last activity is older than maxAge in a
// single statement.
func (s *SQLiteSessionStore) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	if n > 0 {
		logx.Debug().Int64("removed", n).Msg("pruned idle sessions")
	}
	return int(n), nil
}

func loadSQLiteSession(ctx context.Context, q sqlQueryer, id string) (*model.Session, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return decodeSession(id, raw)
}

func saveSQLiteSession(ctx context.Context, q sqlQueryer, sess *model.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO sessions (id, data, last_activity) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, last_activity = excluded.last_activity`,
		sess.ID, b, sess.LastActivity.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

var _ model.SessionStore = (*SQLiteSessionStore)(nil)
