package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"drawchat/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	connected_at INTEGER NOT NULL
);`

// SQLiteStore keeps one row per session.
type SQLiteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(ctx context.Context, cfg SQLiteConfig, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.sqlite.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Info("session store opened", logx.String("driver", "sqlite"), logx.String("path", path))
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (Session, error) {
	var (
		out Session
		ms  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, connected_at FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&out.SessionID, &out.UserID, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	out.ConnectedAt = time.UnixMilli(ms)
	return out, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(session_id, user_id, connected_at) VALUES(?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET user_id = excluded.user_id, connected_at = excluded.connected_at`,
		rec.SessionID, rec.UserID, rec.ConnectedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Scan(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, user_id, connected_at FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			rec Session
			ms  int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.UserID, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan sessions: %w", err)
		}
		rec.ConnectedAt = time.UnixMilli(ms)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
