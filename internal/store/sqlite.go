package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thrivelabs/thrive/internal/domain"
	"github.com/thrivelabs/thrive/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		session_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		taken_at INTEGER NOT NULL,
		messages_json TEXT NOT NULL,
		progress_percent INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_user ON snapshots(user_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves the live session for a user.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	query := `SELECT session_json FROM sessions WHERE user_id = ?`

	var body string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(body), &session); err != nil {
		return nil, fmt.Errorf("decode session body: %w", err)
	}
	return &session, nil
}

// SaveSession creates or replaces the live session for a user.
func (s *SQLiteStore) SaveSession(ctx context.Context, userID string, session *domain.Session) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session body: %w", err)
	}

	query := `
	INSERT INTO sessions (user_id, session_json, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		session_json = excluded.session_json,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	err = shared.RetrySQLite(3, func() error {
		_, execErr := s.db.ExecContext(ctx, query, userID, string(body), now, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AppendSnapshot appends a saved-session snapshot for a user.
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, userID string, snap *domain.Snapshot) error {
	messages, err := json.Marshal(snap.Messages)
	if err != nil {
		return fmt.Errorf("encode snapshot messages: %w", err)
	}

	query := `
	INSERT INTO snapshots (user_id, name, taken_at, messages_json, progress_percent)
	VALUES (?, ?, ?, ?, ?)`

	err = shared.RetrySQLite(3, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			userID, snap.Name, snap.Timestamp.Unix(), string(messages), snap.ProgressPercent)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the most recent limit snapshots in chronological order.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, userID string, limit int) ([]*domain.Snapshot, error) {
	query := `
	SELECT name, taken_at, messages_json, progress_percent
	FROM snapshots WHERE user_id = ?
	ORDER BY id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		var takenAt int64
		var messages string

		if err := rows.Scan(&snap.Name, &takenAt, &messages, &snap.ProgressPercent); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Timestamp = time.Unix(takenAt, 0)
		if err := json.Unmarshal([]byte(messages), &snap.Messages); err != nil {
			return nil, fmt.Errorf("decode snapshot messages: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
