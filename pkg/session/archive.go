package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Archive mirrors session metadata and messages into SQLite for inspection
// across restarts. The JSON FileStore remains the canonical persistence;
// archive writes are best-effort and callers log rather than fail on error.
type Archive struct {
	db *sql.DB
}

// OpenArchive creates/opens the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	// Single-process store. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	a := &Archive{db: db}
	if err := a.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL DEFAULT '',
			execution_mode TEXT NOT NULL DEFAULT '',
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_session_idx ON messages(session_id, created_at_ms, id);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("init archive schema: %w", err)
		}
	}
	return nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// RecordSession upserts the session's metadata row.
func (a *Archive) RecordSession(ctx context.Context, cc *ConversationContext) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, model_name, execution_mode, message_count, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			model_name = excluded.model_name,
			execution_mode = excluded.execution_mode,
			message_count = excluded.message_count,
			updated_at_ms = excluded.updated_at_ms`,
		cc.SessionID, cc.ModelName, string(cc.ExecutionMode), len(cc.Messages),
		cc.CreatedAt.UnixMilli(), cc.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record session %s: %w", cc.SessionID, err)
	}
	return nil
}

// AppendMessage archives one conversation message.
func (a *Archive) AppendMessage(ctx context.Context, sessionID string, m Message) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, created_at_ms)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, m.Role, m.Content, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("archive message for %s: %w", sessionID, err)
	}
	return nil
}

// Messages returns up to limit archived messages for a session, oldest first.
func (a *Archive) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT role, content, created_at_ms FROM messages
		WHERE session_id = ?
		ORDER BY created_at_ms ASC, id ASC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var createdAtMS int64
		if err := rows.Scan(&m.Role, &m.Content, &createdAtMS); err != nil {
			return nil, fmt.Errorf("scan archived message: %w", err)
		}
		m.CreatedAt = time.UnixMilli(createdAtMS).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
