// Package transcript journals committed conversation turns to SQLite.
// The journal is write-only from the conversation's point of view: the
// in-memory session store never reads it back, so a restart always begins
// with empty sessions. It exists for audit and operator inspection.
package transcript

import (
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/dmaciel/parley/internal/history"
	"github.com/dmaciel/parley/internal/logger"
)

// Recorder appends turn messages to a SQLite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: create table: %w", err)
	}
	logger.L.Info("transcript journal opened", "path", path)
	return &Recorder{db: db}, nil
}

// Record appends msgs for sessionID in the given order. The batch is written
// in one transaction so a partially journaled turn never appears.
func (r *Recorder) Record(sessionID string, msgs []history.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("transcript: begin: %w", err)
	}
	for _, m := range msgs {
		if _, err := tx.Exec(
			`INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			sessionID, string(m.Role), m.Content, m.CreatedAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("transcript: insert: %w", err)
		}
	}
	return tx.Commit()
}

// List returns all journaled messages of a session in chronological order.
func (r *Recorder) List(sessionID string) ([]history.Message, error) {
	rows, err := r.db.Query(
		`SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("transcript: query: %w", err)
	}
	defer rows.Close()

	var out []history.Message
	for rows.Next() {
		var m history.Message
		var role string
		if err := rows.Scan(&role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: scan: %w", err)
		}
		m.Role = history.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
