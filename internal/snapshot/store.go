// Package snapshot persists in-progress session state to a local SQLite
// database so an interrupted process leaves something recoverable behind.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/repflow/internal/session"
)

// Store writes one row per live session, replaced on every save. Finished
// sessions are deleted after the log reaches the database; anything left is
// an interrupted session that can be finalized later.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at dir/sessions.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_snapshots (
		session_id TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL,
		plan_name  TEXT NOT NULL,
		phase      TEXT NOT NULL,
		state      TEXT NOT NULL,
		saved_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes the session's full state, replacing any prior snapshot for
// the same session.
func (st *Store) Save(s *session.Session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	_, err = st.db.Exec(
		`INSERT OR REPLACE INTO session_snapshots (session_id, user_id, plan_name, phase, state, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.UserID, s.PlanName, string(s.Phase), string(state),
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for a session. Missing rows are not an error.
func (st *Store) Delete(id uuid.UUID) error {
	_, err := st.db.Exec(`DELETE FROM session_snapshots WHERE session_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// Entry is one stored snapshot header.
type Entry struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    int       `json:"user_id"`
	PlanName  string    `json:"plan_name"`
	Phase     string    `json:"phase"`
	SavedAt   time.Time `json:"saved_at"`
}

// List returns the headers of all stored snapshots, oldest first.
func (st *Store) List() ([]Entry, error) {
	rows, err := st.db.Query(
		`SELECT session_id, user_id, plan_name, phase, saved_at
		 FROM session_snapshots ORDER BY saved_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var id string
		if err := rows.Scan(&id, &e.UserID, &e.PlanName, &e.Phase, &e.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot entry: %w", err)
		}
		e.SessionID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing snapshot session id %q: %w", id, err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Get loads one snapshot's full session state.
func (st *Store) Get(id uuid.UUID) (*session.Session, error) {
	var state string
	err := st.db.QueryRow(
		`SELECT state FROM session_snapshots WHERE session_id = ?`,
		id.String()).Scan(&state)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(state), &s); err != nil {
		return nil, fmt.Errorf("decoding session state: %w", err)
	}
	return &s, nil
}

// Close closes the snapshot database.
func (st *Store) Close() error {
	return st.db.Close()
}
