// Package recorder persists raw contact snapshots so a touch session can be
// inspected and replayed later. Only input is stored; tracker state is never
// written and a restarted tracker always starts empty.
package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/multitouch/internal/touch/coords"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// ErrSessionNotFound is returned for a session id with no row.
var ErrSessionNotFound = errors.New("session not found")

// Store is a SQLite-backed session store.
type Store struct {
	*sql.DB
	path string
}

// Session describes one recording.
type Session struct {
	ID        string      `json:"id"`
	Label     string      `json:"label"`
	Bounds    coords.Rect `json:"bounds"`
	StartedAt time.Time   `json:"started_at"`
	Frames    int         `json:"frames"`
}

// Frame is one recorded snapshot.
type Frame struct {
	Seq      int64             `json:"seq"`
	At       time.Time         `json:"at"`
	Kind     string            `json:"kind"`
	Contacts []fingers.Contact `json:"touches"`
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string { return s.path }

// StartSession creates a new session recorded against bounds.
func (s *Store) StartSession(label string, bounds coords.Rect) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Label:     label,
		Bounds:    bounds,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.Exec(`
		INSERT INTO sessions (session_id, label, bounds_left, bounds_right, bounds_top, bounds_bottom, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Label, bounds.Left, bounds.Right, bounds.Top, bounds.Bottom, sess.StartedAt.UnixNano(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	return sess, nil
}

// RecordFrame appends one snapshot to a session.
func (s *Store) RecordFrame(sessionID string, at time.Time, kind string, contacts []fingers.Contact) error {
	if contacts == nil {
		contacts = []fingers.Contact{}
	}
	b, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("failed to marshal contacts: %w", err)
	}
	_, err = s.Exec(`
		INSERT INTO frames (session_id, at_unix_nanos, kind, contacts_json)
		VALUES (?, ?, ?, ?)`,
		sessionID, at.UnixNano(), kind, string(b),
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame for session %s: %w", sessionID, err)
	}
	return nil
}

const sessionColumns = `
	s.session_id, s.label, s.bounds_left, s.bounds_right, s.bounds_top, s.bounds_bottom, s.started_at,
	(SELECT COUNT(*) FROM frames f WHERE f.session_id = s.session_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var startedAt int64
	err := row.Scan(
		&sess.ID, &sess.Label,
		&sess.Bounds.Left, &sess.Bounds.Right, &sess.Bounds.Top, &sess.Bounds.Bottom,
		&startedAt, &sess.Frames,
	)
	if err != nil {
		return Session{}, err
	}
	sess.StartedAt = time.Unix(0, startedAt).UTC()
	return sess, nil
}

// Sessions lists every session, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.Query(`SELECT` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Session returns one session by id.
func (s *Store) Session(id string) (Session, error) {
	row := s.QueryRow(`SELECT`+sessionColumns+` FROM sessions s WHERE s.session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	return sess, nil
}

// Frames returns a session's snapshots in capture order.
func (s *Store) Frames(sessionID string) ([]Frame, error) {
	rows, err := s.Query(`
		SELECT frame_id, at_unix_nanos, kind, contacts_json
		FROM frames WHERE session_id = ? ORDER BY frame_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var at int64
		var raw string
		if err := rows.Scan(&f.Seq, &at, &f.Kind, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &f.Contacts); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", f.Seq, err)
		}
		f.At = time.Unix(0, at).UTC()
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// DeleteSession removes a session and its frames.
func (s *Store) DeleteSession(id string) error {
	res, err := s.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// SessionWriter records frames into one session.
type SessionWriter struct {
	store     *Store
	sessionID string
}

// Writer returns a SessionWriter for sessionID.
func (s *Store) Writer(sessionID string) *SessionWriter {
	return &SessionWriter{store: s, sessionID: sessionID}
}

// SessionID returns the session the writer appends to.
func (w *SessionWriter) SessionID() string { return w.sessionID }

// RecordFrame appends one snapshot to the writer's session.
func (w *SessionWriter) RecordFrame(at time.Time, kind string, contacts []fingers.Contact) error {
	return w.store.RecordFrame(w.sessionID, at, kind, contacts)
}
