package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// SourceKind identifies which capability fed a session.
type SourceKind string

const (
	SourceNative    SourceKind = "native"
	SourceSimulated SourceKind = "simulated"
)

// Session is one capture session of the pose pipeline.
type Session struct {
	ID            string
	Source        SourceKind
	TrackingPoint string
	LoadKg        float64
	FatigueRate   float64
	StartedAt     time.Time
	EndedAt       *time.Time
	AvgFPS        float64
}

// SessionRepository provides persistence for capture sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session row at its start.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, tracking_point, load_kg, fatigue_rate, started_at, avg_fps)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Source), sess.TrackingPoint, sess.LoadKg,
		sess.FatigueRate, sess.StartedAt, sess.AvgFPS,
	)
	return err
}

// Finish records the end time and throughput summary of a session.
func (r *SessionRepository) Finish(id string, endedAt time.Time, avgFPS float64) error {
	res, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, avg_fps = ? WHERE id = ?`,
		endedAt, avgFPS, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, source, tracking_point, load_kg, fatigue_rate, started_at, ended_at, avg_fps
		 FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, source, tracking_point, load_kg, fatigue_rate, started_at, ended_at, avg_fps
		 FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var source string
	var endedAt sql.NullTime

	err := row.Scan(&sess.ID, &source, &sess.TrackingPoint, &sess.LoadKg,
		&sess.FatigueRate, &sess.StartedAt, &endedAt, &sess.AvgFPS)
	if err != nil {
		return nil, err
	}

	sess.Source = SourceKind(source)
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
