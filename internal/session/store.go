package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/arclabs561/notestream/internal/decision"
	"github.com/arclabs561/notestream/internal/preprocess"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	label        TEXT NOT NULL,
	config_json  TEXT,
	note_count   INTEGER NOT NULL DEFAULT 0,
	started_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	decision_id  TEXT NOT NULL,
	idx          INTEGER NOT NULL,
	score        REAL NOT NULL,
	issues_json  TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS variance_events (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id        TEXT NOT NULL,
	baseline_variance REAL NOT NULL,
	current_variance  REAL NOT NULL,
	increase_pct      REAL NOT NULL,
	created_at        TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS preprocess_passes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	snapshot_id  TEXT,
	note_count   INTEGER NOT NULL,
	coherence    REAL NOT NULL,
	duration_ms  INTEGER NOT NULL,
	skipped      INTEGER NOT NULL DEFAULT 0,
	reason       TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`
// #endregion schema

// #region store-struct
// Store persists aggregation sessions in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region begin-session
// BeginSession inserts a new session row. config, when non-nil, is stored
// as JSON for later inspection.
func (s *Store) BeginSession(label string, config interface{}) (SessionRecord, error) {
	rec := SessionRecord{
		ID:        uuid.New().String(),
		Label:     label,
		StartedAt: time.Now().UTC(),
	}
	if config != nil {
		raw, err := json.Marshal(config)
		if err != nil {
			return SessionRecord{}, fmt.Errorf("marshal config: %w", err)
		}
		rec.ConfigJSON = string(raw)
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, label, config_json, note_count, started_at)
		 VALUES (?, ?, ?, 0, ?)`,
		rec.ID, rec.Label, nullIfEmpty(rec.ConfigJSON), rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}
// #endregion begin-session

// #region set-note-count
// SetNoteCount updates the running note count for a session.
func (s *Store) SetNoteCount(sessionID string, count int) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET note_count = ? WHERE session_id = ?`, count, sessionID,
	)
	if err != nil {
		return fmt.Errorf("set note count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set note count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}
// #endregion set-note-count

// #region get-session
// Session retrieves one session by ID.
func (s *Store) Session(id string) (SessionRecord, error) {
	var rec SessionRecord
	var configJSON sql.NullString
	var startedStr string

	err := s.db.QueryRow(
		`SELECT session_id, label, config_json, note_count, started_at
		 FROM sessions WHERE session_id = ?`, id,
	).Scan(&rec.ID, &rec.Label, &configJSON, &rec.NoteCount, &startedStr)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	if configJSON.Valid {
		rec.ConfigJSON = configJSON.String
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	return rec, nil
}
// #endregion get-session

// #region list-sessions
// Sessions returns the most recent sessions, newest first.
func (s *Store) Sessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, label, config_json, note_count, started_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var configJSON sql.NullString
		var startedStr string
		if err := rows.Scan(&rec.ID, &rec.Label, &configJSON, &rec.NoteCount, &startedStr); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if configJSON.Valid {
			rec.ConfigJSON = configJSON.String
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-sessions

// #region record-decision
// RecordDecision appends a decision to the session log.
func (s *Store) RecordDecision(sessionID string, d decision.Decision) error {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	var issuesJSON string
	if len(d.Issues) > 0 {
		raw, err := json.Marshal(d.Issues)
		if err != nil {
			return fmt.Errorf("marshal issues: %w", err)
		}
		issuesJSON = string(raw)
	}

	_, err := s.db.Exec(
		`INSERT INTO decisions (session_id, decision_id, idx, score, issues_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, d.ID, d.Index, d.Score, nullIfEmpty(issuesJSON),
		d.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}
// #endregion record-decision

// #region list-decisions
// Decisions returns the newest limit decisions for a session, oldest
// first, so the result can seed a fresh decision context directly.
func (s *Store) Decisions(sessionID string, limit int) ([]DecisionRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, decision_id, idx, score, issues_json, created_at
		 FROM decisions WHERE session_id = ? ORDER BY idx DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRow
	for rows.Next() {
		var rec DecisionRow
		var issuesJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &rec.DecisionID, &rec.Index, &rec.Score, &issuesJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if issuesJSON.Valid {
			if err := json.Unmarshal([]byte(issuesJSON.String), &rec.Issues); err != nil {
				return nil, fmt.Errorf("unmarshal issues: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Flip from newest-first query order to oldest-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
// #endregion list-decisions

// #region record-variance
// RecordVariance appends a variance event to the session log.
func (s *Store) RecordVariance(sessionID string, ev decision.VarianceEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO variance_events (session_id, baseline_variance, current_variance, increase_pct, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, ev.Baseline, ev.Current, ev.IncreasePct,
		ev.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert variance event: %w", err)
	}
	return nil
}
// #endregion record-variance

// #region list-variance
// VarianceEvents returns all variance events for a session in the order
// they were recorded.
func (s *Store) VarianceEvents(sessionID string) ([]VarianceRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, baseline_variance, current_variance, increase_pct, created_at
		 FROM variance_events WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list variance events: %w", err)
	}
	defer rows.Close()

	var records []VarianceRow
	for rows.Next() {
		var rec VarianceRow
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &rec.Baseline, &rec.Current, &rec.IncreasePct, &createdStr); err != nil {
			return nil, fmt.Errorf("scan variance event: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-variance

// #region record-pass
// RecordPass appends a preprocessing pass record to the session log.
func (s *Store) RecordPass(sessionID string, rec preprocess.PassRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	skipped := 0
	if rec.Skipped {
		skipped = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO preprocess_passes (session_id, snapshot_id, note_count, coherence, duration_ms, skipped, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, nullIfEmpty(rec.SnapshotID), rec.NoteCount, rec.Coherence,
		rec.Duration.Milliseconds(), skipped, nullIfEmpty(rec.Reason),
		rec.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}
// #endregion record-pass

// #region list-passes
// Passes returns the newest limit preprocessing passes for a session,
// oldest first.
func (s *Store) Passes(sessionID string, limit int) ([]PassRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, snapshot_id, note_count, coherence, duration_ms, skipped, reason, created_at
		 FROM preprocess_passes WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var records []PassRow
	for rows.Next() {
		var rec PassRow
		var snapshotID sql.NullString
		var durationMs int64
		var skipped int
		var reason sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &snapshotID, &rec.NoteCount, &rec.Coherence, &durationMs, &skipped, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		if snapshotID.Valid {
			rec.SnapshotID = snapshotID.String
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Skipped = skipped != 0
		if reason.Valid {
			rec.Reason = reason.String
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
// #endregion list-passes

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
