package session

import (
	"time"

	"github.com/arclabs561/notestream/internal/decision"
)

// #region records

// SessionRecord is one recorded aggregation session.
type SessionRecord struct {
	ID         string
	Label      string
	ConfigJSON string
	NoteCount  int
	StartedAt  time.Time
}

// DecisionRow is a persisted decision.
type DecisionRow struct {
	SessionID  string
	DecisionID string
	Index      int
	Score      float64
	Issues     []string
	CreatedAt  time.Time
}

// Decision converts the row back into the in-memory form, for warm
// starting a context from a previous session.
func (r DecisionRow) Decision() decision.Decision {
	return decision.Decision{
		ID:        r.DecisionID,
		Score:     r.Score,
		Issues:    r.Issues,
		Timestamp: r.CreatedAt,
		Index:     r.Index,
	}
}

// VarianceRow is a persisted variance event.
type VarianceRow struct {
	SessionID   string
	Baseline    float64
	Current     float64
	IncreasePct float64
	CreatedAt   time.Time
}

// PassRow is a persisted preprocessing pass, completed or skipped.
type PassRow struct {
	SessionID  string
	SnapshotID string
	NoteCount  int
	Coherence  float64
	Duration   time.Duration
	Skipped    bool
	Reason     string
	CreatedAt  time.Time
}

// #endregion records
