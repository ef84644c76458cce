package preprocess

// #region imports
import (
	"time"

	"github.com/arclabs561/notestream/internal/activity"
	"github.com/arclabs561/notestream/internal/multiscale"
	"github.com/arclabs561/notestream/internal/temporal"
)

// #endregion

// #region latency

// Latency labels on ProcessNotes results.
const (
	// LatencyBackground means the result came from the preprocessed snapshot.
	LatencyBackground = "background"
	// LatencyComputed means the result was aggregated synchronously.
	LatencyComputed = "computed"
)

// #endregion

// #region snapshot

// Snapshot is one preprocessed aggregation. Snapshots are immutable after
// publication; the manager swaps whole pointers so readers never observe a
// partially written one.
type Snapshot struct {
	ID             string
	Aggregated     temporal.Result
	MultiScale     multiscale.Result
	Coherence      float64
	NoteCount      int
	PreprocessedAt time.Time
}

// #endregion

// #region pass-record

// PassRecord describes one background pass, completed or skipped.
type PassRecord struct {
	SnapshotID string
	NoteCount  int
	Coherence  float64
	Duration   time.Duration
	Skipped    bool
	Reason     string // set when skipped
	At         time.Time
}

// Recorder receives one record per background pass. Wired to the session
// store by the daemon; nil means no recording.
type Recorder func(PassRecord)

// #endregion

// #region process-result

// ProcessResult is the adaptive aggregation outcome for one batch.
type ProcessResult struct {
	Aggregated temporal.Result
	MultiScale multiscale.Result
	Activity   activity.Level
	// Latency is LatencyBackground or LatencyComputed.
	Latency string
	// SnapshotID identifies the served snapshot when Latency is
	// LatencyBackground.
	SnapshotID string
}

// #endregion

// #region config

// Config tunes the preprocessing manager.
type Config struct {
	// CacheMaxAge bounds how old a snapshot may be and still be served.
	CacheMaxAge time.Duration
	// CountDeltaPct is the allowed difference between the current note
	// count and the snapshot's, relative to the current count. Exactly
	// at the limit is still valid.
	CountDeltaPct float64

	Temporal   temporal.Options
	MultiScale multiscale.Options
	Activity   activity.Config
}

// DefaultConfig returns the standard manager parameters.
func DefaultConfig() Config {
	return Config{
		CacheMaxAge:   30 * time.Second,
		CountDeltaPct: 20,
		Temporal:      temporal.DefaultOptions(),
		MultiScale:    multiscale.DefaultOptions(),
		Activity:      activity.DefaultConfig(),
	}
}

func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.CacheMaxAge <= 0 {
		c.CacheMaxAge = def.CacheMaxAge
	}
	if c.CountDeltaPct <= 0 {
		c.CountDeltaPct = def.CountDeltaPct
	}
	return c
}

// #endregion
