package preprocess

// #region imports
import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arclabs561/notestream/internal/activity"
	"github.com/arclabs561/notestream/internal/multiscale"
	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/temporal"
)

// #endregion

// #region manager

// Manager decides, per batch, whether aggregation is served from a
// background-preprocessed snapshot or computed on the spot. At most one
// background pass runs at a time; requests that arrive while one is in
// flight are dropped, not queued.
type Manager struct {
	mu       sync.Mutex
	config   Config
	log      zerolog.Logger
	snapshot *Snapshot
	inFlight bool
	gen      int
	wg       sync.WaitGroup

	// OnPass, when set, receives one record per background pass. Set it
	// before the first call; it is read without locking afterwards.
	OnPass Recorder
}

// NewManager returns a manager with no snapshot yet. Invalid config
// fields fall back to defaults.
func NewManager(config Config, log zerolog.Logger) *Manager {
	return &Manager{config: config.sanitized(), log: log}
}

// #endregion

// #region background

// PreprocessInBackground starts an asynchronous aggregation pass over
// notes and returns immediately. The pass is skipped, and false returned,
// when activity is currently high or another pass is already in flight.
func (m *Manager) PreprocessInBackground(notes []note.Note) bool {
	level := activity.Detect(notes, m.config.Activity)
	if level == activity.LevelHigh {
		m.record(PassRecord{NoteCount: len(notes), Skipped: true, Reason: "high activity", At: time.Now().UTC()})
		m.log.Debug().Int("notes", len(notes)).Msg("background pass skipped: high activity")
		return false
	}

	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		m.record(PassRecord{NoteCount: len(notes), Skipped: true, Reason: "pass in flight", At: time.Now().UTC()})
		m.log.Debug().Int("notes", len(notes)).Msg("background pass skipped: pass in flight")
		return false
	}
	m.inFlight = true
	gen := m.gen
	m.mu.Unlock()

	// Snapshot the input so the caller can keep appending to its slice.
	input := make([]note.Note, len(notes))
	copy(input, notes)

	m.wg.Add(1)
	go m.runPass(input, gen)
	return true
}

func (m *Manager) runPass(input []note.Note, gen int) {
	defer m.wg.Done()
	start := time.Now().UTC()

	agg := temporal.Aggregate(input, m.config.Temporal)
	scales := multiscale.AggregateScales(input, m.config.MultiScale)

	snap := &Snapshot{
		ID:             uuid.New().String(),
		Aggregated:     agg,
		MultiScale:     scales,
		Coherence:      agg.Coherence,
		NoteCount:      len(input),
		PreprocessedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	stale := m.gen != gen
	if !stale {
		m.snapshot = snap
	}
	m.inFlight = false
	m.mu.Unlock()

	if stale {
		m.record(PassRecord{SnapshotID: snap.ID, NoteCount: len(input), Skipped: true, Reason: "reset during pass", At: start})
		m.log.Debug().Str("snapshot", snap.ID).Msg("background pass discarded: reset during pass")
		return
	}

	m.record(PassRecord{
		SnapshotID: snap.ID,
		NoteCount:  len(input),
		Coherence:  snap.Coherence,
		Duration:   time.Since(start),
		At:         start,
	})
	m.log.Debug().
		Str("snapshot", snap.ID).
		Int("notes", len(input)).
		Float64("coherence", snap.Coherence).
		Dur("took", time.Since(start)).
		Msg("background pass complete")
}

// Wait blocks until any in-flight background pass has finished. Used by
// tests and by the daemon on shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// #endregion

// #region cache

// CacheValid reports whether the current snapshot can stand in for an
// aggregation of notes: it exists, is younger than CacheMaxAge, and its
// note count is within CountDeltaPct of the current count.
func (m *Manager) CacheValid(notes []note.Note) bool {
	return m.validSnapshot(len(notes)) != nil
}

// Snapshot returns the current snapshot, or nil when none has been
// published. Callers must not mutate the result.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *Manager) validSnapshot(count int) *Snapshot {
	m.mu.Lock()
	snap := m.snapshot
	m.mu.Unlock()
	if snap == nil {
		return nil
	}
	if time.Since(snap.PreprocessedAt) >= m.config.CacheMaxAge {
		return nil
	}
	delta := snap.NoteCount - count
	if delta < 0 {
		delta = -delta
	}
	limit := m.config.CountDeltaPct / 100 * float64(count)
	if float64(delta) > limit {
		return nil
	}
	return snap
}

// #endregion

// #region aggregation

// FastAggregation returns the snapshot's aggregation when the cache is
// valid for notes, or aggregates synchronously otherwise. The bool
// reports whether the snapshot was used.
func (m *Manager) FastAggregation(notes []note.Note) (temporal.Result, bool) {
	if snap := m.validSnapshot(len(notes)); snap != nil {
		return snap.Aggregated, true
	}
	return temporal.Aggregate(notes, m.config.Temporal), false
}

// ProcessNotes aggregates notes with latency adapted to current activity:
//
//   - low activity prefers the snapshot and warms it in the background
//     when it is missing or stale
//   - medium activity always computes synchronously for freshness
//   - high activity serves the snapshot if valid, otherwise computes
//     synchronously rather than waiting for a pass
//
// Synchronous computation never overwrites the snapshot; only background
// passes publish one.
func (m *Manager) ProcessNotes(notes []note.Note) ProcessResult {
	level := activity.Detect(notes, m.config.Activity)

	switch level {
	case activity.LevelLow:
		if snap := m.validSnapshot(len(notes)); snap != nil {
			return snapshotResult(snap, level)
		}
		res := m.computeResult(notes, level)
		m.PreprocessInBackground(notes)
		return res
	case activity.LevelHigh:
		if snap := m.validSnapshot(len(notes)); snap != nil {
			return snapshotResult(snap, level)
		}
		return m.computeResult(notes, level)
	default:
		return m.computeResult(notes, level)
	}
}

func (m *Manager) computeResult(notes []note.Note, level activity.Level) ProcessResult {
	return ProcessResult{
		Aggregated: temporal.Aggregate(notes, m.config.Temporal),
		MultiScale: multiscale.AggregateScales(notes, m.config.MultiScale),
		Activity:   level,
		Latency:    LatencyComputed,
	}
}

func snapshotResult(snap *Snapshot, level activity.Level) ProcessResult {
	return ProcessResult{
		Aggregated: snap.Aggregated,
		MultiScale: snap.MultiScale,
		Activity:   level,
		Latency:    LatencyBackground,
		SnapshotID: snap.ID,
	}
}

// #endregion

// #region reset

// Reset discards the snapshot. A pass in flight at reset time finishes
// but its result is not published.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.snapshot = nil
	m.gen++
	m.mu.Unlock()
	m.log.Debug().Msg("preprocess cache reset")
}

// #endregion

// #region helpers

func (m *Manager) record(rec PassRecord) {
	if m.OnPass != nil {
		m.OnPass(rec)
	}
}

// #endregion
