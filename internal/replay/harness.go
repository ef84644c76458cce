package replay

// #region imports
import (
	"github.com/rs/zerolog"

	"github.com/arclabs561/notestream/internal/activity"
	"github.com/arclabs561/notestream/internal/decision"
	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/preprocess"
)

// #endregion

// #region types
// Batch is one recorded slice of the note stream plus the review decision
// that followed it.
type Batch struct {
	BatchID string
	Notes   []note.Note
	Score   float64
	Issues  []string
}

// ReplayConfig bundles manager and decision configs for a replay run.
type ReplayConfig struct {
	Manager  preprocess.Config
	Decision decision.Config
}

// DefaultReplayConfig returns sensible defaults for both pipeline stages.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Manager:  preprocess.DefaultConfig(),
		Decision: decision.DefaultConfig(),
	}
}

// BatchResult captures the outcome of replaying one batch.
type BatchResult struct {
	BatchID string
	// Latency is "background" | "computed"
	Latency   string
	Activity  activity.Level
	Coherence float64
	NoteCount int
	Decision  decision.Decision
	Trend     decision.Trend
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalBatches   int
	Background     int
	Computed       int
	HighActivity   int
	VarianceEvents int
	FinalPattern   decision.Pattern
}

// #endregion types

// #region replay
// Replay feeds batches through the full pipeline in order: extend the
// stream, aggregate with activity-adapted latency, record the scripted
// review decision. The returned context holds the decision history for
// summarizing. Operates entirely in-memory.
func Replay(batches []Batch, config ReplayConfig) ([]BatchResult, *decision.Context) {
	mgr := preprocess.NewManager(config.Manager, zerolog.Nop())
	ctx := decision.NewContext(config.Decision)

	var stream []note.Note
	results := make([]BatchResult, 0, len(batches))

	for _, b := range batches {
		// 1. Extend the recorded stream
		stream = append(stream, b.Notes...)

		// 2. Aggregate with activity-adapted latency
		res := mgr.ProcessNotes(stream)

		// 3. Record the scripted review decision
		d := ctx.AddDecision(b.Score, b.Issues)

		// 4. Patterns as of this batch
		pattern := ctx.IdentifyPatterns()

		results = append(results, BatchResult{
			BatchID:   b.BatchID,
			Latency:   res.Latency,
			Activity:  res.Activity,
			Coherence: res.Aggregated.Coherence,
			NoteCount: res.Aggregated.NoteCount,
			Decision:  d,
			Trend:     pattern.Trend,
		})

		// Any pass kicked by this batch lands before the next one, so
		// replayed routes do not depend on goroutine scheduling.
		mgr.Wait()
	}

	return results, ctx
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []BatchResult, ctx *decision.Context) ReplaySummary {
	s := ReplaySummary{
		TotalBatches: len(results),
	}
	for _, r := range results {
		switch r.Latency {
		case preprocess.LatencyBackground:
			s.Background++
		case preprocess.LatencyComputed:
			s.Computed++
		}
		if r.Activity == activity.LevelHigh {
			s.HighActivity++
		}
	}
	if ctx != nil {
		s.VarianceEvents = len(ctx.VarianceEvents())
		s.FinalPattern = ctx.IdentifyPatterns()
	}
	return s
}

// #endregion replay
