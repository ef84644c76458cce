package note

// #region imports
import (
	"math"
)

// #endregion

// #region enums

// Salience marks how prominent the observed detail was.
type Salience string

const (
	SalienceLow    Salience = "low"
	SalienceNormal Salience = "normal"
	SalienceHigh   Salience = "high"
)

// Attention marks the observer's attention state when the note was taken.
type Attention string

const (
	AttentionFocused    Attention = "focused"
	AttentionNormal     Attention = "normal"
	AttentionDistracted Attention = "distracted"
)

// #endregion

// #region note

// Note is one timestamped observation emitted during a capture run.
// Timestamp is unix milliseconds wall clock; Elapsed is milliseconds since
// the start of the run. Either may be absent in raw capture output.
type Note struct {
	Timestamp   int64          `json:"timestamp,omitempty"`
	Elapsed     *int64         `json:"elapsed,omitempty"`
	Score       *float64       `json:"score,omitempty"`
	Observation string         `json:"observation,omitempty"`
	Step        string         `json:"step,omitempty"`
	Persona     string         `json:"persona,omitempty"`
	Salience    Salience       `json:"salience,omitempty"`
	Attention   Attention      `json:"attention,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`

	// Weight multiplies the note's contribution to window averages.
	// Zero means unset and reads as 1.0. Set by attention weighting,
	// never serialized.
	Weight float64 `json:"-"`
}

// HasScore reports whether the note carries a usable numeric score.
// NaN and Inf scores are treated as unscored for numeric statistics;
// the note itself still participates in text heuristics.
func (n Note) HasScore() bool {
	if n.Score == nil {
		return false
	}
	v := *n.Score
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ScoreValue returns the numeric score and whether it is usable.
func (n Note) ScoreValue() (float64, bool) {
	if !n.HasScore() {
		return 0, false
	}
	return *n.Score, true
}

// Placeable reports whether the note can be positioned on the run timeline.
func (n Note) Placeable() bool {
	return n.Elapsed != nil || n.Timestamp > 0
}

// EffectiveWeight returns the note's contribution multiplier, treating the
// zero value as 1.0.
func (n Note) EffectiveWeight() float64 {
	if n.Weight <= 0 {
		return 1.0
	}
	return n.Weight
}

// #endregion

// #region normalize

// Normalize returns a copy of notes where every placeable note has Elapsed
// set, deriving it from the earliest wall-clock timestamp in the stream.
// Notes with neither timestamp nor elapsed cannot be placed on the timeline
// and are dropped. The input slice is never mutated.
func Normalize(notes []Note) []Note {
	var baseTS int64
	for _, n := range notes {
		if n.Timestamp > 0 && (baseTS == 0 || n.Timestamp < baseTS) {
			baseTS = n.Timestamp
		}
	}

	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.Elapsed != nil {
			e := *n.Elapsed
			c := n
			c.Elapsed = &e
			out = append(out, c)
			continue
		}
		if n.Timestamp > 0 && baseTS > 0 {
			e := n.Timestamp - baseTS
			c := n
			c.Elapsed = &e
			out = append(out, c)
			continue
		}
		// Unplaceable: no elapsed, no timestamp. Skip.
	}
	return out
}

// #endregion

// #region helpers

// MaxElapsed returns the largest elapsed value among placeable notes,
// or 0 when none are placed.
func MaxElapsed(notes []Note) int64 {
	var maxE int64
	for _, n := range notes {
		if n.Elapsed != nil && *n.Elapsed > maxE {
			maxE = *n.Elapsed
		}
	}
	return maxE
}

// Int64Ptr returns a pointer to v. Fixture and test construction helper.
func Int64Ptr(v int64) *int64 { return &v }

// Float64Ptr returns a pointer to v. Fixture and test construction helper.
func Float64Ptr(v float64) *float64 { return &v }

// #endregion
