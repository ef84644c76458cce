package activity

// #region imports
import (
	"strings"

	"github.com/arclabs561/notestream/internal/note"
)

// #endregion

// #region level

// Level classifies how fast notes are arriving.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// #endregion

// #region config

// Config tunes activity detection. Rates are in notes per second over the
// trailing window.
type Config struct {
	RecentWindow     int64   // ms
	HighRate         float64 // above this: high
	LowRate          float64 // below this: low
	StabilityEpsilon float64 // recent score variance below this: stable
}

// DefaultConfig returns the standard detection parameters.
func DefaultConfig() Config {
	return Config{
		RecentWindow:     5000,
		HighRate:         10,
		LowRate:          1,
		StabilityEpsilon: 0.1,
	}
}

func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.RecentWindow <= 0 {
		c.RecentWindow = def.RecentWindow
	}
	if c.HighRate <= 0 {
		c.HighRate = def.HighRate
	}
	if c.LowRate <= 0 {
		c.LowRate = def.LowRate
	}
	if c.StabilityEpsilon <= 0 {
		c.StabilityEpsilon = def.StabilityEpsilon
	}
	return c
}

// #endregion

// #region detect

// Detect classifies the note arrival rate over the trailing window, ending
// at the newest note. Boundary rates resolve to the lower bucket: exactly
// HighRate notes/sec is medium, and below LowRate is low. No placeable
// notes means low.
func Detect(notes []note.Note, cfg Config) Level {
	cfg = cfg.sanitized()
	recent := recentNotes(notes, cfg.RecentWindow)
	if len(recent) == 0 {
		return LevelLow
	}

	rate := float64(len(recent)) / (float64(cfg.RecentWindow) / 1000.0)
	switch {
	case rate > cfg.HighRate:
		return LevelHigh
	case rate >= cfg.LowRate:
		return LevelMedium
	default:
		return LevelLow
	}
}

// #endregion

// #region interaction

// interactionKeywords mark steps or observations describing direct user
// input rather than passive observation.
var interactionKeywords = []string{
	"click", "tap", "type", "typing", "scroll", "drag",
	"hover", "input", "submit", "press", "swipe", "select",
}

// HasUserInteraction reports whether any recent note describes direct user
// input, matched by keyword against the step name and observation text.
func HasUserInteraction(notes []note.Note, cfg Config) bool {
	cfg = cfg.sanitized()
	for _, n := range recentNotes(notes, cfg.RecentWindow) {
		text := strings.ToLower(n.Step + " " + n.Observation)
		for _, kw := range interactionKeywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// #endregion

// #region stability

// IsStable reports whether recent scores have settled: their sample
// variance sits below the configured epsilon. Fewer than two recent
// scored notes count as stable.
func IsStable(notes []note.Note, cfg Config) bool {
	cfg = cfg.sanitized()
	var scores []float64
	for _, n := range recentNotes(notes, cfg.RecentWindow) {
		if s, ok := n.ScoreValue(); ok {
			scores = append(scores, s)
		}
	}
	if len(scores) < 2 {
		return true
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores) - 1)

	return variance < cfg.StabilityEpsilon
}

// #endregion

// #region helpers

// recentNotes returns the placed notes inside the trailing window, which
// ends at the newest note's elapsed time.
func recentNotes(notes []note.Note, window int64) []note.Note {
	placed := note.Normalize(notes)
	if len(placed) == 0 {
		return nil
	}

	latest := note.MaxElapsed(placed)
	cutoff := latest - window
	var recent []note.Note
	for _, n := range placed {
		if *n.Elapsed > cutoff {
			recent = append(recent, n)
		}
	}
	return recent
}

// #endregion
