package temporal

// #region imports
import (
	"math"
	"sort"
	"strings"

	"github.com/arclabs561/notestream/internal/note"
)

// #endregion

// #region aggregate

// Aggregate buckets notes into fixed-size windows and scores the sequence
// for coherence. Notes without a timeline position are dropped; notes with
// NaN or Inf scores count as unscored but keep their text. The input slice
// is treated as read-only.
func Aggregate(notes []note.Note, opts Options) Result {
	opts = opts.sanitized()
	placed := note.Normalize(notes)

	if len(placed) == 0 {
		return Result{
			Coherence: 1.0,
			Summary:   emptySummary,
		}
	}

	buckets := make(map[int64][]note.Note)
	for _, n := range placed {
		e := *n.Elapsed
		if e < 0 {
			e = 0
		}
		idx := e / opts.WindowSize
		buckets[idx] = append(buckets[idx], n)
	}

	windows := make([]Window, 0, len(buckets))
	for idx, group := range buckets {
		windows = append(windows, buildWindow(idx, group, opts))
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Index < windows[j].Index })

	coherence, conflicts := computeCoherence(windows, opts)

	r := Result{
		Windows:   windows,
		NoteCount: len(placed),
		Coherence: coherence,
		Conflicts: conflicts,
	}
	r.Summary = summarize(r)
	return r
}

// #endregion

// #region build-window

// buildWindow computes the decay-weighted score and joined observations for
// one bucket. Weight is decayFactor^(age/windowSize) with age measured from
// the window end, so the newest note in the window weighs ~1 and the oldest
// ~decayFactor. A note's own weight multiplier layers on top of the decay.
func buildWindow(idx int64, group []note.Note, opts Options) Window {
	sort.SliceStable(group, func(i, j int) bool { return *group[i].Elapsed < *group[j].Elapsed })

	start := idx * opts.WindowSize
	end := start + opts.WindowSize

	var weightedSum, weightTotal float64
	var texts []string
	for _, n := range group {
		if s, ok := n.ScoreValue(); ok {
			age := float64(end-*n.Elapsed) / float64(opts.WindowSize)
			if age > 1 {
				age = 1
			} else if age < 0 {
				age = 0
			}
			w := math.Pow(opts.DecayFactor, age) * n.EffectiveWeight()
			weightedSum += s * w
			weightTotal += w
		}
		if t := strings.TrimSpace(n.Observation); t != "" {
			texts = append(texts, t)
		}
	}

	w := Window{
		Index:        idx,
		Start:        start,
		End:          end,
		NoteCount:    len(group),
		Observations: strings.Join(texts, "; "),
	}
	if weightTotal > 0 {
		w.AvgScore = weightedSum / weightTotal
		w.HasScore = true
	}
	return w
}

// #endregion
