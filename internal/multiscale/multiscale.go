package multiscale

// #region imports
import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/temporal"
)

// #endregion

// #region options

// Options configures aggregation across several window sizes at once.
type Options struct {
	// Scales maps a scale name to its window size in milliseconds.
	// Entries with non-positive sizes are skipped.
	Scales map[string]int64
	// AttentionWeights toggles salience/attention multipliers on each
	// note's contribution, layered on top of intra-window decay.
	AttentionWeights bool
	// Base carries the per-scale aggregation parameters; its WindowSize
	// is replaced by each scale's own size.
	Base temporal.Options
}

// DefaultScales returns the standard four time horizons.
func DefaultScales() map[string]int64 {
	return map[string]int64{
		"immediate": 100,
		"short":     1000,
		"medium":    10000,
		"long":      60000,
	}
}

// DefaultOptions returns multi-scale defaults with attention weighting on.
func DefaultOptions() Options {
	return Options{
		Scales:           DefaultScales(),
		AttentionWeights: true,
		Base:             temporal.DefaultOptions(),
	}
}

// #endregion

// #region result

// Result holds one aggregation per configured scale, keyed by scale name.
// Scales that produced no windows are absent from the map.
type Result struct {
	Scales  map[string]temporal.Result
	Summary string
}

// #endregion

// #region attention-weights

// Contribution multipliers. Salience marks how prominent the detail was,
// attention how engaged the observer was; the two multiply.
var salienceWeights = map[note.Salience]float64{
	note.SalienceHigh:   1.5,
	note.SalienceNormal: 1.0,
	note.SalienceLow:    0.6,
}

var attentionWeights = map[note.Attention]float64{
	note.AttentionFocused:    1.3,
	note.AttentionNormal:     1.0,
	note.AttentionDistracted: 0.7,
}

// applyAttention returns copies of notes with Weight set from their
// salience and attention markers. Unmarked notes keep weight 1.0.
func applyAttention(notes []note.Note) []note.Note {
	out := make([]note.Note, len(notes))
	for i, n := range notes {
		w := 1.0
		if sw, ok := salienceWeights[n.Salience]; ok {
			w *= sw
		}
		if aw, ok := attentionWeights[n.Attention]; ok {
			w *= aw
		}
		n.Weight = w
		out[i] = n
	}
	return out
}

// #endregion

// #region aggregate

// AggregateScales runs one windowed aggregation per configured scale,
// concurrently. Scale results are independent; a scale with no usable
// windows is omitted from the result map.
func AggregateScales(notes []note.Note, opts Options) Result {
	scales := opts.Scales
	if len(scales) == 0 {
		scales = DefaultScales()
	}

	input := notes
	if opts.AttentionWeights {
		input = applyAttention(notes)
	}

	names := make([]string, 0, len(scales))
	for name, size := range scales {
		if size <= 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]temporal.Result, len(names))
	g := new(errgroup.Group)
	for i, name := range names {
		i := i
		scaleOpts := opts.Base
		scaleOpts.WindowSize = scales[name]
		g.Go(func() error {
			results[i] = temporal.Aggregate(input, scaleOpts)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	r := Result{Scales: make(map[string]temporal.Result, len(names))}
	for i, name := range names {
		if len(results[i].Windows) == 0 {
			continue
		}
		r.Scales[name] = results[i]
	}
	r.Summary = summarize(r.Scales)
	return r
}

// #endregion

// #region summary

const emptySummary = "no notes at any scale"

// summarize names the most and least coherent scales. Ties break toward
// the alphabetically first name so the summary is deterministic.
func summarize(scales map[string]temporal.Result) string {
	if len(scales) == 0 {
		return emptySummary
	}

	names := make([]string, 0, len(scales))
	for name := range scales {
		names = append(names, name)
	}
	sort.Strings(names)

	best, worst := names[0], names[0]
	for _, name := range names[1:] {
		if scales[name].Coherence > scales[best].Coherence {
			best = name
		}
		if scales[name].Coherence < scales[worst].Coherence {
			worst = name
		}
	}

	return fmt.Sprintf("%d scales; most coherent %s (%.2f), least coherent %s (%.2f)",
		len(scales), best, scales[best].Coherence, worst, scales[worst].Coherence)
}

// #endregion

// #region render

// Render formats one line per scale, sorted by name, for prompt composition.
func (r Result) Render() string {
	var b strings.Builder
	b.WriteString("Multi-scale summary:\n")

	if len(r.Scales) == 0 {
		b.WriteString("- " + emptySummary + "\n")
		return b.String()
	}

	names := make([]string, 0, len(r.Scales))
	for name := range r.Scales {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sr := r.Scales[name]
		fmt.Fprintf(&b, "- %s: %d windows, coherence %.2f\n", name, len(sr.Windows), sr.Coherence)
	}
	return b.String()
}

// #endregion
