package temporal

// #region imports
import (
	"fmt"
	"strings"
)

// #endregion

// #region summary

const emptySummary = "no temporal notes recorded"

// summarize produces the one-line digest stored on the Result.
func summarize(r Result) string {
	if len(r.Windows) == 0 {
		return emptySummary
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d notes across %d windows", r.NoteCount, len(r.Windows))

	scores := scoredAverages(r.Windows)
	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		fmt.Fprintf(&b, ", mean score %.1f", sum/float64(len(scores)))
	}
	if len(scores) >= 2 {
		fmt.Fprintf(&b, ", %s", trendWord(scores))
	}

	fmt.Fprintf(&b, ", coherence %.2f", r.Coherence)
	if n := len(r.Conflicts); n == 1 {
		b.WriteString(", 1 conflict")
	} else if n > 1 {
		fmt.Fprintf(&b, ", %d conflicts", n)
	}
	return b.String()
}

// trendWord names the overall direction of window scores.
func trendWord(scores []float64) string {
	delta := scores[len(scores)-1] - scores[0]
	switch {
	case delta > 0.5:
		return "improving"
	case delta < -0.5:
		return "declining"
	default:
		return "flat"
	}
}

// #endregion

// #region render

// Render formats the full aggregation as a stable plain-text block suitable
// for inclusion in an evaluation prompt. The coherence figure is always
// present; windows are listed oldest first.
func (r Result) Render() string {
	var b strings.Builder
	b.WriteString("Temporal observation summary:\n")

	if len(r.Windows) == 0 {
		b.WriteString("- " + emptySummary + "\n")
		fmt.Fprintf(&b, "- coherence: %.2f\n", r.Coherence)
		return b.String()
	}

	fmt.Fprintf(&b, "- %d notes across %d windows\n", r.NoteCount, len(r.Windows))
	for _, w := range r.Windows {
		fmt.Fprintf(&b, "- window %d [%dms-%dms]: ", w.Index, w.Start, w.End)
		if w.HasScore {
			fmt.Fprintf(&b, "avg %.1f over %d notes", w.AvgScore, w.NoteCount)
		} else {
			fmt.Fprintf(&b, "%d notes, no scores", w.NoteCount)
		}
		if w.Observations != "" {
			fmt.Fprintf(&b, " - %s", truncateObs(w.Observations, 160))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "- coherence: %.2f\n", r.Coherence)
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- conflict: %s\n", c.Reason)
	}
	return b.String()
}

// truncateObs bounds a window's observation text in rendered output.
func truncateObs(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// #endregion
