package decision

// #region imports
import (
	"fmt"
	"strings"
)

// #endregion

// #region confidence

type confidence int

const (
	confidenceHigh confidence = iota
	confidenceMedium
	confidenceLow
)

// steering maps confidence to the closing instruction of the context block.
// High confidence steers; low confidence explicitly un-anchors.
var steering = map[confidence]string{
	confidenceHigh:   "These findings are consistent; weigh them when scoring and note any deviation from the trend.",
	confidenceMedium: "Treat these findings as soft context alongside your own assessment.",
	confidenceLow:    "These findings are noisy; evaluate independently and do not anchor on them.",
}

// confidenceFor grades the history's variance against the configured bands.
func (c *Context) confidenceFor(variance float64, historyLen int) confidence {
	if historyLen < 2 {
		// One decision is not a pattern.
		return confidenceMedium
	}
	switch {
	case variance < c.config.ConsistencyThreshold:
		return confidenceHigh
	case variance > c.config.LowConfidenceVariance:
		return confidenceLow
	default:
		return confidenceMedium
	}
}

// #endregion

// #region adapt

// AdaptPrompt appends a deterministic prior-context block to the base
// prompt. The base passes through untouched when adaptation is disabled or
// no decisions have been recorded; in every other case the output differs
// from the input.
func (c *Context) AdaptPrompt(base string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.AdaptationEnabled || len(c.decisions) == 0 {
		return base
	}

	p := c.patternsLocked()
	latest := c.decisions[len(c.decisions)-1]
	conf := c.confidenceFor(p.ScoreVariance, len(c.decisions))

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nPrevious evaluation context:\n")
	fmt.Fprintf(&b, "- decisions considered: %d (latest score %.1f)\n", len(c.decisions), latest.Score)
	if p.Trend != "" {
		fmt.Fprintf(&b, "- trend: %s, score variance %.2f\n", p.Trend, p.ScoreVariance)
	} else {
		b.WriteString("- trend: not yet established\n")
	}
	if len(p.CommonIssues) > 0 {
		fmt.Fprintf(&b, "- recurring issues: %s\n", strings.Join(p.CommonIssues, "; "))
	}
	b.WriteString(steering[conf])
	return b.String()
}

// #endregion
