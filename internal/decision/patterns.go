package decision

// #region imports
import (
	"sort"
)

// #endregion

// #region identify

// IdentifyPatterns derives trend, consistency, and recurring issues from
// the retained window. Below two decisions there is nothing to derive and
// the zero Pattern is returned.
func (c *Context) IdentifyPatterns() Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patternsLocked()
}

// patternsLocked is the lock-held pattern computation; AdaptPrompt reuses it.
func (c *Context) patternsLocked() Pattern {
	if len(c.decisions) < 2 {
		return Pattern{}
	}

	scores := make([]float64, len(c.decisions))
	for i, d := range c.decisions {
		scores[i] = d.Score
	}

	variance := sampleVariance(scores)

	return Pattern{
		Trend:         c.trend(scores),
		IsConsistent:  variance < c.config.ConsistencyThreshold,
		ScoreVariance: variance,
		CommonIssues:  c.commonIssues(),
	}
}

// #endregion

// #region trend

// trend compares the newest score against the oldest in the window.
func (c *Context) trend(scores []float64) Trend {
	delta := scores[len(scores)-1] - scores[0]
	switch {
	case delta > c.config.StableDelta:
		return TrendImproving
	case delta < -c.config.StableDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// #endregion

// #region common-issues

// commonIssues returns issues reported by a strict majority of the
// retained decisions, sorted for deterministic output. An issue counts
// once per decision even when reported twice in the same one.
func (c *Context) commonIssues() []string {
	counts := make(map[string]int)
	for _, d := range c.decisions {
		seen := make(map[string]bool, len(d.Issues))
		for _, issue := range d.Issues {
			if issue == "" || seen[issue] {
				continue
			}
			seen[issue] = true
			counts[issue]++
		}
	}

	var common []string
	for issue, n := range counts {
		if n*2 > len(c.decisions) {
			common = append(common, issue)
		}
	}
	sort.Strings(common)
	return common
}

// #endregion

// #region variance-helper

// sampleVariance computes the n-1 variance of scores. Fewer than two
// samples have no spread.
func sampleVariance(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
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
	return variance / float64(len(scores)-1)
}

// #endregion
