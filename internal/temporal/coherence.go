package temporal

// #region imports
import (
	"math"
)

// #endregion

// #region coherence

// Coherence component weights. Direction of score movement dominates;
// spread and narrative agreement share the rest.
const (
	weightDirection    = 0.4
	weightVariance     = 0.3
	weightObservations = 0.3

	// oscillationPenalty scales the direction component when score deltas
	// flip sign more often than the erraticism threshold allows.
	oscillationPenalty = 0.7
)

// computeCoherence combines direction consistency, variance coherence, and
// observation consistency into a single [0, 1] score. Zero or one window is
// trivially coherent.
func computeCoherence(windows []Window, opts Options) (float64, []Conflict) {
	if len(windows) <= 1 {
		return 1.0, nil
	}

	direction := directionConsistency(windows, opts.ErraticismThreshold)
	variance := varianceCoherence(windows)
	observations, conflicts := observationConsistency(windows)

	c := weightDirection*direction + weightVariance*variance + weightObservations*observations
	return clamp01(c), conflicts
}

// #endregion

// #region direction

// directionConsistency measures how uniformly window scores move in one
// direction. Zero deltas count as agreeing with the majority. Fewer than
// two scored windows is trivially consistent.
func directionConsistency(windows []Window, erraticism float64) float64 {
	scores := scoredAverages(windows)
	if len(scores) < 2 {
		return 1.0
	}

	const eps = 1e-9
	var pos, neg, zero int
	deltas := make([]float64, 0, len(scores)-1)
	for i := 1; i < len(scores); i++ {
		d := scores[i] - scores[i-1]
		deltas = append(deltas, d)
		switch {
		case d > eps:
			pos++
		case d < -eps:
			neg++
		default:
			zero++
		}
	}

	if pos+neg == 0 {
		return 1.0
	}
	majority := pos
	if neg > majority {
		majority = neg
	}
	consistency := float64(majority+zero) / float64(len(deltas))

	if flipRate(deltas, eps) > erraticism {
		consistency *= oscillationPenalty
	}
	return consistency
}

// flipRate returns the fraction of consecutive nonzero deltas that change
// sign. A perfectly alternating sequence rates 1.0.
func flipRate(deltas []float64, eps float64) float64 {
	var flips, transitions int
	prevSign := 0
	for _, d := range deltas {
		sign := 0
		if d > eps {
			sign = 1
		} else if d < -eps {
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if prevSign != 0 {
			transitions++
			if sign != prevSign {
				flips++
			}
		}
		prevSign = sign
	}
	if transitions == 0 {
		return 0
	}
	return float64(flips) / float64(transitions)
}

// #endregion

// #region variance

// varianceCoherence maps the spread of window scores into [0, 1]. The
// normalizer (range/2)^2 is the maximum population variance attainable on
// the observed score range, so the ratio never exceeds 1 by much and is
// clamped anyway.
func varianceCoherence(windows []Window) float64 {
	scores := scoredAverages(windows)
	if len(scores) < 2 {
		return 1.0
	}

	lo, hi := scores[0], scores[0]
	var sum float64
	for _, s := range scores {
		sum += s
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	scoreRange := hi - lo
	if scoreRange == 0 {
		return 1.0
	}

	mean := sum / float64(len(scores))
	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))

	maxVariance := (scoreRange / 2) * (scoreRange / 2)
	return 1.0 - math.Min(1.0, variance/maxVariance)
}

// #endregion

// #region helpers

// scoredAverages returns the average scores of scored windows, in window order.
func scoredAverages(windows []Window) []float64 {
	scores := make([]float64, 0, len(windows))
	for _, w := range windows {
		if w.HasScore {
			scores = append(scores, w.AvgScore)
		}
	}
	return scores
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion
