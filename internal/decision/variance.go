package decision

// #region imports
import (
	"time"
)

// #endregion

// #region event

// VarianceEvent records the score variance jumping past the configured
// threshold over the baseline. Events accumulate append-only; eviction of
// old decisions never removes them.
type VarianceEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Baseline    float64   `json:"baseline"`
	Current     float64   `json:"current"`
	IncreasePct float64   `json:"increase_pct"`
}

// #endregion

// #region track

// baselineMinDecisions is how many decisions must accumulate before the
// baseline variance is captured.
const baselineMinDecisions = 3

// trackVariance captures the baseline once enough decisions exist, then
// emits an event whenever the current variance outgrows it by more than
// the configured percentage. Caller holds the lock.
func (c *Context) trackVariance() {
	if len(c.decisions) < baselineMinDecisions {
		return
	}

	scores := make([]float64, len(c.decisions))
	for i, d := range c.decisions {
		scores[i] = d.Score
	}
	current := sampleVariance(scores)

	if !c.baselineSet {
		c.baseline = current
		c.baselineSet = true
		return
	}

	if current <= c.baseline {
		return
	}
	// A zero baseline means the first scores were identical; any spread
	// after that counts as a full jump.
	pct := 100.0
	if c.baseline > 0 {
		pct = (current - c.baseline) / c.baseline * 100
	}
	if pct > c.config.VarianceIncreasePct {
		c.events = append(c.events, VarianceEvent{
			Timestamp:   time.Now().UTC(),
			Baseline:    c.baseline,
			Current:     current,
			IncreasePct: pct,
		})
	}
}

// #endregion

// #region accessors

// VarianceEvents returns a copy of all recorded telemetry events.
func (c *Context) VarianceEvents() []VarianceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]VarianceEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Baseline returns the captured baseline variance and whether it has been
// set yet.
func (c *Context) Baseline() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline, c.baselineSet
}

// #endregion
