package decision

// #region imports
import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// #endregion

// #region types

// Decision is one recorded evaluation outcome.
type Decision struct {
	ID        string    `json:"id"`
	Score     float64   `json:"score"`
	Issues    []string  `json:"issues,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// Index is the decision's position in the full stream. It keeps
	// growing after older decisions are evicted from the window.
	Index int `json:"index"`
}

// Trend names the direction of recent scores. The zero value means the
// history is too short to call.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Pattern summarizes the retained decision window.
type Pattern struct {
	Trend         Trend
	IsConsistent  bool
	ScoreVariance float64
	CommonIssues  []string
}

// #endregion

// #region config

// Config tunes the decision context.
type Config struct {
	// MaxHistory bounds the retained window; older decisions are evicted
	// oldest-first.
	MaxHistory int
	// AdaptationEnabled gates AdaptPrompt. When false the base prompt
	// passes through untouched.
	AdaptationEnabled bool
	// ConsistencyThreshold: variance below this reads as consistent.
	ConsistencyThreshold float64
	// LowConfidenceVariance: variance above this downgrades prompt
	// adaptation to hedging language.
	LowConfidenceVariance float64
	// VarianceIncreasePct: relative growth over the baseline variance
	// that triggers a telemetry event, in percent.
	VarianceIncreasePct float64
	// StableDelta: absolute score movement at or below this counts as a
	// stable trend.
	StableDelta float64
}

// DefaultConfig returns the standard decision-context parameters.
func DefaultConfig() Config {
	return Config{
		MaxHistory:            10,
		AdaptationEnabled:     true,
		ConsistencyThreshold:  1.0,
		LowConfidenceVariance: 2.0,
		VarianceIncreasePct:   20,
		StableDelta:           0.5,
	}
}

func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.MaxHistory <= 0 {
		c.MaxHistory = def.MaxHistory
	}
	if c.ConsistencyThreshold <= 0 {
		c.ConsistencyThreshold = def.ConsistencyThreshold
	}
	if c.LowConfidenceVariance <= 0 {
		c.LowConfidenceVariance = def.LowConfidenceVariance
	}
	if c.VarianceIncreasePct <= 0 {
		c.VarianceIncreasePct = def.VarianceIncreasePct
	}
	if c.StableDelta <= 0 {
		c.StableDelta = def.StableDelta
	}
	return c
}

// #endregion

// #region context

// Context accumulates sequential evaluation decisions for one stream and
// derives patterns from them. Safe for concurrent use; one instance per
// evaluation stream.
type Context struct {
	mu     sync.Mutex
	config Config

	decisions []Decision
	nextIndex int

	baseline    float64
	baselineSet bool
	events      []VarianceEvent
}

// NewContext creates a decision context. Zero config fields fall back to
// defaults; note that a zero Config also disables adaptation.
func NewContext(config Config) *Context {
	return &Context{config: config.sanitized()}
}

// #endregion

// #region add

// AddDecision appends an evaluation outcome, evicting the oldest entries
// beyond MaxHistory, and updates variance telemetry.
func (c *Context) AddDecision(score float64, issues []string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	issuesCopy := make([]string, len(issues))
	copy(issuesCopy, issues)

	d := Decision{
		ID:        uuid.New().String(),
		Score:     score,
		Issues:    issuesCopy,
		Timestamp: time.Now().UTC(),
		Index:     c.nextIndex,
	}
	c.nextIndex++

	c.decisions = append(c.decisions, d)
	if over := len(c.decisions) - c.config.MaxHistory; over > 0 {
		c.decisions = append([]Decision(nil), c.decisions[over:]...)
	}

	c.trackVariance()
	return d
}

// #endregion

// #region accessors

// History returns a copy of the retained decisions, oldest first.
func (c *Context) History() []Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Decision, len(c.decisions))
	copy(out, c.decisions)
	return out
}

// Len returns the retained decision count.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.decisions)
}

// #endregion

// #region seed

// Seed replaces the history with previously recorded decisions, e.g. when
// resuming a session from the store. Only the newest MaxHistory entries
// are kept; the index counter continues after the highest seeded index.
func (c *Context) Seed(decisions []Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	if over := len(decisions) - c.config.MaxHistory; over > 0 {
		start = over
	}
	c.decisions = append([]Decision(nil), decisions[start:]...)

	c.nextIndex = 0
	for _, d := range decisions {
		if d.Index >= c.nextIndex {
			c.nextIndex = d.Index + 1
		}
	}
}

// #endregion

// #region reset

// Reset drops the history, the variance baseline, and all telemetry
// events. This is the only way telemetry is ever cleared.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions = nil
	c.nextIndex = 0
	c.baseline = 0
	c.baselineSet = false
	c.events = nil
}

// #endregion
