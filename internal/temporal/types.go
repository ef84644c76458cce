package temporal

// #region options

// Options configures windowed aggregation.
type Options struct {
	// WindowSize is the bucket width in milliseconds.
	WindowSize int64
	// DecayFactor weights notes within a window by recency, in (0, 1].
	// 1.0 means uniform weighting.
	DecayFactor float64
	// ErraticismThreshold is the sign-flip fraction above which the
	// direction component of coherence is penalized.
	ErraticismThreshold float64
}

// DefaultOptions returns the standard aggregation parameters.
func DefaultOptions() Options {
	return Options{
		WindowSize:          10000,
		DecayFactor:         0.9,
		ErraticismThreshold: 0.5,
	}
}

// sanitized replaces out-of-range values with defaults. Bad config degrades
// to defaults instead of failing the aggregation.
func (o Options) sanitized() Options {
	def := DefaultOptions()
	if o.WindowSize <= 0 {
		o.WindowSize = def.WindowSize
	}
	if o.DecayFactor <= 0 || o.DecayFactor > 1 {
		o.DecayFactor = def.DecayFactor
	}
	if o.ErraticismThreshold <= 0 {
		o.ErraticismThreshold = def.ErraticismThreshold
	}
	return o
}

// #endregion

// #region window

// Window is one non-empty time bucket of notes.
type Window struct {
	// Index is floor(elapsed / windowSize) for the notes it holds.
	Index int64
	// Start and End bound the bucket in elapsed milliseconds; End exclusive.
	Start int64
	End   int64

	NoteCount int

	// AvgScore is the decay-weighted mean of the scored notes in the
	// window. HasScore is false when no note carried a usable score.
	AvgScore float64
	HasScore bool

	// Observations joins the notes' text, oldest first.
	Observations string
}

// #endregion

// #region conflict

// Conflict marks two windows whose narratives disagree.
// WindowA and WindowB are positions in Result.Windows, not bucket indices.
type Conflict struct {
	WindowA int
	WindowB int
	Reason  string
}

// #endregion

// #region result

// Result is the outcome of one aggregation pass.
type Result struct {
	Windows   []Window
	NoteCount int // notes that landed in a window

	// Coherence scores how consistent the observation sequence is, in [0, 1].
	Coherence float64
	Conflicts []Conflict

	Summary string
}

// #endregion
