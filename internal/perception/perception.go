package perception

// #region imports
import (
	"fmt"
	"time"
)

// #endregion

// #region actions

// Action is a category of human interaction with a rendered page.
type Action string

const (
	ActionVisualAppeal Action = "visual-appeal"
	ActionLayoutScan   Action = "layout-scan"
	ActionReading      Action = "reading"
	ActionInteraction  Action = "interaction"
	ActionNavigation   Action = "navigation"
)

// Complexity grades how demanding the content is to process.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// #endregion

// #region context

// Context carries the inputs that scale a perception estimate.
// ContentLength is in characters and only affects reading time.
// An empty Complexity means medium.
type Context struct {
	ContentLength int
	Complexity    Complexity
}

// #endregion

// #region constants

// Base dwell per action, before complexity scaling. The visual-appeal base
// follows the ~50ms first-impression threshold; reading assumes ~200 wpm.
const (
	baseVisualAppeal = 50 * time.Millisecond
	baseLayoutScan   = 200 * time.Millisecond
	baseReading      = 150 * time.Millisecond
	baseInteraction  = 100 * time.Millisecond
	baseNavigation   = 300 * time.Millisecond

	perCharReading = 5 * time.Millisecond

	// Hard floors. interaction never drops below 100ms and visual-appeal
	// never below 50ms regardless of scaling.
	floorInteraction  = 100 * time.Millisecond
	floorVisualAppeal = 50 * time.Millisecond
)

// #endregion

// #region estimate

// Estimate returns how long a human plausibly needs for the given action.
// Pure: identical inputs always produce identical outputs, no clock reads.
// Invalid inputs are rejected eagerly rather than mapped to a default.
func Estimate(action Action, ctx Context) (time.Duration, error) {
	if ctx.ContentLength < 0 {
		return 0, fmt.Errorf("negative content length: %d", ctx.ContentLength)
	}
	factor, err := complexityFactor(ctx.Complexity)
	if err != nil {
		return 0, err
	}

	var d time.Duration
	switch action {
	case ActionVisualAppeal:
		d = scale(baseVisualAppeal, factor)
		if d < floorVisualAppeal {
			d = floorVisualAppeal
		}
	case ActionLayoutScan:
		d = scale(baseLayoutScan, factor)
	case ActionReading:
		d = scale(baseReading+time.Duration(ctx.ContentLength)*perCharReading, factor)
	case ActionInteraction:
		d = scale(baseInteraction, factor)
		if d < floorInteraction {
			d = floorInteraction
		}
	case ActionNavigation:
		d = scale(baseNavigation, factor)
	default:
		return 0, fmt.Errorf("unknown action %q", action)
	}

	return d, nil
}

// #endregion

// #region helpers

// complexityFactor maps complexity to a duration multiplier (in percent).
func complexityFactor(c Complexity) (int64, error) {
	switch c {
	case ComplexityLow:
		return 100, nil
	case "", ComplexityMedium:
		return 125, nil
	case ComplexityHigh:
		return 175, nil
	default:
		return 0, fmt.Errorf("unknown complexity %q", c)
	}
}

func scale(d time.Duration, percent int64) time.Duration {
	return d * time.Duration(percent) / 100
}

// #endregion
