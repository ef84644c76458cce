package perception

import (
	"testing"
	"time"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		ctx    Context
		want   time.Duration
	}{
		{"visual-appeal-low", ActionVisualAppeal, Context{Complexity: ComplexityLow}, 50 * time.Millisecond},
		{"visual-appeal-high", ActionVisualAppeal, Context{Complexity: ComplexityHigh}, 87500 * time.Microsecond},
		{"interaction-low-hits-floor", ActionInteraction, Context{Complexity: ComplexityLow}, 100 * time.Millisecond},
		{"navigation-medium", ActionNavigation, Context{}, 375 * time.Millisecond},
		{"reading-empty-content", ActionReading, Context{Complexity: ComplexityLow}, 150 * time.Millisecond},
		{"reading-200-chars-low", ActionReading, Context{ContentLength: 200, Complexity: ComplexityLow}, 1150 * time.Millisecond},
		{"layout-scan-low", ActionLayoutScan, Context{Complexity: ComplexityLow}, 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.action, tt.ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimate_Floors(t *testing.T) {
	// The contract floors hold for every valid complexity.
	for _, c := range []Complexity{ComplexityLow, ComplexityMedium, ComplexityHigh, ""} {
		inter, err := Estimate(ActionInteraction, Context{Complexity: c})
		if err != nil {
			t.Fatalf("interaction %q: %v", c, err)
		}
		if inter < 100*time.Millisecond {
			t.Errorf("interaction %q: got %v, want >= 100ms", c, inter)
		}

		appeal, err := Estimate(ActionVisualAppeal, Context{Complexity: c})
		if err != nil {
			t.Fatalf("visual-appeal %q: %v", c, err)
		}
		if appeal < 50*time.Millisecond {
			t.Errorf("visual-appeal %q: got %v, want >= 50ms", c, appeal)
		}
	}
}

func TestEstimate_ReadingScalesWithContent(t *testing.T) {
	short, _ := Estimate(ActionReading, Context{ContentLength: 50})
	long, _ := Estimate(ActionReading, Context{ContentLength: 500})
	if long <= short {
		t.Errorf("reading time should grow with content: %v vs %v", short, long)
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	ctx := Context{ContentLength: 340, Complexity: ComplexityHigh}
	first, err := Estimate(ActionReading, ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Estimate(ActionReading, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d: got %v, want %v", i, again, first)
		}
	}
}

func TestEstimate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		ctx    Context
	}{
		{"negative-content-length", ActionReading, Context{ContentLength: -1}},
		{"unknown-action", Action("daydreaming"), Context{}},
		{"unknown-complexity", ActionReading, Context{Complexity: "extreme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Estimate(tt.action, tt.ctx); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestEstimate_EmptyComplexityMeansMedium(t *testing.T) {
	blank, err := Estimate(ActionNavigation, Context{})
	if err != nil {
		t.Fatal(err)
	}
	medium, err := Estimate(ActionNavigation, Context{Complexity: ComplexityMedium})
	if err != nil {
		t.Fatal(err)
	}
	if blank != medium {
		t.Errorf("empty complexity: got %v, want %v", blank, medium)
	}
}
