package note

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		notes       []Note
		wantCount   int
		wantElapsed []int64
	}{
		{
			"explicit-elapsed-preserved",
			[]Note{
				{Elapsed: Int64Ptr(0)},
				{Elapsed: Int64Ptr(1500)},
			},
			2,
			[]int64{0, 1500},
		},
		{
			"derived-from-timestamps",
			[]Note{
				{Timestamp: 1_700_000_000_000},
				{Timestamp: 1_700_000_002_500},
			},
			2,
			[]int64{0, 2500},
		},
		{
			"mixed-explicit-and-derived",
			[]Note{
				{Timestamp: 1_700_000_001_000},
				{Elapsed: Int64Ptr(400), Timestamp: 1_700_000_000_000},
			},
			2,
			[]int64{1000, 400},
		},
		{
			"unplaceable-dropped",
			[]Note{
				{Observation: "no clock at all"},
				{Elapsed: Int64Ptr(200)},
			},
			1,
			[]int64{200},
		},
		{
			"empty-input",
			nil,
			0,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.notes)
			if len(got) != tt.wantCount {
				t.Fatalf("count: got %d, want %d", len(got), tt.wantCount)
			}
			for i, want := range tt.wantElapsed {
				if got[i].Elapsed == nil {
					t.Fatalf("note %d: elapsed not set", i)
				}
				if *got[i].Elapsed != want {
					t.Errorf("note %d: elapsed got %d, want %d", i, *got[i].Elapsed, want)
				}
			}
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []Note{{Timestamp: 1_700_000_000_000}, {Timestamp: 1_700_000_001_000}}
	out := Normalize(in)

	if in[0].Elapsed != nil || in[1].Elapsed != nil {
		t.Fatal("input notes were mutated")
	}
	if out[1].Elapsed == nil || *out[1].Elapsed != 1000 {
		t.Errorf("output elapsed: got %v, want 1000", out[1].Elapsed)
	}

	// Writing through the output pointer must not reach the input.
	*out[1].Elapsed = 99
	if in[1].Elapsed != nil {
		t.Error("output shares elapsed storage with input")
	}
}

func TestHasScore(t *testing.T) {
	tests := []struct {
		name string
		note Note
		want bool
	}{
		{"nil-score", Note{}, false},
		{"valid-score", Note{Score: Float64Ptr(7.5)}, true},
		{"zero-score", Note{Score: Float64Ptr(0)}, true},
		{"nan-score", Note{Score: Float64Ptr(math.NaN())}, false},
		{"pos-inf-score", Note{Score: Float64Ptr(math.Inf(1))}, false},
		{"neg-inf-score", Note{Score: Float64Ptr(math.Inf(-1))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.note.HasScore(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxElapsed(t *testing.T) {
	notes := []Note{
		{Elapsed: Int64Ptr(100)},
		{Elapsed: Int64Ptr(4200)},
		{},
		{Elapsed: Int64Ptr(900)},
	}
	if got := MaxElapsed(notes); got != 4200 {
		t.Errorf("got %d, want 4200", got)
	}
	if got := MaxElapsed(nil); got != 0 {
		t.Errorf("empty: got %d, want 0", got)
	}
}
