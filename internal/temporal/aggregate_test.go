package temporal

import (
	"math"
	"strings"
	"testing"

	"github.com/arclabs561/notestream/internal/note"
)

// scoredNote builds a placed, scored note.
func scoredNote(elapsed int64, score float64) note.Note {
	return note.Note{Elapsed: note.Int64Ptr(elapsed), Score: note.Float64Ptr(score)}
}

func TestAggregate_EmptyInput(t *testing.T) {
	got := Aggregate(nil, DefaultOptions())

	if len(got.Windows) != 0 {
		t.Errorf("windows: got %d, want 0", len(got.Windows))
	}
	if got.Coherence != 1.0 {
		t.Errorf("coherence: got %v, want 1.0", got.Coherence)
	}
	if len(got.Conflicts) != 0 {
		t.Errorf("conflicts: got %d, want 0", len(got.Conflicts))
	}
	if got.Summary != emptySummary {
		t.Errorf("summary: got %q", got.Summary)
	}
}

func TestAggregate_SingleWindow(t *testing.T) {
	notes := []note.Note{
		scoredNote(0, 7.0),
		scoredNote(2000, 8.0),
		scoredNote(4000, 6.5),
	}
	got := Aggregate(notes, DefaultOptions())

	if len(got.Windows) != 1 {
		t.Fatalf("windows: got %d, want 1", len(got.Windows))
	}
	if got.Coherence != 1.0 {
		t.Errorf("coherence: got %v, want 1.0 for a single window", got.Coherence)
	}
	if got.Windows[0].NoteCount != 3 {
		t.Errorf("note count: got %d, want 3", got.Windows[0].NoteCount)
	}
}

func TestAggregate_WindowPartition(t *testing.T) {
	opts := DefaultOptions() // 10000ms windows
	notes := []note.Note{
		scoredNote(0, 7.0),
		scoredNote(9999, 7.5),  // last ms of window 0
		scoredNote(10000, 8.0), // first ms of window 1
		scoredNote(25000, 8.5), // window 2
	}
	got := Aggregate(notes, opts)

	if len(got.Windows) != 3 {
		t.Fatalf("windows: got %d, want 3", len(got.Windows))
	}
	wantIdx := []int64{0, 1, 2}
	wantCount := []int{2, 1, 1}
	for i, w := range got.Windows {
		if w.Index != wantIdx[i] {
			t.Errorf("window %d: index got %d, want %d", i, w.Index, wantIdx[i])
		}
		if w.NoteCount != wantCount[i] {
			t.Errorf("window %d: count got %d, want %d", i, w.NoteCount, wantCount[i])
		}
		if w.Start != w.Index*opts.WindowSize || w.End != w.Start+opts.WindowSize {
			t.Errorf("window %d: bounds [%d, %d) inconsistent with index %d", i, w.Start, w.End, w.Index)
		}
	}
}

func TestAggregate_NoteConservation(t *testing.T) {
	notes := []note.Note{
		scoredNote(0, 7.0),
		scoredNote(5000, 7.2),
		scoredNote(15000, 6.8),
		scoredNote(32000, 8.1),
		{Observation: "unplaceable: no timestamp, no elapsed"},
	}
	got := Aggregate(notes, DefaultOptions())

	if got.NoteCount != 4 {
		t.Errorf("placed notes: got %d, want 4", got.NoteCount)
	}
	total := 0
	for _, w := range got.Windows {
		total += w.NoteCount
	}
	if total != got.NoteCount {
		t.Errorf("window counts sum to %d, want %d", total, got.NoteCount)
	}
}

func TestAggregate_DecayFavorsRecent(t *testing.T) {
	opts := Options{WindowSize: 10000, DecayFactor: 0.5, ErraticismThreshold: 0.5}

	// Early high score, late low score: the weighted average must sit
	// below the unweighted mean because the late note dominates.
	early := Aggregate([]note.Note{scoredNote(0, 10), scoredNote(9999, 0)}, opts)
	if !early.Windows[0].HasScore {
		t.Fatal("window should be scored")
	}
	if avg := early.Windows[0].AvgScore; avg >= 5.0 || avg < 3.0 {
		t.Errorf("avg with late low score: got %.3f, want in [3.0, 5.0)", avg)
	}

	// Mirrored order pulls the average above the mean.
	late := Aggregate([]note.Note{scoredNote(0, 0), scoredNote(9999, 10)}, opts)
	if avg := late.Windows[0].AvgScore; avg <= 5.0 {
		t.Errorf("avg with late high score: got %.3f, want > 5.0", avg)
	}
}

func TestAggregate_UniformDecayIsPlainMean(t *testing.T) {
	opts := Options{WindowSize: 10000, DecayFactor: 1.0, ErraticismThreshold: 0.5}
	got := Aggregate([]note.Note{scoredNote(0, 4), scoredNote(9000, 8)}, opts)

	if avg := got.Windows[0].AvgScore; math.Abs(avg-6.0) > 1e-9 {
		t.Errorf("avg: got %v, want 6.0 with decay 1.0", avg)
	}
}

func TestAggregate_ImprovingScoresStayCoherent(t *testing.T) {
	// One note per 10s window, steadily improving, no contradictory text.
	scores := []float64{6.0, 7.0, 8.0, 9.0, 9.0}
	notes := make([]note.Note, len(scores))
	for i, s := range scores {
		notes[i] = scoredNote(int64(i)*10000, s)
	}
	got := Aggregate(notes, DefaultOptions())

	if got.Coherence < 0.5 {
		t.Errorf("coherence: got %.3f, want >= 0.5 for improving scores", got.Coherence)
	}
	if len(got.Conflicts) != 0 {
		t.Errorf("conflicts: got %d, want 0", len(got.Conflicts))
	}
}

func TestAggregate_OscillationPenalized(t *testing.T) {
	oscillating := []float64{8.0, 3.0, 9.0, 2.0, 7.0, 1.0}
	steady := []float64{6.0, 6.5, 7.0, 7.5, 8.0, 8.5}

	build := func(scores []float64) []note.Note {
		notes := make([]note.Note, len(scores))
		for i, s := range scores {
			notes[i] = scoredNote(int64(i)*10000, s)
		}
		return notes
	}

	osc := Aggregate(build(oscillating), DefaultOptions())
	std := Aggregate(build(steady), DefaultOptions())

	if osc.Coherence >= 0.7 {
		t.Errorf("oscillating coherence: got %.3f, want < 0.7", osc.Coherence)
	}
	if osc.Coherence >= std.Coherence {
		t.Errorf("oscillating %.3f should score below steady %.3f", osc.Coherence, std.Coherence)
	}
}

func TestAggregate_NaNAndInfScores(t *testing.T) {
	notes := []note.Note{
		scoredNote(0, 7.0),
		{Elapsed: note.Int64Ptr(2000), Score: note.Float64Ptr(math.NaN()), Observation: "nan note text kept"},
		{Elapsed: note.Int64Ptr(3000), Score: note.Float64Ptr(math.Inf(1))},
		scoredNote(12000, 8.0),
	}
	got := Aggregate(notes, DefaultOptions())

	if math.IsNaN(got.Coherence) || math.IsInf(got.Coherence, 0) {
		t.Fatalf("coherence must be finite, got %v", got.Coherence)
	}
	if got.Coherence < 0 || got.Coherence > 1 {
		t.Errorf("coherence out of range: %v", got.Coherence)
	}

	w0 := got.Windows[0]
	if w0.NoteCount != 3 {
		t.Errorf("window 0 count: got %d, want 3 (unscored notes still counted)", w0.NoteCount)
	}
	// Only the 7.0 note is scored, so the weighted average equals it.
	if math.Abs(w0.AvgScore-7.0) > 1e-9 {
		t.Errorf("window 0 avg: got %v, want 7.0", w0.AvgScore)
	}
	if !strings.Contains(w0.Observations, "nan note text kept") {
		t.Error("NaN-scored note's text should be retained for conflict detection")
	}
}

func TestAggregate_AllUnscoredWindow(t *testing.T) {
	notes := []note.Note{
		{Elapsed: note.Int64Ptr(500), Observation: "first paint visible"},
		{Elapsed: note.Int64Ptr(1500), Observation: "nav bar settled"},
	}
	got := Aggregate(notes, DefaultOptions())

	if len(got.Windows) != 1 {
		t.Fatalf("windows: got %d, want 1", len(got.Windows))
	}
	if got.Windows[0].HasScore {
		t.Error("window with no scored notes should report HasScore false")
	}
	if got.Windows[0].AvgScore != 0 {
		t.Errorf("avg: got %v, want 0", got.Windows[0].AvgScore)
	}
}

func TestAggregate_SentimentConflict(t *testing.T) {
	notes := []note.Note{
		{Elapsed: note.Int64Ptr(1000), Score: note.Float64Ptr(8.0),
			Observation: "layout clean and balanced, spacing consistent"},
		{Elapsed: note.Int64Ptr(11000), Score: note.Float64Ptr(7.5),
			Observation: "layout broken and cluttered, spacing wrong"},
	}
	got := Aggregate(notes, DefaultOptions())

	if len(got.Conflicts) != 1 {
		t.Fatalf("conflicts: got %d, want 1", len(got.Conflicts))
	}
	c := got.Conflicts[0]
	if c.WindowA != 0 || c.WindowB != 1 {
		t.Errorf("conflict windows: got (%d, %d), want (0, 1)", c.WindowA, c.WindowB)
	}
	if !strings.Contains(c.Reason, "sentiment reversal") {
		t.Errorf("reason: got %q", c.Reason)
	}

	// The same pair without the reversal scores strictly higher.
	agreeable := []note.Note{
		{Elapsed: note.Int64Ptr(1000), Score: note.Float64Ptr(8.0),
			Observation: "layout clean and balanced, spacing consistent"},
		{Elapsed: note.Int64Ptr(11000), Score: note.Float64Ptr(7.5),
			Observation: "layout still clean, spacing consistent"},
	}
	calm := Aggregate(agreeable, DefaultOptions())
	if got.Coherence >= calm.Coherence {
		t.Errorf("conflicted %.3f should score below agreeable %.3f", got.Coherence, calm.Coherence)
	}
}

func TestAggregate_InvalidOptionsFallBack(t *testing.T) {
	notes := []note.Note{scoredNote(0, 7.0), scoredNote(15000, 8.0)}

	bad := Aggregate(notes, Options{WindowSize: -5, DecayFactor: 3.0})
	def := Aggregate(notes, DefaultOptions())

	if len(bad.Windows) != len(def.Windows) {
		t.Fatalf("windows: got %d, want %d", len(bad.Windows), len(def.Windows))
	}
	if bad.Coherence != def.Coherence {
		t.Errorf("coherence: got %v, want %v", bad.Coherence, def.Coherence)
	}
}

func TestAggregate_InputOrderIrrelevant(t *testing.T) {
	forward := []note.Note{
		scoredNote(0, 6.0),
		scoredNote(11000, 7.0),
		scoredNote(22000, 8.0),
	}
	reversed := []note.Note{forward[2], forward[0], forward[1]}

	a := Aggregate(forward, DefaultOptions())
	b := Aggregate(reversed, DefaultOptions())

	if a.Coherence != b.Coherence || len(a.Windows) != len(b.Windows) {
		t.Fatalf("shuffled input changed the aggregate: %v vs %v", a.Summary, b.Summary)
	}
	for i := range a.Windows {
		if a.Windows[i] != b.Windows[i] {
			t.Errorf("window %d differs: %+v vs %+v", i, a.Windows[i], b.Windows[i])
		}
	}
}

func TestDirectionConsistency_ZeroDeltasAgree(t *testing.T) {
	windows := []Window{
		{HasScore: true, AvgScore: 7.0},
		{HasScore: true, AvgScore: 7.0},
		{HasScore: true, AvgScore: 8.0},
	}
	if got := directionConsistency(windows, 0.5); got != 1.0 {
		t.Errorf("got %v, want 1.0 (flat deltas agree with the majority)", got)
	}
}

func TestVarianceCoherence_IdenticalScores(t *testing.T) {
	windows := []Window{
		{HasScore: true, AvgScore: 7.5},
		{HasScore: true, AvgScore: 7.5},
		{HasScore: true, AvgScore: 7.5},
	}
	if got := varianceCoherence(windows); got != 1.0 {
		t.Errorf("got %v, want 1.0", got)
	}
}

func TestRender(t *testing.T) {
	notes := []note.Note{
		scoredNote(0, 7.0),
		{Elapsed: note.Int64Ptr(12000), Score: note.Float64Ptr(8.0), Observation: "cards aligned"},
	}
	out := Aggregate(notes, DefaultOptions()).Render()

	if !strings.Contains(out, "coherence:") {
		t.Error("rendered block must include the coherence figure")
	}
	if !strings.Contains(out, "window 0") || !strings.Contains(out, "window 1") {
		t.Errorf("rendered block missing window lines:\n%s", out)
	}
	if !strings.Contains(out, "cards aligned") {
		t.Error("rendered block should carry observation text")
	}

	empty := Aggregate(nil, DefaultOptions()).Render()
	if !strings.Contains(empty, emptySummary) || !strings.Contains(empty, "coherence:") {
		t.Errorf("empty render: %q", empty)
	}
}
