package preprocess

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arclabs561/notestream/internal/activity"
	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/temporal"
)

// #region helpers

// stream builds n scored notes spaced spacingMs apart starting at zero.
func stream(n int, spacingMs int64) []note.Note {
	notes := make([]note.Note, 0, n)
	for i := 0; i < n; i++ {
		notes = append(notes, note.Note{
			Elapsed:     note.Int64Ptr(int64(i) * spacingMs),
			Score:       note.Float64Ptr(7.0),
			Observation: "layout holds together",
		})
	}
	return notes
}

// passLog collects recorder callbacks from background goroutines.
type passLog struct {
	mu   sync.Mutex
	recs []PassRecord
}

func (p *passLog) record(rec PassRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
}

func (p *passLog) all() []PassRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PassRecord(nil), p.recs...)
}

func newTestManager(config Config) *Manager {
	return NewManager(config, zerolog.Nop())
}

// publish runs one background pass over notes and waits for it.
func publish(t *testing.T, m *Manager, notes []note.Note) *Snapshot {
	t.Helper()
	if !m.PreprocessInBackground(notes) {
		t.Fatal("PreprocessInBackground: pass was skipped")
	}
	m.Wait()
	snap := m.Snapshot()
	if snap == nil {
		t.Fatal("no snapshot after background pass")
	}
	return snap
}

// #endregion

func TestManager_BackgroundPassPublishesSnapshot(t *testing.T) {
	log := &passLog{}
	m := newTestManager(DefaultConfig())
	m.OnPass = log.record

	notes := stream(6, 2000)
	snap := publish(t, m, notes)

	if snap.ID == "" {
		t.Error("snapshot ID is empty")
	}
	if snap.NoteCount != 6 {
		t.Errorf("snapshot NoteCount: got %d, want 6", snap.NoteCount)
	}
	if snap.Aggregated.NoteCount != 6 {
		t.Errorf("aggregated NoteCount: got %d, want 6", snap.Aggregated.NoteCount)
	}
	if snap.Coherence != snap.Aggregated.Coherence {
		t.Errorf("snapshot Coherence: got %v, want %v", snap.Coherence, snap.Aggregated.Coherence)
	}
	if len(snap.MultiScale.Scales) == 0 {
		t.Error("snapshot has no multi-scale results")
	}
	if !m.CacheValid(notes) {
		t.Error("cache should be valid right after the pass")
	}

	recs := log.all()
	if len(recs) != 1 {
		t.Fatalf("pass records: got %d, want 1", len(recs))
	}
	if recs[0].Skipped {
		t.Errorf("pass record marked skipped: %q", recs[0].Reason)
	}
	if recs[0].SnapshotID != snap.ID {
		t.Errorf("pass record snapshot: got %q, want %q", recs[0].SnapshotID, snap.ID)
	}
	if recs[0].NoteCount != 6 {
		t.Errorf("pass record NoteCount: got %d, want 6", recs[0].NoteCount)
	}
}

func TestManager_SkipsOnHighActivity(t *testing.T) {
	log := &passLog{}
	m := newTestManager(DefaultConfig())
	m.OnPass = log.record

	// 60 notes 10ms apart is 12 notes per second.
	if m.PreprocessInBackground(stream(60, 10)) {
		t.Error("pass should be skipped during high activity")
	}
	m.Wait()

	if m.Snapshot() != nil {
		t.Error("skipped pass must not publish a snapshot")
	}
	recs := log.all()
	if len(recs) != 1 || !recs[0].Skipped {
		t.Fatalf("expected one skipped record, got %+v", recs)
	}
	if recs[0].Reason != "high activity" {
		t.Errorf("skip reason: got %q, want %q", recs[0].Reason, "high activity")
	}
}

func TestManager_DropsConcurrentPass(t *testing.T) {
	log := &passLog{}
	m := newTestManager(DefaultConfig())
	m.OnPass = log.record

	// Simulate a pass already in flight.
	m.mu.Lock()
	m.inFlight = true
	m.mu.Unlock()

	if m.PreprocessInBackground(stream(6, 2000)) {
		t.Error("second pass should be dropped while one is in flight")
	}
	recs := log.all()
	if len(recs) != 1 || !recs[0].Skipped {
		t.Fatalf("expected one skipped record, got %+v", recs)
	}
	if recs[0].Reason != "pass in flight" {
		t.Errorf("skip reason: got %q, want %q", recs[0].Reason, "pass in flight")
	}

	// Once the flag clears, passes run again.
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
	publish(t, m, stream(6, 2000))
}

func TestManager_CacheCountDelta(t *testing.T) {
	tests := []struct {
		name    string
		snapped int
		current int
		want    bool
	}{
		{"identical counts", 10, 10, true},
		{"exactly at the limit", 8, 10, true},   // delta 2, limit 2.0
		{"within the limit", 10, 12, true},      // delta 2, limit 2.4
		{"just past the limit", 10, 13, false},  // delta 3, limit 2.6
		{"shrunk past the limit", 10, 8, false}, // delta 2, limit 1.6
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(DefaultConfig())
			publish(t, m, stream(tt.snapped, 1000))
			got := m.CacheValid(stream(tt.current, 1000))
			if got != tt.want {
				t.Errorf("CacheValid(%d notes against snapshot of %d): got %v, want %v",
					tt.current, tt.snapped, got, tt.want)
			}
		})
	}
}

func TestManager_CacheExpiresByAge(t *testing.T) {
	config := DefaultConfig()
	config.CacheMaxAge = 40 * time.Millisecond
	m := newTestManager(config)

	notes := stream(6, 2000)
	publish(t, m, notes)
	if !m.CacheValid(notes) {
		t.Fatal("cache should be valid right after the pass")
	}

	time.Sleep(60 * time.Millisecond)
	if m.CacheValid(notes) {
		t.Error("cache should expire once older than CacheMaxAge")
	}
}

func TestManager_FastAggregation(t *testing.T) {
	m := newTestManager(DefaultConfig())
	notes := stream(6, 2000)

	cold, cached := m.FastAggregation(notes)
	if cached {
		t.Error("cold manager should not report a cache hit")
	}
	if want := temporal.Aggregate(notes, DefaultConfig().Temporal); cold.NoteCount != want.NoteCount || cold.Summary != want.Summary {
		t.Errorf("cold FastAggregation diverges from Aggregate: got %q, want %q", cold.Summary, want.Summary)
	}
	if m.Snapshot() != nil {
		t.Error("synchronous aggregation must not publish a snapshot")
	}

	snap := publish(t, m, notes)
	warm, cached := m.FastAggregation(notes)
	if !cached {
		t.Error("warm manager should report a cache hit")
	}
	if warm.Summary != snap.Aggregated.Summary {
		t.Errorf("warm FastAggregation: got %q, want snapshot summary %q", warm.Summary, snap.Aggregated.Summary)
	}
}

func TestProcessNotes_LowServesSnapshot(t *testing.T) {
	m := newTestManager(DefaultConfig())
	notes := stream(6, 2000) // 3 notes in the trailing 5s window, 0.6 per second
	snap := publish(t, m, notes)

	res := m.ProcessNotes(notes)
	if res.Activity != activity.LevelLow {
		t.Fatalf("activity: got %q, want %q", res.Activity, activity.LevelLow)
	}
	if res.Latency != LatencyBackground {
		t.Errorf("latency: got %q, want %q", res.Latency, LatencyBackground)
	}
	if res.SnapshotID != snap.ID {
		t.Errorf("snapshot ID: got %q, want %q", res.SnapshotID, snap.ID)
	}
	if res.Aggregated.NoteCount != snap.Aggregated.NoteCount {
		t.Errorf("aggregated NoteCount: got %d, want %d", res.Aggregated.NoteCount, snap.Aggregated.NoteCount)
	}
}

func TestProcessNotes_LowColdComputesAndWarms(t *testing.T) {
	m := newTestManager(DefaultConfig())
	notes := stream(6, 2000)

	res := m.ProcessNotes(notes)
	if res.Latency != LatencyComputed {
		t.Errorf("cold latency: got %q, want %q", res.Latency, LatencyComputed)
	}
	if res.SnapshotID != "" {
		t.Errorf("computed result carries snapshot ID %q", res.SnapshotID)
	}
	if res.Aggregated.NoteCount != 6 {
		t.Errorf("aggregated NoteCount: got %d, want 6", res.Aggregated.NoteCount)
	}

	// The cold call kicks a background pass to warm the cache.
	m.Wait()
	if !m.CacheValid(notes) {
		t.Error("cache should be warm after the kicked background pass")
	}
	if next := m.ProcessNotes(notes); next.Latency != LatencyBackground {
		t.Errorf("second call latency: got %q, want %q", next.Latency, LatencyBackground)
	}
}

func TestProcessNotes_MediumAlwaysComputes(t *testing.T) {
	m := newTestManager(DefaultConfig())
	notes := stream(10, 1000) // 5 notes in the trailing window, 1 per second
	snap := publish(t, m, notes)

	res := m.ProcessNotes(notes)
	if res.Activity != activity.LevelMedium {
		t.Fatalf("activity: got %q, want %q", res.Activity, activity.LevelMedium)
	}
	if res.Latency != LatencyComputed {
		t.Errorf("latency: got %q, want %q", res.Latency, LatencyComputed)
	}
	if res.SnapshotID != "" {
		t.Errorf("computed result carries snapshot ID %q", res.SnapshotID)
	}
	if got := m.Snapshot(); got == nil || got.ID != snap.ID {
		t.Error("synchronous computation must not replace the snapshot")
	}
}

func TestProcessNotes_HighPrefersSnapshot(t *testing.T) {
	m := newTestManager(DefaultConfig())
	publish(t, m, stream(55, 1000))

	burst := stream(60, 10) // high activity, count within 20% of the snapshot
	res := m.ProcessNotes(burst)
	if res.Activity != activity.LevelHigh {
		t.Fatalf("activity: got %q, want %q", res.Activity, activity.LevelHigh)
	}
	if res.Latency != LatencyBackground {
		t.Errorf("latency: got %q, want %q", res.Latency, LatencyBackground)
	}
}

func TestProcessNotes_HighColdComputes(t *testing.T) {
	m := newTestManager(DefaultConfig())

	res := m.ProcessNotes(stream(60, 10))
	if res.Activity != activity.LevelHigh {
		t.Fatalf("activity: got %q, want %q", res.Activity, activity.LevelHigh)
	}
	if res.Latency != LatencyComputed {
		t.Errorf("latency: got %q, want %q", res.Latency, LatencyComputed)
	}
	// High activity never starts a background pass.
	m.Wait()
	if m.Snapshot() != nil {
		t.Error("high-activity call must not publish a snapshot")
	}
}

func TestManager_Reset(t *testing.T) {
	m := newTestManager(DefaultConfig())
	notes := stream(6, 2000)
	publish(t, m, notes)

	m.Reset()
	if m.Snapshot() != nil {
		t.Error("snapshot should be cleared by Reset")
	}
	if m.CacheValid(notes) {
		t.Error("cache should be invalid after Reset")
	}
}

func TestManager_ResetDuringPassDiscards(t *testing.T) {
	log := &passLog{}
	m := newTestManager(DefaultConfig())
	m.OnPass = log.record

	// Take the in-flight slot as PreprocessInBackground would, reset,
	// then let the pass land.
	m.mu.Lock()
	m.inFlight = true
	gen := m.gen
	m.mu.Unlock()

	m.Reset()

	m.wg.Add(1)
	m.runPass(stream(6, 2000), gen)

	if m.Snapshot() != nil {
		t.Error("pass that straddles a reset must not publish")
	}
	recs := log.all()
	if len(recs) != 1 || !recs[0].Skipped {
		t.Fatalf("expected one skipped record, got %+v", recs)
	}
	if recs[0].Reason != "reset during pass" {
		t.Errorf("skip reason: got %q, want %q", recs[0].Reason, "reset during pass")
	}
}

func TestManager_ConcurrentUse(t *testing.T) {
	m := newTestManager(DefaultConfig())
	notes := stream(6, 2000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.ProcessNotes(notes)
			m.PreprocessInBackground(notes)
		}()
	}
	wg.Wait()
	m.Wait()

	if m.Snapshot() == nil {
		t.Fatal("no snapshot after concurrent use")
	}
	if res := m.ProcessNotes(notes); res.Latency != LatencyBackground {
		t.Errorf("latency after warmup: got %q, want %q", res.Latency, LatencyBackground)
	}
}
