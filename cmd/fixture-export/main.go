package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arclabs561/notestream/internal/config"
	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/replay"
	"github.com/arclabs561/notestream/internal/session"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to sessions.db")
	input := flag.String("input", "", "notes file the session watched")
	sessionID := flag.String("session", "", "session to export (default: most recent)")
	last := flag.Int("last", 4, "number of most recent decisions to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *input == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/sessions.db --input notes.jsonl --out fixture.json [--session id] [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *input, *sessionID, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, input, sessionID string, last int, outPath string) error {
	store, err := session.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	rec, err := resolveSession(store, sessionID)
	if err != nil {
		return err
	}

	decisions, err := store.Decisions(rec.ID, last)
	if err != nil {
		return fmt.Errorf("load decisions: %w", err)
	}
	if len(decisions) == 0 {
		return fmt.Errorf("no decisions recorded for session %s", rec.ID)
	}

	notes, skipped, err := note.Load(input)
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d malformed lines in %s\n", skipped, input)
	}
	if len(notes) == 0 {
		return fmt.Errorf("no notes in %s", input)
	}

	fixture := buildFixture(rec, decisions, notes)
	return writeFixture(fixture, outPath)
}

// resolveSession picks the named session, or the most recent one when no id
// was given.
func resolveSession(store *session.Store, id string) (session.SessionRecord, error) {
	if id != "" {
		rec, err := store.Session(id)
		if err != nil {
			return session.SessionRecord{}, fmt.Errorf("load session: %w", err)
		}
		return rec, nil
	}
	recent, err := store.Sessions(1)
	if err != nil {
		return session.SessionRecord{}, fmt.Errorf("list sessions: %w", err)
	}
	if len(recent) == 0 {
		return session.SessionRecord{}, fmt.Errorf("no sessions found")
	}
	return recent[0], nil
}

// #endregion extract

// #region build

func buildFixture(rec session.SessionRecord, decisions []session.DecisionRow, notes []note.Note) replay.Fixture {
	cuts := cutBatches(notes, decisions)

	batches := make([]replay.FixtureBatch, len(decisions))
	for i, d := range decisions {
		batches[i] = replay.FixtureBatch{
			BatchID: fmt.Sprintf("batch-%d", d.Index),
			Notes:   cuts[i],
			Score:   d.Score,
			Issues:  d.Issues,
		}
	}

	fixtureConfig := sessionFixtureConfig(rec)

	// Replay the cut batches once and pin the observed routing as the
	// expectation, so the exported fixture guards current behavior.
	domainBatches := make([]replay.Batch, len(batches))
	for i := range batches {
		domainBatches[i] = batches[i].ToBatch()
	}
	results, _ := replay.Replay(domainBatches, fixtureConfig.ToReplayConfig())

	expected := make([]replay.FixtureExpectedResult, len(results))
	for i, r := range results {
		expected[i] = replay.FixtureExpectedResult{
			BatchID:  r.BatchID,
			Latency:  r.Latency,
			Activity: string(r.Activity),
		}
	}

	return replay.Fixture{
		Description:     fmt.Sprintf("Session export: %d decision batches from %q", len(batches), rec.Label),
		Config:          fixtureConfig,
		Batches:         batches,
		ExpectedResults: expected,
	}
}

// cutBatches slices the stream into one consecutive batch per decision.
// When both sides carry wall-clock times, notes are cut at each decision's
// timestamp; otherwise the stream is split evenly, remainder to the last
// batch.
func cutBatches(notes []note.Note, decisions []session.DecisionRow) [][]note.Note {
	out := make([][]note.Note, len(decisions))

	if wallClockAligned(notes, decisions) {
		start := 0
		for i, d := range decisions {
			cutoff := d.CreatedAt.UnixMilli()
			end := start
			for end < len(notes) && notes[end].Timestamp <= cutoff {
				end++
			}
			if i == len(decisions)-1 {
				end = len(notes)
			}
			out[i] = notes[start:end]
			start = end
		}
		return out
	}

	per := len(notes) / len(decisions)
	start := 0
	for i := range decisions {
		end := start + per
		if i == len(decisions)-1 {
			end = len(notes)
		}
		out[i] = notes[start:end]
		start = end
	}
	return out
}

// wallClockAligned reports whether every note and decision carries a usable
// wall-clock time, in order.
func wallClockAligned(notes []note.Note, decisions []session.DecisionRow) bool {
	var prev int64
	for _, n := range notes {
		if n.Timestamp <= 0 || n.Timestamp < prev {
			return false
		}
		prev = n.Timestamp
	}
	var prevD time.Time
	for _, d := range decisions {
		if d.CreatedAt.IsZero() || d.CreatedAt.Before(prevD) {
			return false
		}
		prevD = d.CreatedAt
	}
	return true
}

// sessionFixtureConfig rebuilds the fixture tunables from the session's
// stored config JSON, falling back to defaults when it is absent or
// predates the current schema.
func sessionFixtureConfig(rec session.SessionRecord) replay.FixtureConfig {
	fc := replay.FixtureConfig{AdaptationEnabled: true}
	if rec.ConfigJSON == "" {
		return fc
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &cfg); err != nil {
		return fc
	}

	fc.WindowSize = cfg.Temporal.WindowSizeMs
	fc.DecayFactor = cfg.Temporal.DecayFactor
	fc.ErraticismThreshold = cfg.Temporal.ErraticismThreshold
	fc.Scales = cfg.Temporal.Scales
	fc.CacheMaxAgeMs = cfg.Preprocess.CacheMaxAge.Milliseconds()
	fc.CountDeltaPct = cfg.Preprocess.CountDeltaPct
	fc.MaxHistory = cfg.Decision.MaxHistory
	fc.AdaptationEnabled = cfg.Decision.AdaptationEnabled
	return fc
}

// #endregion build

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d batches)\n", outPath, len(data), len(fixture.Batches))
	return nil
}

// #endregion output
