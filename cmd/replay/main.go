package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/arclabs561/notestream/internal/config"
	"github.com/arclabs561/notestream/internal/decision"
	"github.com/arclabs561/notestream/internal/replay"
	"github.com/arclabs561/notestream/internal/session"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to sessions.db (DB mode)")
	sessionID := flag.String("session", "", "session to replay (DB mode; default: most recent)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/sessions.db [--session id]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	replayConfig := f.Config.ToReplayConfig()
	batches := make([]replay.Batch, len(f.Batches))
	for i := range f.Batches {
		batches[i] = f.Batches[i].ToBatch()
	}

	results, ctx := replay.Replay(batches, replayConfig)

	code := printComparison(results, f.ExpectedResults)
	printStats(replay.Summarize(results, ctx))
	return code
}

// printComparison outputs an expected-vs-replayed routing table and returns
// the exit code: 1 on any divergence, 0 otherwise.
func printComparison(results []replay.BatchResult, expected []replay.FixtureExpectedResult) int {
	fmt.Printf("%-12s| %-20s| %-20s| %s\n", "Batch", "Expected", "Replayed", "Match")
	fmt.Printf("%-12s+%-20s+%-20s+%s\n",
		"------------", "---------------------", "---------------------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		exp := routeLabel(expected[i].Latency, expected[i].Activity)
		got := routeLabel(results[i].Latency, string(results[i].Activity))
		match := "DIFF"
		if exp == got {
			match = "OK"
			matches++
		}
		fmt.Printf("%-12s| %-20s| %-20s| %s\n", results[i].BatchID, exp, got, match)
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

// routeLabel joins latency and activity into one comparable cell.
func routeLabel(latency, level string) string {
	return latency + "/" + level
}

func printStats(s replay.ReplaySummary) {
	trend := string(s.FinalPattern.Trend)
	if trend == "" {
		trend = "n/a"
	}
	fmt.Printf("Run stats: %d background, %d computed, %d high-activity, %d variance events, trend %s\n",
		s.Background, s.Computed, s.HighActivity, s.VarianceEvents, trend)
}

// #endregion fixture-mode

// #region db-mode

// runDBMode replays a recorded session's decision stream through a fresh
// context and checks that the variance telemetry comes out the same.
func runDBMode(dbPath, sessionID string) int {
	store, err := session.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	rec, err := resolveSession(store, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	rows, err := store.Decisions(rec.ID, -1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load decisions: %v\n", err)
		return 2
	}
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "no decisions recorded for session %s\n", rec.ID)
		return 2
	}

	recorded, err := store.VarianceEvents(rec.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load variance events: %v\n", err)
		return 2
	}

	ctx := decision.NewContext(sessionDecisionConfig(rec))

	fmt.Printf("%-10s| %8s | %-12s| %s\n", "Decision", "Score", "Trend", "Events")
	fmt.Printf("%-10s+%10s+%-13s+%s\n",
		"----------", "----------", "-------------", "-------")

	for _, row := range rows {
		ctx.AddDecision(row.Score, row.Issues)
		trend := string(ctx.IdentifyPatterns().Trend)
		if trend == "" {
			trend = "n/a"
		}
		fmt.Printf("%-10d| %8.1f | %-12s| %d\n",
			row.Index, row.Score, trend, len(ctx.VarianceEvents()))
	}

	replayed := len(ctx.VarianceEvents())
	fmt.Printf("\nSummary: %d decisions, %d variance events recorded, %d replayed\n",
		len(rows), len(recorded), replayed)

	if replayed != len(recorded) {
		fmt.Println("variance telemetry diverges from the recorded session")
		return 1
	}
	return 0
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

// sessionDecisionConfig rebuilds the decision config a session ran with from
// its stored config JSON, falling back to defaults when the JSON is absent
// or predates the current schema.
func sessionDecisionConfig(rec session.SessionRecord) decision.Config {
	if rec.ConfigJSON != "" {
		var cfg config.Config
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &cfg); err == nil && cfg.Decision.MaxHistory > 0 {
			return cfg.Decision.ToDecisionConfig()
		}
	}
	return decision.DefaultConfig()
}

// #endregion db-mode
