package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/arclabs561/notestream/internal/session"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to sessions.db")
	last := flag.Int("last", 20, "show N most recent sessions, or rows per section in detail mode")
	sessionID := flag.String("session", "", "show single session detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/sessions.db [--last N] [--session id] [--json]")
		os.Exit(2)
	}

	store, err := session.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID != "" {
		if err := runDetailMode(store, *sessionID, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
	NoteCount int    `json:"note_count"`
	Decisions int    `json:"decisions"`
	StartedAt string `json:"started_at"`
}

func runListMode(store *session.Store, last int, jsonOut bool) error {
	sessions, err := store.Sessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	// Build rows (store returns newest first, reverse for chronological)
	listRows := make([]listRow, len(sessions))
	for i, rec := range sessions {
		decisions, err := store.Decisions(rec.ID, -1)
		if err != nil {
			return err
		}
		listRows[len(sessions)-1-i] = listRow{
			SessionID: rec.ID,
			Label:     rec.Label,
			NoteCount: rec.NoteCount,
			Decisions: len(decisions),
			StartedAt: rec.StartedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(listRows)
	}
	return printListTable(listRows)
}

func printListTable(rows []listRow) error {
	fmt.Printf("%-10s  %-16s  %7s  %10s  %s\n",
		"Session", "Label", "Notes", "Decisions", "Started")
	fmt.Printf("%-10s+-%-16s+-%7s+-%10s+-%s\n",
		"----------", "----------------", "-------", "----------", "--------------------")

	for _, r := range rows {
		fmt.Printf("%-10s  %-16s  %7d  %10d  %s\n",
			shortID(r.SessionID), truncate(r.Label, 16), r.NoteCount, r.Decisions, r.StartedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type decisionRow struct {
	Index  int      `json:"index"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
	Time   string   `json:"time"`
}

type varianceRow struct {
	Baseline    float64 `json:"baseline"`
	Current     float64 `json:"current"`
	IncreasePct float64 `json:"increase_pct"`
	Time        string  `json:"time"`
}

type passRow struct {
	SnapshotID string  `json:"snapshot_id,omitempty"`
	NoteCount  int     `json:"note_count"`
	Coherence  float64 `json:"coherence"`
	DurationMs int64   `json:"duration_ms"`
	Skipped    bool    `json:"skipped"`
	Reason     string  `json:"reason,omitempty"`
	Time       string  `json:"time"`
}

type detailOutput struct {
	SessionID string        `json:"session_id"`
	Label     string        `json:"label"`
	NoteCount int           `json:"note_count"`
	StartedAt string        `json:"started_at"`
	Decisions []decisionRow `json:"decisions"`
	Variance  []varianceRow `json:"variance_events,omitempty"`
	Passes    []passRow     `json:"passes,omitempty"`
}

func runDetailMode(store *session.Store, sessionID string, last int, jsonOut bool) error {
	rec, err := store.Session(sessionID)
	if err != nil {
		return err
	}

	decisions, err := store.Decisions(rec.ID, last)
	if err != nil {
		return err
	}
	events, err := store.VarianceEvents(rec.ID)
	if err != nil {
		return err
	}
	passes, err := store.Passes(rec.ID, last)
	if err != nil {
		return err
	}

	out := detailOutput{
		SessionID: rec.ID,
		Label:     rec.Label,
		NoteCount: rec.NoteCount,
		StartedAt: rec.StartedAt.Format("2006-01-02T15:04:05Z"),
		Decisions: make([]decisionRow, len(decisions)),
	}
	for i, d := range decisions {
		out.Decisions[i] = decisionRow{
			Index:  d.Index,
			Score:  d.Score,
			Issues: d.Issues,
			Time:   d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	for _, ev := range events {
		out.Variance = append(out.Variance, varianceRow{
			Baseline:    ev.Baseline,
			Current:     ev.Current,
			IncreasePct: ev.IncreasePct,
			Time:        ev.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	for _, p := range passes {
		out.Passes = append(out.Passes, passRow{
			SnapshotID: p.SnapshotID,
			NoteCount:  p.NoteCount,
			Coherence:  p.Coherence,
			DurationMs: p.Duration.Milliseconds(),
			Skipped:    p.Skipped,
			Reason:     p.Reason,
			Time:       p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	if jsonOut {
		return printJSON(out)
	}
	return printDetail(out)
}

func printDetail(out detailOutput) error {
	fmt.Printf("Session:  %s\n", out.SessionID)
	fmt.Printf("Label:    %s\n", out.Label)
	fmt.Printf("Notes:    %d\n", out.NoteCount)
	fmt.Printf("Started:  %s\n", out.StartedAt)

	fmt.Printf("\nDecisions:\n")
	if len(out.Decisions) == 0 {
		fmt.Println("  none")
	} else {
		fmt.Printf("  %-6s  %6s  %-32s  %s\n", "Index", "Score", "Issues", "Time")
		for _, d := range out.Decisions {
			issues := "-"
			if len(d.Issues) > 0 {
				issues = truncate(strings.Join(d.Issues, "; "), 32)
			}
			fmt.Printf("  %-6d  %6.1f  %-32s  %s\n", d.Index, d.Score, issues, d.Time)
		}
	}

	fmt.Printf("\nVariance events:\n")
	if len(out.Variance) == 0 {
		fmt.Println("  none")
	} else {
		for _, ev := range out.Variance {
			fmt.Printf("  baseline %.2f -> current %.2f (+%.0f%%) at %s\n",
				ev.Baseline, ev.Current, ev.IncreasePct, ev.Time)
		}
	}

	fmt.Printf("\nPasses:\n")
	if len(out.Passes) == 0 {
		fmt.Println("  none")
	} else {
		fmt.Printf("  %-10s  %6s  %9s  %8s  %s\n", "Snapshot", "Notes", "Coherence", "Duration", "Status")
		for _, p := range out.Passes {
			snap := "-"
			if p.SnapshotID != "" {
				snap = shortID(p.SnapshotID)
			}
			status := "ok"
			if p.Skipped {
				status = "skipped: " + p.Reason
			}
			fmt.Printf("  %-10s  %6d  %9.2f  %6dms  %s\n",
				snap, p.NoteCount, p.Coherence, p.DurationMs, status)
		}
	}

	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

// #endregion output
