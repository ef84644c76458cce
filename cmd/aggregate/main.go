package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arclabs561/notestream/internal/config"
	"github.com/arclabs561/notestream/internal/multiscale"
	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/temporal"
)

// #region main

func main() {
	input := flag.String("input", "", "notes file, JSON array or JSONL ('-' for stdin)")
	configPath := flag.String("config", "", "config file (default: built-in defaults)")
	window := flag.Int64("window", 0, "override window size in ms")
	decay := flag.Float64("decay", 0, "override decay factor")
	multi := flag.Bool("multi", false, "aggregate across all configured scales")
	scales := flag.String("scales", "", "override scales, e.g. short=1000,long=60000 (implies --multi)")
	attention := flag.Bool("attention", true, "apply salience/attention weights in multi-scale mode")
	jsonOut := flag.Bool("json", false, "output as JSON instead of rendered text")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: aggregate --input notes.jsonl [--window ms] [--decay f]")
		fmt.Fprintln(os.Stderr, "       aggregate --input notes.jsonl --multi [--scales name=ms,...] [--json]")
		os.Exit(2)
	}

	scaleOverride, err := parseScales(*scales)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad --scales: %v\n", err)
		os.Exit(2)
	}

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	opts := cfg.Temporal.ToOptions()
	if *window > 0 {
		opts.WindowSize = *window
	}
	if *decay > 0 {
		opts.DecayFactor = *decay
	}

	msOpts := cfg.Temporal.ToMultiScaleOptions()
	msOpts.Base = opts
	msOpts.AttentionWeights = *attention
	if len(scaleOverride) > 0 {
		msOpts.Scales = scaleOverride
		*multi = true
	}

	os.Exit(run(*input, opts, msOpts, *multi, *jsonOut))
}

// resolveConfig loads the named config file, or falls back to defaults when
// no path was given.
func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFromPath(path)
}

// parseScales turns "name=ms,name=ms" into a scale map.
func parseScales(s string) (map[string]int64, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]int64)
	for _, part := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=ms, got %q", part)
		}
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("bad window size in %q", part)
		}
		out[name] = ms
	}
	return out, nil
}

// #endregion main

// #region run

func run(input string, opts temporal.Options, msOpts multiscale.Options, multi, jsonOut bool) int {
	notes, skipped, err := loadNotes(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: skipped %d malformed lines\n", skipped)
	}

	res := temporal.Aggregate(notes, opts)

	var ms multiscale.Result
	if multi {
		ms = multiscale.AggregateScales(notes, msOpts)
	}

	if jsonOut {
		if err := printJSON(buildOutput(res, ms, msOpts, multi, skipped)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Println(res.Render())
	if multi {
		fmt.Println()
		fmt.Println(ms.Render())
	}
	return 0
}

func loadNotes(input string) ([]note.Note, int, error) {
	if input == "-" {
		notes, skipped := note.ParseLines(os.Stdin)
		return notes, skipped, nil
	}
	return note.Load(input)
}

// #endregion run

// #region output

type windowRow struct {
	Index        int64    `json:"index"`
	StartMs      int64    `json:"start_ms"`
	EndMs        int64    `json:"end_ms"`
	NoteCount    int      `json:"note_count"`
	AvgScore     *float64 `json:"avg_score,omitempty"`
	Observations string   `json:"observations"`
}

type conflictRow struct {
	WindowA int    `json:"window_a"`
	WindowB int    `json:"window_b"`
	Reason  string `json:"reason"`
}

type scaleRow struct {
	WindowSizeMs int64   `json:"window_size_ms"`
	Windows      int     `json:"windows"`
	NoteCount    int     `json:"note_count"`
	Coherence    float64 `json:"coherence"`
	Summary      string  `json:"summary"`
}

type aggregateOutput struct {
	NoteCount int                 `json:"note_count"`
	Skipped   int                 `json:"skipped,omitempty"`
	Coherence float64             `json:"coherence"`
	Summary   string              `json:"summary"`
	Windows   []windowRow         `json:"windows"`
	Conflicts []conflictRow       `json:"conflicts,omitempty"`
	Scales    map[string]scaleRow `json:"scales,omitempty"`
}

func buildOutput(res temporal.Result, ms multiscale.Result, msOpts multiscale.Options, multi bool, skipped int) aggregateOutput {
	out := aggregateOutput{
		NoteCount: res.NoteCount,
		Skipped:   skipped,
		Coherence: res.Coherence,
		Summary:   res.Summary,
		Windows:   make([]windowRow, len(res.Windows)),
	}

	for i, w := range res.Windows {
		wr := windowRow{
			Index:        w.Index,
			StartMs:      w.Start,
			EndMs:        w.End,
			NoteCount:    w.NoteCount,
			Observations: w.Observations,
		}
		if w.HasScore {
			score := w.AvgScore
			wr.AvgScore = &score
		}
		out.Windows[i] = wr
	}

	for _, c := range res.Conflicts {
		out.Conflicts = append(out.Conflicts, conflictRow{
			WindowA: c.WindowA,
			WindowB: c.WindowB,
			Reason:  c.Reason,
		})
	}

	if multi {
		out.Scales = make(map[string]scaleRow, len(ms.Scales))
		for name, sr := range ms.Scales {
			out.Scales[name] = scaleRow{
				WindowSizeMs: msOpts.Scales[name],
				Windows:      len(sr.Windows),
				NoteCount:    sr.NoteCount,
				Coherence:    sr.Coherence,
				Summary:      sr.Summary,
			}
		}
	}

	return out
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
