package note

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLines(t *testing.T) {
	input := strings.Join([]string{
		`{"elapsed": 0, "score": 7.5, "observation": "hero section renders"}`,
		``,
		`{"elapsed": 1200, "score": 8.0, "step": "scroll"}`,
		`{not json at all`,
		`{"elapsed": 2400, "observation": "footer visible"}`,
	}, "\n")

	notes, skipped := ParseLines(strings.NewReader(input))

	if len(notes) != 3 {
		t.Fatalf("notes: got %d, want 3", len(notes))
	}
	if skipped != 1 {
		t.Errorf("skipped: got %d, want 1", skipped)
	}
	if *notes[0].Elapsed != 0 || *notes[1].Elapsed != 1200 || *notes[2].Elapsed != 2400 {
		t.Errorf("elapsed values wrong: %v %v %v", *notes[0].Elapsed, *notes[1].Elapsed, *notes[2].Elapsed)
	}
	if notes[2].Score != nil {
		t.Error("unscored note should have nil score")
	}
}

func TestLoad_ArrayFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	content := `[
		{"elapsed": 0, "score": 7.0, "observation": "initial paint"},
		{"elapsed": 500, "score": 7.5}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	notes, skipped, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("notes: got %d, want 2", len(notes))
	}
	if skipped != 0 {
		t.Errorf("skipped: got %d, want 0", skipped)
	}
	if notes[0].Observation != "initial paint" {
		t.Errorf("observation: got %q", notes[0].Observation)
	}
}

func TestLoad_LinesFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.jsonl")
	content := `{"elapsed": 0, "score": 6.5}` + "\n" + `{"elapsed": 300}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	notes, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("notes: got %d, want 2", len(notes))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
