package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Out: &buf})

	log.Info().Msg("below threshold")
	log.Warn().Msg("at threshold")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "at threshold") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestNew_UnknownLevelReadsAsInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "chatty", Out: &buf})

	log.Debug().Msg("debug line")
	log.Info().Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Errorf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, "info line") {
		t.Errorf("info line missing: %s", out)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Out: &buf})

	comp := Component(log, "temporal")
	comp.Info().Msg("tagged")

	out := buf.String()
	if !strings.Contains(out, `"component":"temporal"`) {
		t.Errorf("component field missing: %s", out)
	}
	if !strings.Contains(out, `"app":"notestream"`) {
		t.Errorf("app field missing: %s", out)
	}
}
