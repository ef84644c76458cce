package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/arclabs561/notestream/internal/note"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Batches         []FixtureBatch          `json:"batches"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig carries the tunables a fixture may override. Zero fields
// fall back to package defaults.
type FixtureConfig struct {
	WindowSize          int64            `json:"window_size"`
	DecayFactor         float64          `json:"decay_factor"`
	ErraticismThreshold float64          `json:"erraticism_threshold"`
	Scales              map[string]int64 `json:"scales"`
	CacheMaxAgeMs       int64            `json:"cache_max_age_ms"`
	CountDeltaPct       float64          `json:"count_delta_pct"`
	MaxHistory          int              `json:"max_history"`
	AdaptationEnabled   bool             `json:"adaptation_enabled"`
}

// FixtureBatch mirrors replay.Batch with JSON tags. Notes use the same
// encoding as capture output, so batches can be cut from real streams.
type FixtureBatch struct {
	BatchID string      `json:"batch_id"`
	Notes   []note.Note `json:"notes"`
	Score   float64     `json:"score"`
	Issues  []string    `json:"issues"`
}

// FixtureExpectedResult captures the expected routing per batch.
type FixtureExpectedResult struct {
	BatchID  string `json:"batch_id"`
	Latency  string `json:"latency"`
	Activity string `json:"activity"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToBatch converts a FixtureBatch to a domain Batch.
func (fb *FixtureBatch) ToBatch() Batch {
	return Batch{
		BatchID: fb.BatchID,
		Notes:   fb.Notes,
		Score:   fb.Score,
		Issues:  fb.Issues,
	}
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig,
// filling unset fields from defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	config := DefaultReplayConfig()

	if fc.WindowSize > 0 {
		config.Manager.Temporal.WindowSize = fc.WindowSize
	}
	if fc.DecayFactor > 0 {
		config.Manager.Temporal.DecayFactor = fc.DecayFactor
	}
	if fc.ErraticismThreshold > 0 {
		config.Manager.Temporal.ErraticismThreshold = fc.ErraticismThreshold
	}
	config.Manager.MultiScale.Base = config.Manager.Temporal
	if len(fc.Scales) > 0 {
		config.Manager.MultiScale.Scales = fc.Scales
	}
	if fc.CacheMaxAgeMs > 0 {
		config.Manager.CacheMaxAge = time.Duration(fc.CacheMaxAgeMs) * time.Millisecond
	}
	if fc.CountDeltaPct > 0 {
		config.Manager.CountDeltaPct = fc.CountDeltaPct
	}
	if fc.MaxHistory > 0 {
		config.Decision.MaxHistory = fc.MaxHistory
	}
	config.Decision.AdaptationEnabled = fc.AdaptationEnabled

	return config
}

// #endregion fixture-loader
