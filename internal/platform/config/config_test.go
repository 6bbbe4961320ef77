package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonussim/internal/domain/bonus"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ADDR", "")
	t.Setenv("SINK_TIMEOUT", "")
	t.Setenv("JOB_QUEUE_SIZE", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.SinkTimeout)
	assert.Equal(t, 128, cfg.JobQueueSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SINK_TIMEOUT", "soon")
	t.Setenv("JOB_QUEUE_SIZE", "many")
	t.Setenv("SINK_ASYNC", "yes please")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.SinkTimeout)
	assert.Equal(t, 128, cfg.JobQueueSize)
	assert.False(t, cfg.SinkAsync)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.MaxBodyBytes = 10
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.SheetsSpreadsheetID = "sheet"
	cfg.SheetsRange = " "
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Environment = "production"
	cfg.SheetsSpreadsheetID = "sheet"
	cfg.SheetsCredentialsFile = ""
	cfg.SheetsEndpoint = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadScoringDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	holder, err := LoadScoring("")
	require.NoError(t, err)
	scoring := holder.Get()
	assert.InDelta(t, 0.6, scoring.Weights.Numeric, 1e-9)
	assert.InDelta(t, 0.25, scoring.Weights.Behavioral, 1e-9)
	assert.InDelta(t, 0.15, scoring.Weights.Posture, 1e-9)
	assert.Equal(t, bonus.RoundingFloor, scoring.Rounding)

	minAdj, maxAdj := scoring.AdjustmentBounds()
	assert.Equal(t, "0.5", minAdj.String())
	assert.Equal(t, "1.5", maxAdj.String())
}

func TestLoadScoringFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yml")
	body := "scoring:\n  weights:\n    numeric: 0.5\n    behavioral: 0.3\n    posture: 0.2\n  rounding: nearest\n  adjustment:\n    min: 0\n    max: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	holder, err := LoadScoring(path)
	require.NoError(t, err)
	policy, err := holder.Get().Policy()
	require.NoError(t, err)
	assert.Equal(t, bonus.RoundingNearest, policy.Rounding)
	assert.Equal(t, "0.5", policy.NumericWeight.String())
	assert.InDelta(t, 2.0, holder.Get().Adjustment.Max, 1e-9)
}

func TestLoadScoringEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BONUS_SCORING_ROUNDING", "nearest")

	holder, err := LoadScoring("")
	require.NoError(t, err)
	assert.Equal(t, bonus.RoundingNearest, holder.Get().Rounding)
}

func TestLoadScoringRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  rounding: ceil\n"), 0o600))
	_, err := LoadScoring(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  adjustment:\n    min: 2\n    max: 1\n"), 0o600))
	_, err = LoadScoring(path)
	assert.Error(t, err)
}

func TestLoadScoringMissingExplicitFile(t *testing.T) {
	_, err := LoadScoring(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
