package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

func TestDefaultInference_UnsetIsZero(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("INFERENCE_MODE", "")
	assert.True(t, DefaultInference().IsZero())
}

func TestDefaultInference_PicksProviderKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("LLM_MODEL", "claude-test")
	t.Setenv("INFERENCE_MODE", "")

	cfg := DefaultInference()
	assert.Equal(t, domain.InferenceAPI, cfg.Mode)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "sk-ant", cfg.APIKey)
	assert.Equal(t, "claude-test", cfg.Model)
}

func TestDefaultInference_LocalMode(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("INFERENCE_MODE", "LOCAL")
	t.Setenv("LLM_BASE_URL", "http://gpu:11434/v1")

	cfg := DefaultInference()
	assert.Equal(t, domain.InferenceLocal, cfg.Mode)
	assert.Equal(t, "http://gpu:11434/v1", cfg.BaseURL)
}

func TestLLMCallTimeout(t *testing.T) {
	t.Setenv("LLM_CALL_TIMEOUT", "")
	assert.Equal(t, 60*time.Second, LLMCallTimeout())

	t.Setenv("LLM_CALL_TIMEOUT", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, LLMCallTimeout())

	t.Setenv("LLM_CALL_TIMEOUT", "soon")
	assert.Equal(t, 60*time.Second, LLMCallTimeout())
}

func TestArchiveRetention(t *testing.T) {
	t.Setenv("SOAR_ARCHIVE_RETENTION_DAYS", "")
	assert.Zero(t, ArchiveRetention())

	t.Setenv("SOAR_ARCHIVE_RETENTION_DAYS", "30")
	assert.Equal(t, 30*24*time.Hour, ArchiveRetention())

	t.Setenv("SOAR_ARCHIVE_RETENTION_DAYS", "-1")
	assert.Zero(t, ArchiveRetention())

	t.Setenv("SOAR_ARCHIVE_EXPIRY_INTERVAL", "")
	assert.Equal(t, time.Hour, ArchiveExpiryInterval())
}

func TestLoadTuning_EmptyPath(t *testing.T) {
	tuning, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tuning)
}

func TestLoadTuning_OverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("PFC_TEST_TIMEOUT", "5s")
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	content := `
pipeline:
  call_timeout: ${PFC_TEST_TIMEOUT}
  stage_pause: 0s
soar:
  max_iterations: 4
reward:
  confidence: 0.7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, tuning.CallTimeout())
	assert.Equal(t, time.Duration(0), tuning.StagePause())
	assert.Equal(t, 4, tuning.SOAR.MaxIterations)
	assert.Equal(t, 3, tuning.SOAR.StonesPerCurriculum)
	assert.InDelta(t, 0.7, tuning.Reward.Confidence, 1e-9)
	assert.InDelta(t, 0.3, tuning.Reward.Entropy, 1e-9)
}

func TestLoadTuning_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  pacing_min: fast\n"), 0o600))

	_, err := LoadTuning(path)
	assert.Error(t, err)

	_, err = LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandEnv_UnsetIsEmpty(t *testing.T) {
	t.Setenv("PFC_SET", "x")
	assert.Equal(t, "a-x-", expandEnv("a-${PFC_SET}-${PFC_DEFINITELY_UNSET_VAR}"))
}
