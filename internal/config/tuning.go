package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the presentation and loop constants that may be adjusted
// without a rebuild. Durations are Go duration strings ("250ms").
type Tuning struct {
	Pipeline PipelineTuning `yaml:"pipeline"`
	SOAR     SOARTuning     `yaml:"soar"`
	Reward   RewardTuning   `yaml:"reward"`
}

type PipelineTuning struct {
	CallTimeout string `yaml:"call_timeout"`
	StagePause  string `yaml:"stage_pause"`
	PacingMin   string `yaml:"pacing_min"`
	PacingMax   string `yaml:"pacing_max"`
}

type SOARTuning struct {
	MaxIterations         int     `yaml:"max_iterations"`
	StonesPerCurriculum   int     `yaml:"stones_per_curriculum"`
	SatisfactionThreshold float64 `yaml:"satisfaction_threshold"`
}

type RewardTuning struct {
	Confidence float64 `yaml:"confidence"`
	Entropy    float64 `yaml:"entropy"`
	Dissonance float64 `yaml:"dissonance"`
}

// DefaultTuning mirrors the built-in constants of the service package.
func DefaultTuning() Tuning {
	return Tuning{
		Pipeline: PipelineTuning{
			CallTimeout: "60s",
			StagePause:  "300ms",
			PacingMin:   "15ms",
			PacingMax:   "45ms",
		},
		SOAR: SOARTuning{
			MaxIterations:         2,
			StonesPerCurriculum:   3,
			SatisfactionThreshold: 0.15,
		},
		Reward: RewardTuning{
			Confidence: 0.5,
			Entropy:    0.3,
			Dissonance: 0.2,
		},
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references. Unset variables expand to "".
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

// LoadTuning reads path over DefaultTuning. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(raw))), &t); err != nil {
		return t, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks every duration parses and the loop sizes are positive.
func (t Tuning) Validate() error {
	for name, v := range map[string]string{
		"pipeline.call_timeout": t.Pipeline.CallTimeout,
		"pipeline.stage_pause":  t.Pipeline.StagePause,
		"pipeline.pacing_min":   t.Pipeline.PacingMin,
		"pipeline.pacing_max":   t.Pipeline.PacingMax,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if t.SOAR.MaxIterations < 1 || t.SOAR.StonesPerCurriculum < 1 {
		return fmt.Errorf("soar sizes must be positive")
	}
	if t.PacingMax() < t.PacingMin() {
		return fmt.Errorf("pipeline.pacing_max below pacing_min")
	}
	return nil
}

func (t Tuning) CallTimeout() time.Duration { return mustDuration(t.Pipeline.CallTimeout) }
func (t Tuning) StagePause() time.Duration  { return mustDuration(t.Pipeline.StagePause) }
func (t Tuning) PacingMin() time.Duration   { return mustDuration(t.Pipeline.PacingMin) }
func (t Tuning) PacingMax() time.Duration   { return mustDuration(t.Pipeline.PacingMax) }

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
