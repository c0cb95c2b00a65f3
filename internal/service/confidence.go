package service

import (
	"context"
	"math"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultMaxConfidence = 0.99
	DefaultMinConfidence = 0.01

	// AbsorbLogOddsScale converts a curriculum's net gain into a log-odds
	// shift of confidence.
	AbsorbLogOddsScale = 2.0
	// AbsorbDecayLambda discounts every iteration after the first.
	AbsorbDecayLambda = 0.35
	// stoneQualityNeutral is the structural quality that neither helps nor hurts.
	stoneQualityNeutral = 0.5
	// stoneDifficultySweetSpot is the relative difficulty that transfers best.
	stoneDifficultySweetSpot = 0.6
)

func Logit(p float64) float64 {
	p = clampConfidence(p)
	return math.Log(p / (1 - p))
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// ApplyLogOddsDelta moves confidence by delta in log-odds space, so updates
// near 0 or 1 are damped.
func ApplyLogOddsDelta(confidence, delta float64) float64 {
	return clampConfidence(Sigmoid(Logit(confidence) + delta))
}

func clampConfidence(p float64) float64 {
	if p < DefaultMinConfidence {
		return DefaultMinConfidence
	}
	if p > DefaultMaxConfidence {
		return DefaultMaxConfidence
	}
	return p
}

// Absorber applies a curriculum to the student and reports the resulting
// signals. The pipeline only needs before/after signals to score a curriculum.
type Absorber interface {
	Absorb(ctx context.Context, analysis domain.QueryAnalysis, before domain.Signals, c domain.Curriculum) (domain.Signals, error)
}

// HeuristicAbsorber estimates the effect of a curriculum from its stones:
// well-posed stones near the difficulty sweet spot raise confidence and lower
// entropy and dissonance; poor stones do the opposite. Later iterations are
// discounted.
type HeuristicAbsorber struct {
	logger *zap.Logger

	LogOddsScale float64
	DecayLambda  float64
}

func NewHeuristicAbsorber(logger *zap.Logger) *HeuristicAbsorber {
	return &HeuristicAbsorber{
		logger:       logger,
		LogOddsScale: AbsorbLogOddsScale,
		DecayLambda:  AbsorbDecayLambda,
	}
}

func (a *HeuristicAbsorber) Absorb(ctx context.Context, _ domain.QueryAnalysis, before domain.Signals, c domain.Curriculum) (domain.Signals, error) {
	if err := ctx.Err(); err != nil {
		return before, err
	}

	gain := a.Gain(c)
	after := before
	after.Confidence = ApplyLogOddsDelta(before.Confidence, a.LogOddsScale*gain)
	after.Entropy = before.Entropy - 0.5*gain
	after.Dissonance = before.Dissonance - 0.3*gain
	after = after.Clamp()
	after.HealthScore = ComputeHealth(after.Entropy, after.Dissonance)

	a.logger.Debug("curriculum absorbed",
		zap.String("curriculum_id", c.ID),
		zap.Int("iteration", c.Iteration),
		zap.Float64("gain", gain),
		zap.Float64("old_confidence", before.Confidence),
		zap.Float64("new_confidence", after.Confidence))

	return after, nil
}

// Gain is the mean per-stone contribution, discounted by iteration.
func (a *HeuristicAbsorber) Gain(c domain.Curriculum) float64 {
	if len(c.Stones) == 0 {
		return 0
	}

	var sum float64
	for _, s := range c.Stones {
		fit := 1 - math.Abs(s.RelativeDifficulty-stoneDifficultySweetSpot)
		sum += (s.StructuralQuality - stoneQualityNeutral) * fit
	}
	mean := sum / float64(len(c.Stones))

	decay := math.Exp(-a.DecayLambda * float64(max(0, c.Iteration-1)))
	return mean * decay
}
