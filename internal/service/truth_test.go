package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

func TestUncertaintyBounds(t *testing.T) {
	tests := []struct {
		name       string
		likelihood float64
		dissonance float64
		want       [2]float64
	}{
		{"calm", 0.8, 0, [2]float64{0.6, 1.0}},
		{"moderate dissonance widens", 0.8, 0.6, [2]float64{0.56, 1.0}},
		{"high dissonance widens more", 0.8, 0.9, [2]float64{0.5, 1.0}},
		{"low likelihood clamps at zero", 0.2, 0, [2]float64{0, 1.0}},
		{"certain", 1, 0, [2]float64{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UncertaintyBounds(tt.likelihood, tt.dissonance)
			assert.InDelta(t, tt.want[0], got[0], 1e-9)
			assert.InDelta(t, tt.want[1], got[1], 1e-9)
			assert.LessOrEqual(t, got[0], tt.likelihood)
			assert.GreaterOrEqual(t, got[1], tt.likelihood)
		})
	}
}

func TestHeuristicTruthAssessment_Strong(t *testing.T) {
	s := domain.Signals{Confidence: 0.85, Entropy: 0.2, Dissonance: 0.1, HealthScore: 0.9, SafetyState: domain.SafetyGreen}

	got := HeuristicTruthAssessment(s)

	assert.True(t, got.Fallback)
	assert.Greater(t, got.OverallTruthLikelihood, 0.7)
	assert.Empty(t, got.Weaknesses)
	assert.NotNil(t, got.Weaknesses)
	assert.NotNil(t, got.BlindSpots)
	assert.NotEmpty(t, got.RecommendedActions)
	assert.LessOrEqual(t, got.ConfidenceInterval[0], got.OverallTruthLikelihood)
	assert.GreaterOrEqual(t, got.ConfidenceInterval[1], got.OverallTruthLikelihood)
	assert.Contains(t, got.SignalInterpretation, "confidence 0.85")
	assert.Equal(t, domain.BandEstablished, got.Band)
}

func TestHeuristicTruthAssessment_Weak(t *testing.T) {
	s := domain.Signals{Confidence: 0.3, Entropy: 0.8, Dissonance: 0.7, HealthScore: 0.3, RiskScore: 0.8, SafetyState: domain.SafetyRed}

	got := HeuristicTruthAssessment(s)

	assert.Less(t, got.OverallTruthLikelihood, 0.35)
	assert.Equal(t, domain.BandSpeculative, got.Band)
	assert.Len(t, got.Weaknesses, 3)
	assert.Len(t, got.Improvements, 2)
	assert.Len(t, got.BlindSpots, 2)
	assert.Len(t, got.RecommendedActions, 2)
}

func TestHeuristicTruthAssessment_SafetyPenalty(t *testing.T) {
	base := domain.Signals{Confidence: 0.6, Entropy: 0.4, Dissonance: 0.3, HealthScore: 0.7}

	green := base
	green.SafetyState = domain.SafetyGreen
	red := base
	red.SafetyState = domain.SafetyRed

	assert.InDelta(t, 0.1,
		HeuristicTruthAssessment(green).OverallTruthLikelihood-HeuristicTruthAssessment(red).OverallTruthLikelihood, 1e-9)
}

func TestHeuristicTruthAssessment_Calibration(t *testing.T) {
	over := HeuristicTruthAssessment(domain.Signals{Confidence: 0.95, Entropy: 0.9, Dissonance: 0.9, HealthScore: 0.1})
	assert.Contains(t, over.ConfidenceCalibration, "overconfident")

	under := HeuristicTruthAssessment(domain.Signals{Confidence: 0.1, Entropy: 0, Dissonance: 0, HealthScore: 1})
	assert.Contains(t, under.ConfidenceCalibration, "underconfident")
}
