package service

import (
	"fmt"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// UncertaintyBounds spreads 1-likelihood around likelihood, widened when
// the evidence disagrees with itself.
func UncertaintyBounds(likelihood, dissonance float64) [2]float64 {
	uncertainty := 1 - likelihood
	switch {
	case dissonance > 0.75:
		uncertainty *= 1.5
	case dissonance > 0.5:
		uncertainty *= 1.2
	}
	return [2]float64{
		domain.Clamp01(likelihood - uncertainty),
		domain.Clamp01(likelihood + uncertainty),
	}
}

// HeuristicTruthAssessment judges the answer from signals alone. It is the
// calibration fallback and never fails.
func HeuristicTruthAssessment(s domain.Signals) domain.TruthAssessment {
	s = s.Clamp()

	likelihood := 0.5*s.Confidence + 0.2*s.HealthScore + 0.15*(1-s.Entropy) + 0.15*(1-s.Dissonance)
	switch s.SafetyState {
	case domain.SafetyRed:
		likelihood -= 0.1
	case domain.SafetyOrange:
		likelihood -= 0.05
	}
	likelihood = domain.Clamp01(likelihood)

	var weaknesses, improvements, blind []string
	if s.Entropy > 0.6 {
		weaknesses = append(weaknesses, fmt.Sprintf("Competing explanations remain open (entropy %.2f).", s.Entropy))
		improvements = append(improvements, "Narrow the question or gather evidence that separates the leading explanations.")
	}
	if s.Dissonance > 0.5 {
		weaknesses = append(weaknesses, fmt.Sprintf("Sources or concepts pull in different directions (dissonance %.2f).", s.Dissonance))
		improvements = append(improvements, "Reconcile the conflicting findings before relying on the conclusion.")
	}
	if s.HealthScore < 0.5 {
		weaknesses = append(weaknesses, fmt.Sprintf("The reasoning chain is fragile (health %.2f).", s.HealthScore))
	}
	if s.Confidence < 0.4 {
		blind = append(blind, "Evidence that would directly test the main claim may be missing.")
	}
	if s.SafetyState.Level() >= domain.SafetyOrange.Level() {
		blind = append(blind, "Safety-relevant consequences deserve expert review.")
	}

	calibration := "well calibrated"
	switch {
	case s.Confidence-likelihood > 0.15:
		calibration = "overconfident relative to supporting signals"
	case likelihood-s.Confidence > 0.15:
		calibration = "underconfident relative to supporting signals"
	}

	actions := []string{"Check the primary sources behind the strongest claim."}
	if s.RiskScore >= 0.5 {
		actions = append(actions, "Consult a qualified professional before acting on this.")
	}

	return domain.TruthAssessment{
		OverallTruthLikelihood: likelihood,
		SignalInterpretation: fmt.Sprintf("Computed from signals: confidence %.2f, entropy %.2f, dissonance %.2f, health %.2f, safety %s.",
			s.Confidence, s.Entropy, s.Dissonance, s.HealthScore, s.SafetyState),
		Weaknesses:            nonNil(weaknesses),
		Improvements:          nonNil(improvements),
		BlindSpots:            nonNil(blind),
		ConfidenceCalibration: calibration,
		DataVsModelBalance:    "No model judgement was available; this assessment uses pipeline signals only.",
		RecommendedActions:    actions,
		ConfidenceInterval:    UncertaintyBounds(likelihood, s.Dissonance),
		Band:                  domain.BandFor(likelihood),
		Fallback:              true,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
