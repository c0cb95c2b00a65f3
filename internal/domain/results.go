package domain

import (
	"fmt"
	"strings"
)

// ObjectShape names one of the fixed structured results requested from the model.
type ObjectShape string

const (
	ShapeLaymanSummary   ObjectShape = "layman_summary"
	ShapeReflection      ObjectShape = "reflection"
	ShapeArbitration     ObjectShape = "arbitration"
	ShapeTruthAssessment ObjectShape = "truth_assessment"
	ShapeCurriculum      ObjectShape = "curriculum"
)

// Validator is implemented by every structured result shape.
type Validator interface {
	Validate() error
}

// LaymanSummary is the plain-language explanation of the analysis.
type LaymanSummary struct {
	WhatWasTried          string `json:"what_was_tried"`
	WhatIsLikelyTrue      string `json:"what_is_likely_true"`
	ConfidenceExplanation string `json:"confidence_explanation"`
	WhatCouldChange       string `json:"what_could_change"`
	WhoShouldTrust        string `json:"who_should_trust"`
}

func (l LaymanSummary) Validate() error {
	if strings.TrimSpace(l.WhatIsLikelyTrue) == "" {
		return fmt.Errorf("%w: layman summary missing what_is_likely_true", ErrMalformedObject)
	}
	return nil
}

// Reflection is the model's self-critique of its own analysis.
type Reflection struct {
	SelfCriticalQuestions []string `json:"self_critical_questions"`
	Adjustments           []string `json:"adjustments"`
	LeastDefensibleClaim  string   `json:"least_defensible_claim"`
	PrecisionCheck        string   `json:"precision_check"`
	Fallback              bool     `json:"fallback,omitempty"`
}

func (r Reflection) Validate() error {
	if r.SelfCriticalQuestions == nil && r.Adjustments == nil && r.LeastDefensibleClaim == "" {
		return fmt.Errorf("%w: reflection is empty", ErrMalformedObject)
	}
	return nil
}

// EmptyReflection is the placeholder used when the reflection call fails.
func EmptyReflection() Reflection {
	return Reflection{
		SelfCriticalQuestions: []string{},
		Adjustments:           []string{},
		Fallback:              true,
	}
}

// EngineVote is one analytical engine's position in an arbitration.
type EngineVote struct {
	Engine     string  `json:"engine"`
	Position   string  `json:"position"`
	Confidence float64 `json:"confidence"`
	KeyInsight string  `json:"key_insight,omitempty"`
}

// Arbitration reconciles the positions of the analytical engines.
type Arbitration struct {
	Votes         []EngineVote `json:"votes"`
	Consensus     bool         `json:"consensus"`
	Disagreements []string     `json:"disagreements"`
	Resolution    string       `json:"resolution"`
	Fallback      bool         `json:"fallback,omitempty"`
}

func (a Arbitration) Validate() error {
	if strings.TrimSpace(a.Resolution) == "" {
		return fmt.Errorf("%w: arbitration missing resolution", ErrMalformedObject)
	}
	for i, v := range a.Votes {
		if v.Confidence < 0 || v.Confidence > 1 {
			return fmt.Errorf("%w: vote %d confidence %v out of range", ErrMalformedObject, i, v.Confidence)
		}
	}
	return nil
}

// EmptyArbitration is the placeholder used when the arbitration call fails.
func EmptyArbitration() Arbitration {
	return Arbitration{
		Votes:         []EngineVote{},
		Disagreements: []string{},
		Fallback:      true,
	}
}

// TruthAssessment is the calibrated judgement of how likely the answer is true.
type TruthAssessment struct {
	OverallTruthLikelihood float64        `json:"overall_truth_likelihood"`
	SignalInterpretation   string         `json:"signal_interpretation"`
	Weaknesses             []string       `json:"weaknesses"`
	Improvements           []string       `json:"improvements"`
	BlindSpots             []string       `json:"blind_spots"`
	ConfidenceCalibration  string         `json:"confidence_calibration"`
	DataVsModelBalance     string         `json:"data_vs_model_balance"`
	RecommendedActions     []string       `json:"recommended_actions"`
	ConfidenceInterval     [2]float64     `json:"confidence_interval"`
	Band                   ConfidenceBand `json:"band,omitempty"`
	Fallback               bool           `json:"fallback,omitempty"`
}

func (t TruthAssessment) Validate() error {
	if t.OverallTruthLikelihood < 0 || t.OverallTruthLikelihood > 1 {
		return fmt.Errorf("%w: truth likelihood %v out of range", ErrMalformedObject, t.OverallTruthLikelihood)
	}
	if strings.TrimSpace(t.SignalInterpretation) == "" {
		return fmt.Errorf("%w: truth assessment missing signal_interpretation", ErrMalformedObject)
	}
	return nil
}

// StoneDraft is one stepping stone as authored by the teacher model.
type StoneDraft struct {
	Question           string  `json:"question"`
	TargetSkill        string  `json:"target_skill"`
	RelativeDifficulty float64 `json:"relative_difficulty"`
	StructuralQuality  float64 `json:"structural_quality"`
}

// CurriculumDraft is the raw teacher output before IDs and ordering are assigned.
type CurriculumDraft struct {
	Rationale string       `json:"rationale"`
	Stones    []StoneDraft `json:"stones"`
}

func (c CurriculumDraft) Validate() error {
	if len(c.Stones) == 0 {
		return fmt.Errorf("%w: curriculum has no stones", ErrMalformedObject)
	}
	for i, s := range c.Stones {
		if strings.TrimSpace(s.Question) == "" {
			return fmt.Errorf("%w: stone %d has no question", ErrMalformedObject, i)
		}
		if s.RelativeDifficulty < 0 || s.RelativeDifficulty > 1 {
			return fmt.Errorf("%w: stone %d difficulty %v out of range", ErrMalformedObject, i, s.RelativeDifficulty)
		}
	}
	return nil
}
