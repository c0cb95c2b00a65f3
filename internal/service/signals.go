package service

import (
	"math"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// Focus controller bounds and health floor.
const (
	FocusMinDepth          = 2
	FocusMaxDepth          = 10
	FocusEntropyWeight     = 0.6
	FocusDissonanceWeight  = 0.4
	ThrottleTemperatureMin = 0.1
	ThrottleTemperatureMax = 0.6

	HealthFloor = 0.2

	// Concepts weighted at or below this are dropped from the chord.
	conceptMuteThreshold = 0.05
)

// ComputeHealth is 1 - (0.6*entropy + 0.4*dissonance), floored.
func ComputeHealth(entropy, dissonance float64) float64 {
	raw := 1 - (0.6*entropy + 0.4*dissonance)
	return math.Max(HealthFloor, math.Min(1, raw))
}

// FocusPlan is the depth and temperature scaling chosen for a run.
type FocusPlan struct {
	Depth            int
	TemperatureScale float64
}

// PlanFocus maps difficulty onto a reasoning depth, then bends the
// temperature scale through a continued fraction of that depth.
func PlanFocus(entropy, dissonance float64) FocusPlan {
	difficulty := FocusEntropyWeight*entropy + FocusDissonanceWeight*dissonance
	depth := int(FocusMinDepth + difficulty*(FocusMaxDepth-FocusMinDepth))
	depth = max(FocusMinDepth, min(FocusMaxDepth, depth))

	cf := continuedFraction(depth)
	scaled := math.Min(1, cf/float64(depth+1))
	return FocusPlan{
		Depth:            depth,
		TemperatureScale: lerp(ThrottleTemperatureMax, ThrottleTemperatureMin, scaled),
	}
}

// continuedFraction evaluates 1 + 1/(1 + 1/(2 + ... 1/(depth + 1))).
func continuedFraction(depth int) float64 {
	x := 1.0
	for n := depth; n > 0; n-- {
		x = 1 + 1/(float64(n)+x)
	}
	return x
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// HeuristicSignalGenerator seeds Signals from the query analysis alone.
type HeuristicSignalGenerator struct {
	concepts *ConceptRegistry
}

func NewHeuristicSignalGenerator(concepts *ConceptRegistry) *HeuristicSignalGenerator {
	if concepts == nil {
		concepts = NewConceptRegistry()
	}
	return &HeuristicSignalGenerator{concepts: concepts}
}

var _ domain.SignalGenerator = (*HeuristicSignalGenerator)(nil)

func (g *HeuristicSignalGenerator) Generate(a domain.QueryAnalysis, controls *domain.PipelineControls, bias *domain.SteeringBias) domain.Signals {
	ctl := domain.DefaultControls()
	if controls != nil {
		ctl = *controls
	}

	concepts := g.activeConcepts(a, ctl.ConceptWeights)
	complexity := domain.Clamp01(a.Complexity + 0.3*ctl.ComplexityBias)

	// Topology proxies: entities are the components, complete harmony sets the loops.
	betti0 := float64(len(a.Entities))
	betti1 := float64(g.concepts.HarmonyHits(concepts))
	persistence := math.Log1p(betti0 + betti1)
	normPersistence := math.Min(1, persistence/3)

	entropy := 0.15 + 0.5*complexity + 0.25*normPersistence
	if a.IsPhilosophical {
		entropy += 0.1
	}
	if a.QuestionType == domain.QuestionSpeculative {
		entropy += 0.1
	}
	entropy = domain.Clamp01(entropy)

	ruleDissonance, _ := g.concepts.Dissonance(concepts)
	harmony := g.concepts.HarmonyKeyDistance(concepts)
	dissonance := ruleDissonance + 0.5*harmony
	if a.HasNormativeClaims {
		dissonance += 0.1
	}
	if a.EmotionalValence == domain.ValenceMixed {
		dissonance += 0.1
	}
	dissonance = domain.Clamp01(dissonance)

	confidence := 0.75 - 0.35*complexity - 0.15*entropy
	if a.IsEmpirical {
		confidence += 0.1
	}
	if a.IsPhilosophical {
		confidence -= 0.1
	}
	confidence += 0.05 * (ctl.BayesianPriorStrength - domain.DefaultBayesianPriorStrength)

	risk := 0.1
	if a.HasSafetyKeywords {
		risk += 0.5
	}
	if a.Domain == domain.DomainMedical {
		risk += 0.15
	}
	if a.HasNormativeClaims {
		risk += 0.05
	}

	s := domain.Signals{
		Confidence:         confidence,
		Entropy:            entropy,
		Dissonance:         dissonance,
		RiskScore:          risk,
		Betti0:             betti0,
		Betti1:             betti1,
		PersistenceEntropy: persistence,
		MaxPersistence:     normPersistence,
		ActiveConcepts:     concepts,
		ChordProduct:       g.concepts.ChordProduct(concepts),
		HarmonyKeyDistance: harmony,
	}

	if bias != nil && bias.Strength != 0 {
		s.Confidence += bias.Confidence * bias.Strength
		s.Entropy += bias.Entropy * bias.Strength
		s.Dissonance += bias.Dissonance * bias.Strength
		s.RiskScore += bias.Risk * bias.Strength
	}
	s = s.Clamp()

	s.HealthScore = ComputeHealth(s.Entropy, s.Dissonance)
	if bias != nil && bias.Strength != 0 {
		s.HealthScore = domain.Clamp01(s.HealthScore + bias.Health*bias.Strength)
	}
	s.SafetyState = domain.SafetyStateForRisk(s.RiskScore)

	plan := PlanFocus(s.Entropy, s.Dissonance)
	s.FocusDepth = float64(plan.Depth)
	s.TemperatureScale = plan.TemperatureScale
	if ctl.FocusDepthOverride != nil {
		s.FocusDepth = *ctl.FocusDepthOverride
	}
	if ctl.TemperatureOverride != nil {
		s.TemperatureScale = *ctl.TemperatureOverride
	}

	return s.Clamp()
}

func (g *HeuristicSignalGenerator) activeConcepts(a domain.QueryAnalysis, weights map[string]float64) []string {
	text := a.CoreQuestion + " " + strings.Join(a.Entities, " ")
	detected := g.concepts.Detect(text)
	out := make([]string, 0, len(detected))
	for _, c := range detected {
		if w, ok := weights[c]; ok && w <= conceptMuteThreshold {
			continue
		}
		out = append(out, c)
	}
	return out
}

// stageFractions is the share of the target signals a stage has built up
// by the time it completes.
var stageFractions = map[domain.Stage]float64{
	domain.StageTriage:       0.15,
	domain.StageMemory:       0.25,
	domain.StageRouting:      0.35,
	domain.StageStatistical:  0.5,
	domain.StageCausal:       0.6,
	domain.StageMetaAnalysis: 0.7,
	domain.StageBayesian:     0.85,
	domain.StageSynthesis:    0.9,
	domain.StageAdversarial:  0.95,
	domain.StageCalibration:  1,
}

// ProgressPatch is the signals patch emitted when stage completes: the
// fields the stage is responsible for, scaled by its fraction of target.
func ProgressPatch(stage domain.Stage, target domain.Signals) domain.SignalPatch {
	f := stageFractions[stage]
	scaled := func(v float64) *float64 { return domain.Float(v * f) }

	switch stage {
	case domain.StageTriage:
		safety := target.SafetyState
		return domain.SignalPatch{
			RiskScore:   domain.Float(target.RiskScore),
			SafetyState: &safety,
			Confidence:  scaled(target.Confidence),
		}
	case domain.StageMemory:
		return domain.SignalPatch{
			ActiveConcepts: append([]string{}, target.ActiveConcepts...),
			Entropy:        scaled(target.Entropy),
		}
	case domain.StageRouting:
		return domain.SignalPatch{
			FocusDepth:       domain.Float(target.FocusDepth),
			TemperatureScale: domain.Float(target.TemperatureScale),
			Confidence:       scaled(target.Confidence),
		}
	case domain.StageStatistical:
		return domain.SignalPatch{
			Confidence: scaled(target.Confidence),
			Entropy:    scaled(target.Entropy),
		}
	case domain.StageCausal:
		return domain.SignalPatch{
			Dissonance: scaled(target.Dissonance),
			Confidence: scaled(target.Confidence),
		}
	case domain.StageMetaAnalysis:
		return domain.SignalPatch{
			PersistenceEntropy: scaled(target.PersistenceEntropy),
			MaxPersistence:     scaled(target.MaxPersistence),
			Entropy:            scaled(target.Entropy),
			Dissonance:         scaled(target.Dissonance),
		}
	case domain.StageBayesian, domain.StageSynthesis:
		return domain.SignalPatch{
			Confidence:  scaled(target.Confidence),
			HealthScore: scaled(target.HealthScore),
		}
	default:
		return domain.PatchFrom(target)
	}
}
