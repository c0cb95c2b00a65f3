package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// Deadbands: a dimension within this distance of its neutral value emits
// no directive.
const (
	ComplexityBiasDeadband  = 0.1
	IntensityDeadband       = 0.15
	ConceptWeightDeadband   = 0.05
	TemperatureDeadband     = 0.05
	BiasDeadband            = 0.1
	neutralTemperatureScale = 1.0

	steeringHeader = "## STEERING DIRECTIVES\nApply each block below as a procedure. Steps are mandatory and ordered."
)

// SteeringOptions is everything the composer reads.
type SteeringOptions struct {
	Controls         *domain.PipelineControls
	Bias             *domain.SteeringBias
	Overrides        *domain.SignalOverrides
	SOAR             *domain.SOARConfig
	Mode             domain.AnalyticalMode
	AnalyticsEnabled bool
	// PlannedFocusDepth is the depth the focus plan would pick on its own.
	// A depth override that rounds to it is not a deviation. Zero means
	// unknown, so any override counts.
	PlannedFocusDepth int
}

type directive struct {
	title string
	steps []string
}

func (d directive) render() string {
	var sb strings.Builder
	sb.WriteString("### ")
	sb.WriteString(d.title)
	for i, s := range d.steps {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, s)
	}
	return sb.String()
}

// ComposeSteering renders the directive blocks for opts. It returns "" when
// analytics are disabled or every dimension sits inside its deadband.
func ComposeSteering(opts SteeringOptions) string {
	if !opts.AnalyticsEnabled {
		return ""
	}

	var blocks []directive
	if opts.Controls != nil {
		blocks = append(blocks, controlDirectives(*opts.Controls, opts.PlannedFocusDepth)...)
	}
	if opts.Bias != nil {
		if d, ok := biasDirective(*opts.Bias); ok {
			blocks = append(blocks, d)
		}
	}
	if opts.Overrides != nil && !opts.Overrides.IsEmpty() {
		blocks = append(blocks, overrideDirective(*opts.Overrides))
	}
	if opts.SOAR != nil && opts.SOAR.Enabled {
		blocks = append(blocks, soarDirective(*opts.SOAR))
	}
	if opts.Mode == domain.ModeConversational {
		blocks = append(blocks, directive{
			title: "Conversational register",
			steps: []string{
				"Answer the question directly in the first two sentences.",
				"Use plain prose; no headings and no more than one short list.",
				"Mention at most the two most decision-relevant caveats.",
				"End with one sentence naming what would change the answer.",
			},
		})
	}

	if len(blocks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(blocks)+1)
	parts = append(parts, steeringHeader)
	for _, b := range blocks {
		parts = append(parts, b.render())
	}
	return strings.Join(parts, "\n\n")
}

func outside(v, neutral, band float64) bool {
	return math.Abs(v-neutral) > band
}

func controlDirectives(c domain.PipelineControls, plannedDepth int) []directive {
	var out []directive

	if outside(c.ComplexityBias, domain.DefaultComplexityBias, ComplexityBiasDeadband) {
		if c.ComplexityBias > 0 {
			out = append(out, directive{
				title: fmt.Sprintf("Depth expansion (bias %+.2f)", c.ComplexityBias),
				steps: []string{
					"Decompose the question into at least three sub-questions before answering any of them.",
					"For each sub-question, state the strongest competing explanation.",
					"Trace at least one second-order consequence of the main claim.",
					"Close with how the sub-answers combine, naming any that conflict.",
				},
			})
		} else {
			out = append(out, directive{
				title: fmt.Sprintf("Depth compression (bias %+.2f)", c.ComplexityBias),
				steps: []string{
					"Identify the single most load-bearing consideration.",
					"Answer using that consideration alone in no more than five sentences.",
					"Omit secondary caveats unless they reverse the conclusion.",
				},
			})
		}
	}

	if outside(c.AdversarialIntensity, domain.DefaultAdversarialIntensity, IntensityDeadband) {
		if c.AdversarialIntensity > domain.DefaultAdversarialIntensity {
			n := 2 + int(math.Round((c.AdversarialIntensity-1)*3))
			out = append(out, directive{
				title: fmt.Sprintf("Adversarial review (intensity %.2f)", c.AdversarialIntensity),
				steps: []string{
					fmt.Sprintf("After drafting, write %d objections a hostile expert would raise.", n),
					"For each objection, state whether it survives and why.",
					"Revise every claim an objection survives against.",
					"Report which claims changed.",
				},
			})
		} else {
			out = append(out, directive{
				title: fmt.Sprintf("Charitable reading (intensity %.2f)", c.AdversarialIntensity),
				steps: []string{
					"Interpret the available evidence in its most reasonable light.",
					"Raise an objection only if it would change the conclusion.",
				},
			})
		}
	}

	if outside(c.BayesianPriorStrength, domain.DefaultBayesianPriorStrength, IntensityDeadband) {
		if c.BayesianPriorStrength > domain.DefaultBayesianPriorStrength {
			out = append(out, directive{
				title: fmt.Sprintf("Strong priors (strength %.2f)", c.BayesianPriorStrength),
				steps: []string{
					"State the base rate or established consensus before looking at new findings.",
					"Treat any single new study as a modest update to that prior.",
					"Say explicitly how far the evidence moved you from the prior.",
				},
			})
		} else {
			out = append(out, directive{
				title: fmt.Sprintf("Weak priors (strength %.2f)", c.BayesianPriorStrength),
				steps: []string{
					"Reason primarily from the most direct evidence available.",
					"Flag where the established consensus may be outdated.",
					"Say explicitly where evidence overrides the conventional view.",
				},
			})
		}
	}

	if depth, ok := overriddenDepth(c.FocusDepthOverride, plannedDepth); ok {
		out = append(out, directive{
			title: fmt.Sprintf("Fixed reasoning depth (%d)", depth),
			steps: []string{
				fmt.Sprintf("Structure the analysis as exactly %d numbered reasoning steps.", depth),
				"Each step must depend on the previous one.",
			},
		})
	}

	if c.TemperatureOverride != nil && outside(*c.TemperatureOverride, neutralTemperatureScale, TemperatureDeadband) {
		if *c.TemperatureOverride > neutralTemperatureScale {
			out = append(out, directive{
				title: fmt.Sprintf("Exploratory framing (temperature %.2f)", *c.TemperatureOverride),
				steps: []string{
					"List at least two unconventional hypotheses before the mainstream one.",
					"Rate each hypothesis as plausible, possible or unlikely.",
				},
			})
		} else {
			out = append(out, directive{
				title: fmt.Sprintf("Conservative framing (temperature %.2f)", *c.TemperatureOverride),
				steps: []string{
					"Restrict claims to those with direct support.",
					"Mark every inference beyond the evidence as speculative.",
				},
			})
		}
	}

	if len(c.ConceptWeights) > 0 {
		names := make([]string, 0, len(c.ConceptWeights))
		for name, w := range c.ConceptWeights {
			if outside(w, domain.DefaultConceptWeight, ConceptWeightDeadband) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if len(names) > 0 {
			steps := make([]string, 0, len(names)+1)
			for _, name := range names {
				w := c.ConceptWeights[name]
				switch {
				case w <= conceptMuteThreshold:
					steps = append(steps, fmt.Sprintf("Do not rely on %q in the argument.", name))
				case w > domain.DefaultConceptWeight:
					steps = append(steps, fmt.Sprintf("Give %q a dedicated paragraph (weight %.2f).", name, w))
				default:
					steps = append(steps, fmt.Sprintf("Mention %q only in passing (weight %.2f).", name, w))
				}
			}
			steps = append(steps, "Keep every other concept at its usual emphasis.")
			out = append(out, directive{title: "Concept emphasis", steps: steps})
		}
	}

	return out
}

// overriddenDepth returns the clamped override depth and whether it differs
// from planned.
func overriddenDepth(override *float64, planned int) (int, bool) {
	if override == nil {
		return 0, false
	}
	depth := int(math.Round(*override))
	depth = max(domain.MinFocusDepth, min(domain.MaxFocusDepth, depth))
	return depth, depth != planned
}

func biasDirective(b domain.SteeringBias) (directive, bool) {
	var steps []string
	add := func(name string, delta float64, up, down string) {
		eff := delta * b.Strength
		if math.Abs(eff) <= BiasDeadband {
			return
		}
		if eff > 0 {
			steps = append(steps, fmt.Sprintf("%s (%s %+.2f).", up, name, eff))
		} else {
			steps = append(steps, fmt.Sprintf("%s (%s %+.2f).", down, name, eff))
		}
	}
	add("confidence", b.Confidence, "Commit to a single best-supported conclusion", "Present the conclusion as provisional and list what is unresolved")
	add("entropy", b.Entropy, "Survey the full range of positions before narrowing", "Converge quickly on the dominant explanation")
	add("dissonance", b.Dissonance, "Surface tensions between sources explicitly", "Reconcile apparent conflicts before presenting them")
	add("health", b.Health, "Keep the argument structure linear and checkable", "Flag the weakest link in the argument chain")
	add("risk", b.Risk, "Lead with safety-relevant caveats", "Keep caveats proportionate to the actual risk")
	if len(steps) == 0 {
		return directive{}, false
	}

	title := "Learned bias"
	if b.Source != "" {
		title += " (" + b.Source + ")"
	}
	return directive{title: title, steps: steps}, true
}

func overrideDirective(o domain.SignalOverrides) directive {
	var steps []string
	pin := func(name string, v *float64) {
		if v != nil {
			steps = append(steps, fmt.Sprintf("Treat %s as fixed at %.2f when judging how strongly to state claims.", name, *v))
		}
	}
	pin("confidence", o.Confidence)
	pin("entropy", o.Entropy)
	pin("dissonance", o.Dissonance)
	pin("health", o.Health)
	pin("risk", o.Risk)
	return directive{title: "Pinned signals", steps: steps}
}

func soarDirective(c domain.SOARConfig) directive {
	steps := []string{
		"Before the final answer, name the sub-skill the question depends on most.",
		"Solve one simpler version of the question that exercises that sub-skill.",
		"Carry the method, not the answer, from the simpler version into the full analysis.",
	}
	if c.ContradictionDetection {
		steps = append(steps, "List any two of your own claims that cannot both be true, then resolve them.")
	}
	return directive{title: "Stepping-stone reasoning", steps: steps}
}
