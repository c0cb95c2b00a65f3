package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

func defaultSteering() SteeringOptions {
	controls := domain.DefaultControls()
	soar := domain.DefaultSOARConfig()
	return SteeringOptions{
		Controls:         &controls,
		Bias:             &domain.SteeringBias{},
		Overrides:        &domain.SignalOverrides{},
		SOAR:             &soar,
		Mode:             domain.ModeDeep,
		AnalyticsEnabled: true,
	}
}

func TestComposeSteering_DefaultsAreEmpty(t *testing.T) {
	assert.Equal(t, "", ComposeSteering(defaultSteering()))
	assert.Equal(t, "", ComposeSteering(SteeringOptions{AnalyticsEnabled: true}))
}

func TestComposeSteering_InsideDeadbandIsEmpty(t *testing.T) {
	opts := defaultSteering()
	opts.Controls.ComplexityBias = 0.08
	opts.Controls.AdversarialIntensity = 1.1
	opts.Controls.BayesianPriorStrength = 0.9
	opts.Controls.TemperatureOverride = domain.Float(1.03)
	opts.Controls.ConceptWeights = map[string]float64{"evidence": 1.04}
	opts.Bias = &domain.SteeringBias{Confidence: 0.5, Strength: 0.1}

	assert.Equal(t, "", ComposeSteering(opts))
}

func TestComposeSteering_SingleDeviationEmits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SteeringOptions)
		want   string
	}{
		{"complexity up", func(o *SteeringOptions) { o.Controls.ComplexityBias = 0.5 }, "Depth expansion"},
		{"complexity down", func(o *SteeringOptions) { o.Controls.ComplexityBias = -0.5 }, "Depth compression"},
		{"adversarial up", func(o *SteeringOptions) { o.Controls.AdversarialIntensity = 1.8 }, "Adversarial review"},
		{"adversarial down", func(o *SteeringOptions) { o.Controls.AdversarialIntensity = 0.3 }, "Charitable reading"},
		{"strong priors", func(o *SteeringOptions) { o.Controls.BayesianPriorStrength = 1.6 }, "Strong priors"},
		{"weak priors", func(o *SteeringOptions) { o.Controls.BayesianPriorStrength = 0.4 }, "Weak priors"},
		{"focus depth", func(o *SteeringOptions) { o.Controls.FocusDepthOverride = domain.Float(6) }, "exactly 6 numbered"},
		{"temperature", func(o *SteeringOptions) { o.Controls.TemperatureOverride = domain.Float(1.5) }, "Exploratory framing"},
		{"concept", func(o *SteeringOptions) { o.Controls.ConceptWeights = map[string]float64{"bias": 1.6} }, `"bias"`},
		{"learned bias", func(o *SteeringOptions) {
			o.Bias = &domain.SteeringBias{Confidence: -0.5, Strength: 0.8, Source: "feedback"}
		}, "Learned bias (feedback)"},
		{"override", func(o *SteeringOptions) { o.Overrides.Risk = domain.Float(0.9) }, "risk as fixed at 0.90"},
		{"soar", func(o *SteeringOptions) { o.SOAR.Enabled = true }, "Stepping-stone reasoning"},
		{"conversational", func(o *SteeringOptions) { o.Mode = domain.ModeConversational }, "Conversational register"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultSteering()
			tt.mutate(&opts)

			got := ComposeSteering(opts)
			assert.True(t, strings.HasPrefix(got, "## STEERING DIRECTIVES"))
			assert.Contains(t, got, tt.want)
			assert.Contains(t, got, "\n1. ", "directives are numbered procedures")
			assert.Equal(t, 1, strings.Count(got, "### "), "exactly one block")
		})
	}
}

func TestComposeSteering_FocusDepthMatchingPlanIsEmpty(t *testing.T) {
	opts := defaultSteering()
	opts.PlannedFocusDepth = 6

	opts.Controls.FocusDepthOverride = domain.Float(6.2)
	assert.Equal(t, "", ComposeSteering(opts))

	opts.Controls.FocusDepthOverride = domain.Float(7)
	assert.Contains(t, ComposeSteering(opts), "exactly 7 numbered")

	opts.PlannedFocusDepth = 0
	opts.Controls.FocusDepthOverride = domain.Float(6)
	assert.Contains(t, ComposeSteering(opts), "exactly 6 numbered", "unknown plan treats any override as a deviation")
}

func TestComposeSteering_AnalyticsDisabled(t *testing.T) {
	opts := defaultSteering()
	opts.Controls.ComplexityBias = 1
	opts.SOAR.Enabled = true
	opts.Mode = domain.ModeConversational
	opts.AnalyticsEnabled = false

	assert.Equal(t, "", ComposeSteering(opts))
}

func TestComposeSteering_MultipleBlocksInOrder(t *testing.T) {
	opts := defaultSteering()
	opts.Controls.ComplexityBias = 0.7
	opts.Controls.AdversarialIntensity = 2
	opts.SOAR.Enabled = true
	opts.SOAR.ContradictionDetection = true

	got := ComposeSteering(opts)
	assert.Equal(t, 3, strings.Count(got, "### "))
	assert.Less(t, strings.Index(got, "Depth expansion"), strings.Index(got, "Adversarial review"))
	assert.Contains(t, got, "cannot both be true")
	assert.Contains(t, got, "write 5 objections")
}

func TestComposeSteering_MutedConcept(t *testing.T) {
	opts := defaultSteering()
	opts.Controls.ConceptWeights = map[string]float64{"value": 0, "mind": 0.5}

	got := ComposeSteering(opts)
	assert.Contains(t, got, `Do not rely on "value"`)
	assert.Contains(t, got, `Mention "mind" only in passing`)
	assert.Less(t, strings.Index(got, `"mind"`), strings.Index(got, `"value"`))
}
