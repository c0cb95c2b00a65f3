package domain

// Neutral defaults for the user-facing controls. A control within its
// deadband of these values produces no steering directive.
const (
	DefaultComplexityBias        = 0.0
	DefaultAdversarialIntensity  = 1.0
	DefaultBayesianPriorStrength = 1.0
	DefaultConceptWeight         = 1.0
)

// PipelineControls are the user-configured knobs of a run.
type PipelineControls struct {
	// ComplexityBias in [-1,1]; positive asks for deeper treatment.
	ComplexityBias float64 `json:"complexity_bias"`
	// AdversarialIntensity in [0,2]; 1 is neutral.
	AdversarialIntensity float64 `json:"adversarial_intensity"`
	// BayesianPriorStrength in [0,2]; 1 is neutral.
	BayesianPriorStrength float64 `json:"bayesian_prior_strength"`
	// FocusDepthOverride replaces the computed focus depth when set.
	FocusDepthOverride *float64 `json:"focus_depth_override,omitempty"`
	// TemperatureOverride replaces the computed temperature scale when set.
	TemperatureOverride *float64 `json:"temperature_override,omitempty"`
	// ConceptWeights overrides the weight (default 1) of named concepts.
	ConceptWeights map[string]float64 `json:"concept_weights,omitempty"`
}

// DefaultControls returns the neutral control set.
func DefaultControls() PipelineControls {
	return PipelineControls{
		ComplexityBias:        DefaultComplexityBias,
		AdversarialIntensity:  DefaultAdversarialIntensity,
		BayesianPriorStrength: DefaultBayesianPriorStrength,
	}
}

// SteeringBias is a learned delta vector applied on top of computed signals.
type SteeringBias struct {
	Confidence float64 `json:"confidence"`
	Entropy    float64 `json:"entropy"`
	Dissonance float64 `json:"dissonance"`
	Health     float64 `json:"health"`
	Risk       float64 `json:"risk"`
	Strength   float64 `json:"strength"`
	Source     string  `json:"source,omitempty"`
}

// SignalOverrides pins individual signals to manual values.
type SignalOverrides struct {
	Confidence *float64 `json:"confidence,omitempty"`
	Entropy    *float64 `json:"entropy,omitempty"`
	Dissonance *float64 `json:"dissonance,omitempty"`
	Health     *float64 `json:"health,omitempty"`
	Risk       *float64 `json:"risk,omitempty"`
}

// IsEmpty reports whether no override is set.
func (o SignalOverrides) IsEmpty() bool {
	return o.Confidence == nil && o.Entropy == nil && o.Dissonance == nil && o.Health == nil && o.Risk == nil
}

// Patch converts the overrides to a signal patch.
func (o SignalOverrides) Patch() SignalPatch {
	return SignalPatch{
		Confidence:  o.Confidence,
		Entropy:     o.Entropy,
		Dissonance:  o.Dissonance,
		HealthScore: o.Health,
		RiskScore:   o.Risk,
	}
}

// AnalyticalMode selects the reasoning register.
type AnalyticalMode string

const (
	ModeDeep           AnalyticalMode = "deep"
	ModeConversational AnalyticalMode = "conversational"
)

// ChatMode selects between the full protocol and a plain model pass.
type ChatMode string

const (
	ChatResearch ChatMode = "research"
	ChatPlain    ChatMode = "plain"
)

// InferenceMode selects a hosted API or a local model server.
type InferenceMode string

const (
	InferenceAPI   InferenceMode = "api"
	InferenceLocal InferenceMode = "local"
)

// InferenceConfig is passed opaquely to the model resolver.
type InferenceConfig struct {
	Mode     InferenceMode `json:"mode"`
	Provider string        `json:"provider,omitempty"`
	Model    string        `json:"model,omitempty"`
	APIKey   string        `json:"api_key,omitempty"`
	BaseURL  string        `json:"base_url,omitempty"`
}

// IsZero reports whether nothing was configured.
func (c InferenceConfig) IsZero() bool {
	return c.Mode == "" && c.Provider == "" && c.Model == "" && c.APIKey == "" && c.BaseURL == ""
}

// ImageAttachment is passed through to the first model call.
type ImageAttachment struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"` // base64
}

// RunRequest is every input of one pipeline run.
type RunRequest struct {
	Query            string               `json:"query"`
	Context          *ConversationContext `json:"context,omitempty"`
	Controls         *PipelineControls    `json:"controls,omitempty"`
	Bias             *SteeringBias        `json:"bias,omitempty"`
	Overrides        *SignalOverrides     `json:"overrides,omitempty"`
	Inference        InferenceConfig      `json:"inference"`
	SOAR             *SOARConfig          `json:"soar,omitempty"`
	AnalyticsEnabled bool                 `json:"analytics_enabled"`
	ChatMode         ChatMode             `json:"chat_mode,omitempty"`
	Mode             AnalyticalMode       `json:"mode,omitempty"`
	Images           []ImageAttachment    `json:"images,omitempty"`
}
