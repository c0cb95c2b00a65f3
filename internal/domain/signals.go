package domain

// SafetyState is ordered: green < yellow < orange < red.
type SafetyState string

const (
	SafetyGreen  SafetyState = "green"
	SafetyYellow SafetyState = "yellow"
	SafetyOrange SafetyState = "orange"
	SafetyRed    SafetyState = "red"
)

// Level returns the ordinal of the state, 0 for green through 3 for red.
// Unknown states rank as green.
func (s SafetyState) Level() int {
	switch s {
	case SafetyYellow:
		return 1
	case SafetyOrange:
		return 2
	case SafetyRed:
		return 3
	default:
		return 0
	}
}

// SafetyStateForRisk maps a risk score onto the safety ladder.
func SafetyStateForRisk(risk float64) SafetyState {
	switch {
	case risk >= 0.75:
		return SafetyRed
	case risk >= 0.5:
		return SafetyOrange
	case risk >= 0.25:
		return SafetyYellow
	default:
		return SafetyGreen
	}
}

const (
	MinFocusDepth = 1
	MaxFocusDepth = 10

	MinTemperatureScale = 0.1
	MaxTemperatureScale = 2.0
)

// Signals is the run-scoped numeric state threaded through every stage.
type Signals struct {
	Confidence  float64     `json:"confidence"`
	Entropy     float64     `json:"entropy"`
	Dissonance  float64     `json:"dissonance"`
	HealthScore float64     `json:"health_score"`
	RiskScore   float64     `json:"risk_score"`
	SafetyState SafetyState `json:"safety_state"`

	// Topology features are opaque structural scores supplied by the signal generator.
	Betti0             float64 `json:"betti0"`
	Betti1             float64 `json:"betti1"`
	PersistenceEntropy float64 `json:"persistence_entropy"`
	MaxPersistence     float64 `json:"max_persistence"`

	FocusDepth       float64 `json:"focus_depth"`
	TemperatureScale float64 `json:"temperature_scale"`

	ActiveConcepts     []string `json:"active_concepts"`
	ChordProduct       int64    `json:"chord_product"`
	HarmonyKeyDistance float64  `json:"harmony_key_distance"`
}

// Clamp returns a copy with every numeric field inside its declared range.
func (s Signals) Clamp() Signals {
	s.Confidence = Clamp01(s.Confidence)
	s.Entropy = Clamp01(s.Entropy)
	s.Dissonance = Clamp01(s.Dissonance)
	s.HealthScore = Clamp01(s.HealthScore)
	s.RiskScore = Clamp01(s.RiskScore)
	s.HarmonyKeyDistance = Clamp01(s.HarmonyKeyDistance)
	s.PersistenceEntropy = nonNegative(s.PersistenceEntropy)
	s.MaxPersistence = nonNegative(s.MaxPersistence)
	s.Betti0 = nonNegative(s.Betti0)
	s.Betti1 = nonNegative(s.Betti1)
	s.FocusDepth = clampRange(s.FocusDepth, MinFocusDepth, MaxFocusDepth)
	s.TemperatureScale = clampRange(s.TemperatureScale, MinTemperatureScale, MaxTemperatureScale)
	if s.SafetyState == "" {
		s.SafetyState = SafetyGreen
	}
	if s.ChordProduct < 1 {
		s.ChordProduct = 1
	}
	s.ActiveConcepts = append([]string(nil), s.ActiveConcepts...)
	return s
}

// SignalPatch carries the subset of Signals a stage overwrites. Nil fields
// are left untouched by Apply.
type SignalPatch struct {
	Confidence         *float64     `json:"confidence,omitempty"`
	Entropy            *float64     `json:"entropy,omitempty"`
	Dissonance         *float64     `json:"dissonance,omitempty"`
	HealthScore        *float64     `json:"health_score,omitempty"`
	RiskScore          *float64     `json:"risk_score,omitempty"`
	SafetyState        *SafetyState `json:"safety_state,omitempty"`
	FocusDepth         *float64     `json:"focus_depth,omitempty"`
	TemperatureScale   *float64     `json:"temperature_scale,omitempty"`
	ActiveConcepts     []string     `json:"active_concepts,omitempty"`
	PersistenceEntropy *float64     `json:"persistence_entropy,omitempty"`
	MaxPersistence     *float64     `json:"max_persistence,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SignalPatch) IsEmpty() bool {
	return p.Confidence == nil && p.Entropy == nil && p.Dissonance == nil &&
		p.HealthScore == nil && p.RiskScore == nil && p.SafetyState == nil &&
		p.FocusDepth == nil && p.TemperatureScale == nil && p.ActiveConcepts == nil &&
		p.PersistenceEntropy == nil && p.MaxPersistence == nil
}

// Apply returns s with the patch applied and re-clamped.
func (s Signals) Apply(p SignalPatch) Signals {
	if p.Confidence != nil {
		s.Confidence = *p.Confidence
	}
	if p.Entropy != nil {
		s.Entropy = *p.Entropy
	}
	if p.Dissonance != nil {
		s.Dissonance = *p.Dissonance
	}
	if p.HealthScore != nil {
		s.HealthScore = *p.HealthScore
	}
	if p.RiskScore != nil {
		s.RiskScore = *p.RiskScore
	}
	if p.SafetyState != nil {
		s.SafetyState = *p.SafetyState
	}
	if p.FocusDepth != nil {
		s.FocusDepth = *p.FocusDepth
	}
	if p.TemperatureScale != nil {
		s.TemperatureScale = *p.TemperatureScale
	}
	if p.ActiveConcepts != nil {
		s.ActiveConcepts = p.ActiveConcepts
	}
	if p.PersistenceEntropy != nil {
		s.PersistenceEntropy = *p.PersistenceEntropy
	}
	if p.MaxPersistence != nil {
		s.MaxPersistence = *p.MaxPersistence
	}
	return s.Clamp()
}

// PatchFrom builds a patch that sets every patchable field to the value in target.
func PatchFrom(target Signals) SignalPatch {
	safety := target.SafetyState
	return SignalPatch{
		Confidence:         Float(target.Confidence),
		Entropy:            Float(target.Entropy),
		Dissonance:         Float(target.Dissonance),
		HealthScore:        Float(target.HealthScore),
		RiskScore:          Float(target.RiskScore),
		SafetyState:        &safety,
		FocusDepth:         Float(target.FocusDepth),
		TemperatureScale:   Float(target.TemperatureScale),
		ActiveConcepts:     append([]string{}, target.ActiveConcepts...),
		PersistenceEntropy: Float(target.PersistenceEntropy),
		MaxPersistence:     Float(target.MaxPersistence),
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNegative(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return v
}
