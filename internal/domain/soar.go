package domain

// SOARConfig gates and sizes the meta-reasoning loop.
type SOARConfig struct {
	Enabled                bool `json:"enabled"`
	AutoDetect             bool `json:"auto_detect"`
	ContradictionDetection bool `json:"contradiction_detection"`
	MaxIterations          int  `json:"max_iterations"`
	StonesPerCurriculum    int  `json:"stones_per_curriculum"`
	Verbose                bool `json:"verbose"`
}

// DefaultSOARConfig is the disabled loop with sensible sizing.
func DefaultSOARConfig() SOARConfig {
	return SOARConfig{
		Enabled:             false,
		AutoDetect:          true,
		MaxIterations:       2,
		StonesPerCurriculum: 3,
	}
}

// Normalized fills zero sizes with defaults and caps the iteration budget.
func (c SOARConfig) Normalized() SOARConfig {
	d := DefaultSOARConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxIterations > 5 {
		c.MaxIterations = 5
	}
	if c.StonesPerCurriculum <= 0 {
		c.StonesPerCurriculum = d.StonesPerCurriculum
	}
	if c.StonesPerCurriculum > 8 {
		c.StonesPerCurriculum = 8
	}
	return c
}

// ProbeResult is the edge-of-learnability verdict for a query.
type ProbeResult struct {
	AtEdge              bool    `json:"at_edge"`
	EstimatedDifficulty float64 `json:"estimated_difficulty"`
	RecommendedDepth    int     `json:"recommended_depth"`
	Reason              string  `json:"reason"`
}

// SteppingStone is one synthetic practice problem.
type SteppingStone struct {
	ID                 string  `json:"id"`
	Question           string  `json:"question"`
	TargetSkill        string  `json:"target_skill"`
	RelativeDifficulty float64 `json:"relative_difficulty"`
	StructuralQuality  float64 `json:"structural_quality"`
	WasUseful          *bool   `json:"was_useful"`
	Order              int     `json:"order"`
}

// Curriculum is one teacher artifact. Only the stones' WasUseful is filled in later.
type Curriculum struct {
	ID               string          `json:"id"`
	TargetQuery      string          `json:"target_query"`
	Stones           []SteppingStone `json:"stones"`
	GenerationTimeMs int64           `json:"generation_time_ms"`
	Iteration        int             `json:"iteration"`
	TeacherRationale string          `json:"teacher_rationale"`
	Fallback         bool            `json:"fallback,omitempty"`
}

// WithUsefulness returns a copy whose stones all carry the given verdict.
func (c Curriculum) WithUsefulness(useful bool) Curriculum {
	stones := make([]SteppingStone, len(c.Stones))
	for i, s := range c.Stones {
		v := useful
		s.WasUseful = &v
		stones[i] = s
	}
	c.Stones = stones
	return c
}

// SOARReward compares signals before and after a curriculum is absorbed.
type SOARReward struct {
	Composite       float64 `json:"composite"`
	DeltaConfidence float64 `json:"delta_confidence"`
	DeltaEntropy    float64 `json:"delta_entropy"`
	DeltaDissonance float64 `json:"delta_dissonance"`
	Improved        bool    `json:"improved"`
}

// ContradictionPair flags two claims that cannot both hold.
type ContradictionPair struct {
	ClaimA string  `json:"claim_a"`
	ClaimB string  `json:"claim_b"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// ContradictionScan is the report of a pairwise claim cross-reference.
type ContradictionScan struct {
	Claims         []string            `json:"claims"`
	Contradictions []ContradictionPair `json:"contradictions"`
	PairsChecked   int                 `json:"pairs_checked"`
}

// SOARSession aggregates everything produced while the loop was engaged.
type SOARSession struct {
	ID                  string             `json:"id"`
	TargetQuery         string             `json:"target_query"`
	Probe               ProbeResult        `json:"probe"`
	Curricula           []Curriculum       `json:"curricula"`
	Rewards             []SOARReward       `json:"rewards"`
	InitialSignals      Signals            `json:"initial_signals"`
	FinalSignals        Signals            `json:"final_signals"`
	OverallImproved     bool               `json:"overall_improved"`
	IterationsCompleted int                `json:"iterations_completed"`
	Contradictions      *ContradictionScan `json:"contradictions,omitempty"`
}
