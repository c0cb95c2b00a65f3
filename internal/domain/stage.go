package domain

// Stage identifies one of the ten fixed phases of the reasoning protocol.
type Stage string

const (
	StageTriage       Stage = "triage"
	StageMemory       Stage = "memory"
	StageRouting      Stage = "routing"
	StageStatistical  Stage = "statistical"
	StageCausal       Stage = "causal"
	StageMetaAnalysis Stage = "meta_analysis"
	StageBayesian     Stage = "bayesian"
	StageSynthesis    Stage = "synthesis"
	StageAdversarial  Stage = "adversarial"
	StageCalibration  Stage = "calibration"
)

// StageOrder is the fixed execution order.
var StageOrder = [StageCount]Stage{
	StageTriage,
	StageMemory,
	StageRouting,
	StageStatistical,
	StageCausal,
	StageMetaAnalysis,
	StageBayesian,
	StageSynthesis,
	StageAdversarial,
	StageCalibration,
}

const StageCount = 10

// Index returns the position of the stage in StageOrder, or -1.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

type StageStatus string

const (
	StageIdle     StageStatus = "idle"
	StageActive   StageStatus = "active"
	StageComplete StageStatus = "complete"
	StageError    StageStatus = "error"
)

// IsTerminal reports whether the status is complete or error.
func (s StageStatus) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// StageResult is the state of one stage.
type StageResult struct {
	Stage   Stage       `json:"stage"`
	Status  StageStatus `json:"status"`
	Summary string      `json:"summary"`
	Detail  string      `json:"detail,omitempty"`
	Value   float64     `json:"value"`
}

// Stages is the fixed-size stage table of a run. It is a value type; With
// returns an updated copy so snapshots handed to observers never alias.
type Stages [StageCount]StageResult

// NewStages returns the idle table in StageOrder.
func NewStages() Stages {
	var s Stages
	for i, st := range StageOrder {
		s[i] = StageResult{Stage: st, Status: StageIdle, Summary: stageSummaries[st]}
	}
	return s
}

// With returns a copy with r placed at its stage index. Unknown stages are ignored.
func (s Stages) With(r StageResult) Stages {
	idx := r.Stage.Index()
	if idx < 0 {
		return s
	}
	r.Value = Clamp01(r.Value)
	if r.Summary == "" {
		r.Summary = s[idx].Summary
	}
	s[idx] = r
	return s
}

// Get returns the result for stage st.
func (s Stages) Get(st Stage) StageResult {
	idx := st.Index()
	if idx < 0 {
		return StageResult{Stage: st, Status: StageIdle}
	}
	return s[idx]
}

// Abort marks every non-terminal stage as error.
func (s Stages) Abort(detail string) Stages {
	for i := range s {
		if !s[i].Status.IsTerminal() {
			s[i].Status = StageError
			if s[i].Detail == "" {
				s[i].Detail = detail
			}
		}
	}
	return s
}

// Slice returns the table as a slice for serialization.
func (s Stages) Slice() []StageResult {
	out := make([]StageResult, len(s))
	copy(out, s[:])
	return out
}

var stageSummaries = map[Stage]string{
	StageTriage:       "Query triage",
	StageMemory:       "Context retrieval",
	StageRouting:      "Reasoning route",
	StageStatistical:  "Statistical analysis",
	StageCausal:       "Causal inference",
	StageMetaAnalysis: "Meta-analysis",
	StageBayesian:     "Bayesian update",
	StageSynthesis:    "Synthesis",
	StageAdversarial:  "Adversarial review",
	StageCalibration:  "Confidence calibration",
}
