package domain

import "time"

// EventType tags the PipelineEvent union.
type EventType string

const (
	EventStage     EventType = "stage"
	EventSignals   EventType = "signals"
	EventReasoning EventType = "reasoning"
	EventTextDelta EventType = "text-delta"
	EventSOAR      EventType = "soar"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// IsTerminal reports whether the event ends a run.
func (t EventType) IsTerminal() bool {
	return t == EventComplete || t == EventError
}

// SOAREventKind distinguishes the SOAR sub-events.
type SOAREventKind string

const (
	SOARProbe     SOAREventKind = "probe"
	SOARStart     SOAREventKind = "start"
	SOARIteration SOAREventKind = "iteration"
	SOARComplete  SOAREventKind = "complete"
)

// SOAREvent is the payload of a soar event.
type SOAREvent struct {
	Kind       SOAREventKind `json:"kind"`
	Probe      *ProbeResult  `json:"probe,omitempty"`
	Iteration  int           `json:"iteration,omitempty"`
	Curriculum *Curriculum   `json:"curriculum,omitempty"`
	Reward     *SOARReward   `json:"reward,omitempty"`
	Session    *SOARSession  `json:"session,omitempty"`
}

// PipelineEvent is one element of the run's event stream. Exactly one payload
// field is populated, matching Type.
type PipelineEvent struct {
	Type      EventType       `json:"type"`
	Stage     *StageResult    `json:"stage,omitempty"`
	Signals   *SignalPatch    `json:"signals,omitempty"`
	Text      string          `json:"text,omitempty"`
	SOAR      *SOAREvent      `json:"soar,omitempty"`
	Result    *PipelineResult `json:"result,omitempty"`
	Error     *RunError       `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// RunError is the payload of the terminal error event.
type RunError struct {
	Message string        `json:"message"`
	Kind    string        `json:"kind"`
	Stages  []StageResult `json:"stages"`
}

// RunMetadata describes how a run was executed.
type RunMetadata struct {
	RunID            string         `json:"run_id"`
	Provider         string         `json:"provider,omitempty"`
	Model            string         `json:"model,omitempty"`
	ChatMode         ChatMode       `json:"chat_mode"`
	AnalyticsEnabled bool           `json:"analytics_enabled"`
	Directives       string         `json:"directives,omitempty"`
	Mode             AnalyticalMode `json:"mode"`
	StartedAt        time.Time      `json:"started_at"`
	DurationMs       int64          `json:"duration_ms"`
	StatisticalPath  string         `json:"statistical_path,omitempty"`
}

// PipelineResult is the bundle carried by the complete event.
type PipelineResult struct {
	Query       string           `json:"query"`
	Analysis    QueryAnalysis    `json:"analysis"`
	Answer      string           `json:"answer"`
	RawAnalysis string           `json:"raw_analysis,omitempty"`
	Reasoning   string           `json:"reasoning,omitempty"`
	Layman      *LaymanSummary   `json:"layman,omitempty"`
	Reflection  *Reflection      `json:"reflection,omitempty"`
	Arbitration *Arbitration     `json:"arbitration,omitempty"`
	Truth       *TruthAssessment `json:"truth,omitempty"`
	Signals     Signals          `json:"signals"`
	Stages      []StageResult    `json:"stages,omitempty"`
	SOAR        *SOARSession     `json:"soar,omitempty"`
	Metadata    RunMetadata      `json:"metadata"`
}
