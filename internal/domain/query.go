package domain

// QueryDomain is the subject area a query belongs to.
type QueryDomain string

const (
	DomainMedical       QueryDomain = "medical"
	DomainPhilosophy    QueryDomain = "philosophy"
	DomainScience       QueryDomain = "science"
	DomainTechnology    QueryDomain = "technology"
	DomainSocialScience QueryDomain = "social_science"
	DomainEconomics     QueryDomain = "economics"
	DomainPsychology    QueryDomain = "psychology"
	DomainEthics        QueryDomain = "ethics"
	DomainGeneral       QueryDomain = "general"
)

func (d QueryDomain) IsValid() bool {
	switch d {
	case DomainMedical, DomainPhilosophy, DomainScience, DomainTechnology, DomainSocialScience,
		DomainEconomics, DomainPsychology, DomainEthics, DomainGeneral:
		return true
	}
	return false
}

// QuestionType is the shape of reasoning a query asks for.
type QuestionType string

const (
	QuestionCausal         QuestionType = "causal"
	QuestionComparative    QuestionType = "comparative"
	QuestionDefinitional   QuestionType = "definitional"
	QuestionEvaluative     QuestionType = "evaluative"
	QuestionSpeculative    QuestionType = "speculative"
	QuestionMetaAnalytical QuestionType = "meta_analytical"
	QuestionEmpirical      QuestionType = "empirical"
	QuestionConceptual     QuestionType = "conceptual"
)

func (q QuestionType) IsValid() bool {
	switch q {
	case QuestionCausal, QuestionComparative, QuestionDefinitional, QuestionEvaluative,
		QuestionSpeculative, QuestionMetaAnalytical, QuestionEmpirical, QuestionConceptual:
		return true
	}
	return false
}

type EmotionalValence string

const (
	ValenceNeutral  EmotionalValence = "neutral"
	ValencePositive EmotionalValence = "positive"
	ValenceNegative EmotionalValence = "negative"
	ValenceMixed    EmotionalValence = "mixed"
)

const (
	MaxEntities        = 8
	MaxCoreQuestionLen = 120
)

// QueryAnalysis is the classification of a single query. It is created once
// per run and treated as a value afterwards.
type QueryAnalysis struct {
	Domain             QueryDomain      `json:"domain"`
	QuestionType       QuestionType     `json:"question_type"`
	Entities           []string         `json:"entities"`
	CoreQuestion       string           `json:"core_question"`
	Complexity         float64          `json:"complexity"`
	IsEmpirical        bool             `json:"is_empirical"`
	IsPhilosophical    bool             `json:"is_philosophical"`
	IsMetaAnalytical   bool             `json:"is_meta_analytical"`
	HasSafetyKeywords  bool             `json:"has_safety_keywords"`
	HasNormativeClaims bool             `json:"has_normative_claims"`
	EmotionalValence   EmotionalValence `json:"emotional_valence"`
	IsFollowUp         bool             `json:"is_follow_up"`
	FollowUpFocus      string           `json:"follow_up_focus,omitempty"`
}

// TopEntity returns the first extracted entity, or fallback if there is none.
func (a QueryAnalysis) TopEntity(fallback string) string {
	if len(a.Entities) == 0 {
		return fallback
	}
	return a.Entities[0]
}

// ConversationContext is caller-supplied history used to detect and enrich
// follow-up queries. PreviousQueries is ordered most recent first.
type ConversationContext struct {
	PreviousQueries  []string `json:"previous_queries,omitempty"`
	PreviousEntities []string `json:"previous_entities,omitempty"`
	RootQuestion     string   `json:"root_question,omitempty"`
}

// QueryClassifier turns query text (plus optional history) into a QueryAnalysis.
// Implementations must be pure and must not fail.
type QueryClassifier interface {
	Analyze(query string, conv *ConversationContext) QueryAnalysis
}
