package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"go.uber.org/zap"
)

// Edge-of-learnability window. A query is at the edge when it is complex,
// uncertain without being hopeless, and still open.
const (
	EdgeMinComplexity = 0.45
	EdgeMinConfidence = 0.3
	EdgeMaxConfidence = 0.75
	EdgeMinEntropy    = 0.35

	// DefaultSatisfactionThreshold stops the loop once one curriculum
	// scores at least this composite reward.
	DefaultSatisfactionThreshold = 0.15

	StoneDifficultyStart = 0.4
	StoneDifficultyEnd   = 0.8

	FallbackRationalePrefix = "[fallback:template]"

	teacherTemperature = 0.7
	teacherMaxTokens   = 1200
)

// RewardWeights weight the signal deltas in the composite reward.
type RewardWeights struct {
	Confidence float64
	Entropy    float64
	Dissonance float64
}

func DefaultRewardWeights() RewardWeights {
	return RewardWeights{Confidence: 0.5, Entropy: 0.3, Dissonance: 0.2}
}

// Evaluate scores the move from before to after. Rising confidence and
// falling entropy or dissonance count as improvement.
func (w RewardWeights) Evaluate(before, after domain.Signals) domain.SOARReward {
	dc := after.Confidence - before.Confidence
	de := after.Entropy - before.Entropy
	dd := after.Dissonance - before.Dissonance
	composite := w.Confidence*dc - w.Entropy*de - w.Dissonance*dd
	return domain.SOARReward{
		Composite:       composite,
		DeltaConfidence: dc,
		DeltaEntropy:    de,
		DeltaDissonance: dd,
		Improved:        composite > 0,
	}
}

// EvaluateReward scores with DefaultRewardWeights.
func EvaluateReward(before, after domain.Signals) domain.SOARReward {
	return DefaultRewardWeights().Evaluate(before, after)
}

// SOARProber decides whether SOAR should engage. It never calls the model.
type SOARProber struct{}

func (SOARProber) Probe(a domain.QueryAnalysis, s domain.Signals, cfg domain.SOARConfig) domain.ProbeResult {
	cfg = cfg.Normalized()

	difficulty := domain.Clamp01(0.5*a.Complexity + 0.3*s.Entropy + 0.2*(1-s.Confidence))
	depth := int(math.Ceil(difficulty * float64(cfg.MaxIterations)))
	depth = max(1, min(cfg.MaxIterations, depth))

	var reason string
	atEdge := false
	switch {
	case a.Complexity < EdgeMinComplexity:
		reason = fmt.Sprintf("below edge: complexity %.2f under %.2f", a.Complexity, EdgeMinComplexity)
	case s.Confidence > EdgeMaxConfidence:
		reason = fmt.Sprintf("below edge: confidence %.2f already above %.2f", s.Confidence, EdgeMaxConfidence)
	case s.Confidence < EdgeMinConfidence:
		reason = fmt.Sprintf("beyond edge: confidence %.2f under %.2f", s.Confidence, EdgeMinConfidence)
	case s.Entropy < EdgeMinEntropy:
		reason = fmt.Sprintf("below edge: entropy %.2f under %.2f", s.Entropy, EdgeMinEntropy)
	default:
		atEdge = true
		reason = fmt.Sprintf("at edge: complexity %.2f, confidence %.2f, entropy %.2f", a.Complexity, s.Confidence, s.Entropy)
	}

	return domain.ProbeResult{
		AtEdge:              atEdge,
		EstimatedDifficulty: difficulty,
		RecommendedDepth:    depth,
		Reason:              reason,
	}
}

// CurriculumTeacher authors stepping-stone curricula. When the model call
// fails it falls back to templates.
type CurriculumTeacher struct {
	llm     domain.LLMClient
	ids     IDGenerator
	rng     *rand.Rand
	timeout time.Duration
	logger  *zap.Logger
}

// NewCurriculumTeacher returns a teacher. rng is used for template quality
// scores and must not be shared with another goroutine.
func NewCurriculumTeacher(llm domain.LLMClient, ids IDGenerator, rng *rand.Rand, timeout time.Duration, logger *zap.Logger) *CurriculumTeacher {
	return &CurriculumTeacher{
		llm:     llm,
		ids:     ids,
		rng:     rng,
		timeout: timeout,
		logger:  logger,
	}
}

// Generate builds curriculum number iteration. prev is the reward of the
// previous curriculum, nil on the first iteration.
func (t *CurriculumTeacher) Generate(ctx context.Context, a domain.QueryAnalysis, numStones, iteration int, prev *domain.SOARReward) domain.Curriculum {
	start := time.Now()
	numStones = max(1, numStones)
	id := t.ids.NewID("curriculum")

	c := domain.Curriculum{
		ID:          id,
		TargetQuery: a.CoreQuestion,
		Iteration:   iteration,
	}

	draft, err := t.fromModel(ctx, a, numStones, iteration, prev)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Warn("curriculum generation failed, using templates",
				zap.Int("iteration", iteration),
				zap.Error(err))
		}
		draft = t.fromTemplates(a, numStones)
		c.Fallback = true
	}

	c.TeacherRationale = strategyFraming(prev) + draft.Rationale
	if c.Fallback {
		c.TeacherRationale = FallbackRationalePrefix + " " + c.TeacherRationale
	}

	c.Stones = make([]domain.SteppingStone, len(draft.Stones))
	for i, s := range draft.Stones {
		c.Stones[i] = domain.SteppingStone{
			ID:                 fmt.Sprintf("%s-s%d", id, i+1),
			Question:           s.Question,
			TargetSkill:        s.TargetSkill,
			RelativeDifficulty: domain.Clamp01(s.RelativeDifficulty),
			StructuralQuality:  domain.Clamp01(s.StructuralQuality),
			Order:              i + 1,
		}
	}
	c.GenerationTimeMs = time.Since(start).Milliseconds()
	return c
}

func (t *CurriculumTeacher) fromModel(ctx context.Context, a domain.QueryAnalysis, numStones, iteration int, prev *domain.SOARReward) (domain.CurriculumDraft, error) {
	if t.llm == nil {
		return domain.CurriculumDraft{}, fmt.Errorf("no model for curriculum generation")
	}
	req := domain.GenerateRequest{
		System:      teacherSystemPrompt,
		Prompt:      teacherPrompt(a, numStones, iteration, prev),
		Temperature: teacherTemperature,
		MaxTokens:   teacherMaxTokens,
	}
	draft, err := generateObject[domain.CurriculumDraft](ctx, t.llm, req, domain.ShapeCurriculum, t.timeout)
	if err != nil {
		return draft, err
	}
	if len(draft.Stones) > numStones {
		draft.Stones = draft.Stones[:numStones]
	}
	return draft, nil
}

// strategyFraming states whether this curriculum continues or abandons the
// previous strategy.
func strategyFraming(prev *domain.SOARReward) string {
	switch {
	case prev == nil:
		return "Initial strategy. "
	case prev.Improved:
		return fmt.Sprintf("Refining the previous strategy, which improved signals (composite %+.3f). ", prev.Composite)
	default:
		return fmt.Sprintf("Pivoting away from the previous strategy, which did not improve signals (composite %+.3f). ", prev.Composite)
	}
}

type stoneTemplate struct {
	skill    string
	question string // %s is the top entity
}

var questionTypeTemplates = map[domain.QuestionType][]stoneTemplate{
	domain.QuestionCausal: {
		{"identifying confounders", "Name two variables that could make %s look causal when it is not."},
		{"dose-response reasoning", "What pattern across doses of %s would strengthen a causal reading?"},
		{"counterfactual reasoning", "Describe the counterfactual comparison needed to isolate the effect of %s."},
	},
	domain.QuestionComparative: {
		{"choosing comparison criteria", "List three criteria on which %s should be compared with its alternatives."},
		{"normalizing measurements", "How would you put outcomes for %s and an alternative on the same scale?"},
		{"trade-off analysis", "Where would %s win on one criterion but lose on another?"},
	},
	domain.QuestionDefinitional: {
		{"necessary conditions", "What must be true of anything that counts as %s?"},
		{"boundary cases", "Give a borderline case that tests the definition of %s."},
		{"operationalization", "How could %s be measured in a way two researchers would agree on?"},
	},
	domain.QuestionEvaluative: {
		{"stating the standard", "By what standard should %s be judged good or bad?"},
		{"weighing stakeholders", "Whose interests are affected by %s, and how differently?"},
		{"reversibility", "Which consequences of %s could be undone, and which could not?"},
	},
	domain.QuestionSpeculative: {
		{"base-rate forecasting", "What is the historical base rate for developments like %s?"},
		{"scenario construction", "Sketch a best case and a worst case for %s in ten years."},
		{"leading indicators", "Which early signal would show %s is on track or off track?"},
	},
	domain.QuestionMetaAnalytical: {
		{"heterogeneity", "Why might studies of %s disagree even if each is sound?"},
		{"publication bias", "How would publication bias distort the literature on %s?"},
		{"pooling evidence", "How should a small strong study and a large weak study of %s be combined?"},
	},
	domain.QuestionEmpirical: {
		{"measurement validity", "What would a valid measurement of %s look like?"},
		{"sample adequacy", "How large a sample would be needed to detect a modest effect of %s?"},
		{"replication", "What result would a replication of the key %s finding need to show?"},
	},
	domain.QuestionConceptual: {
		{"decomposition", "Break the idea of %s into its two or three component claims."},
		{"analogy", "Which better-understood idea is most similar to %s, and where does the analogy fail?"},
		{"implication tracing", "If the main claim about %s were true, what else would have to be true?"},
	},
}

var domainSkillFocus = map[domain.QueryDomain]string{
	domain.DomainMedical:       "clinical evidence appraisal",
	domain.DomainPhilosophy:    "argument reconstruction",
	domain.DomainScience:       "hypothesis testing",
	domain.DomainTechnology:    "systems reasoning",
	domain.DomainSocialScience: "observational inference",
	domain.DomainEconomics:     "incentive analysis",
	domain.DomainPsychology:    "behavioral measurement",
	domain.DomainEthics:        "principle balancing",
	domain.DomainGeneral:       "structured reasoning",
}

// fromTemplates builds numStones stones with difficulty strictly increasing
// from StoneDifficultyStart to StoneDifficultyEnd.
func (t *CurriculumTeacher) fromTemplates(a domain.QueryAnalysis, numStones int) domain.CurriculumDraft {
	templates, ok := questionTypeTemplates[a.QuestionType]
	if !ok {
		templates = questionTypeTemplates[domain.QuestionConceptual]
	}
	focus, ok := domainSkillFocus[a.Domain]
	if !ok {
		focus = domainSkillFocus[domain.DomainGeneral]
	}

	entity := "the topic"
	if len(a.Entities) > 0 {
		entity = a.Entities[0]
	}

	stones := make([]domain.StoneDraft, numStones)
	for i := range stones {
		tpl := templates[i%len(templates)]
		difficulty := StoneDifficultyStart
		if numStones > 1 {
			difficulty += (StoneDifficultyEnd - StoneDifficultyStart) * float64(i) / float64(numStones-1)
		}
		quality := 0.6
		if t.rng != nil {
			quality += t.rng.Float64() * 0.2
		}
		stones[i] = domain.StoneDraft{
			Question:           fmt.Sprintf(tpl.question, entity),
			TargetSkill:        tpl.skill,
			RelativeDifficulty: difficulty,
			StructuralQuality:  quality,
		}
	}

	return domain.CurriculumDraft{
		Rationale: fmt.Sprintf("Generic %s stones for a %s question about %s, practising %s.",
			strings.ReplaceAll(string(a.Domain), "_", " "), strings.ReplaceAll(string(a.QuestionType), "_", " "), entity, focus),
		Stones: stones,
	}
}

// SOARInput is what one loop run works on.
type SOARInput struct {
	Analysis domain.QueryAnalysis
	Signals  domain.Signals
	Probe    domain.ProbeResult
	Config   domain.SOARConfig
	// Text is the analysis text scanned for contradictions.
	Text string
}

// SOARLoop iterates curricula until one satisfies or the budget runs out.
type SOARLoop struct {
	teacher   *CurriculumTeacher
	absorber  Absorber
	ids       IDGenerator
	weights   RewardWeights
	threshold float64
	logger    *zap.Logger
}

func NewSOARLoop(teacher *CurriculumTeacher, absorber Absorber, ids IDGenerator, logger *zap.Logger) *SOARLoop {
	return &SOARLoop{
		teacher:   teacher,
		absorber:  absorber,
		ids:       ids,
		weights:   DefaultRewardWeights(),
		threshold: DefaultSatisfactionThreshold,
		logger:    logger,
	}
}

func (l *SOARLoop) SetRewardWeights(w RewardWeights) {
	l.weights = w
}

func (l *SOARLoop) SetSatisfactionThreshold(v float64) {
	l.threshold = v
}

// Run executes the loop. onIteration is called after every scored
// curriculum; a non-nil return aborts the loop with that error. The only
// other error is cancellation of ctx.
func (l *SOARLoop) Run(ctx context.Context, in SOARInput, onIteration func(iteration int, c domain.Curriculum, r domain.SOARReward) error) (domain.SOARSession, error) {
	cfg := in.Config.Normalized()
	session := domain.SOARSession{
		ID:             l.ids.NewID("soar"),
		TargetQuery:    in.Analysis.CoreQuestion,
		Probe:          in.Probe,
		Curricula:      []domain.Curriculum{},
		Rewards:        []domain.SOARReward{},
		InitialSignals: in.Signals,
	}

	logf := l.logger.Debug
	if cfg.Verbose {
		logf = l.logger.Info
	}

	current := in.Signals
	var prev *domain.SOARReward
	for i := 1; i <= cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return session, err
		}

		c := l.teacher.Generate(ctx, in.Analysis, cfg.StonesPerCurriculum, i, prev)
		if err := ctx.Err(); err != nil {
			return session, err
		}

		after, err := l.absorber.Absorb(ctx, in.Analysis, current, c)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return session, ctxErr
			}
			l.logger.Warn("curriculum absorption failed", zap.String("curriculum_id", c.ID), zap.Error(err))
			after = current
		}

		reward := l.weights.Evaluate(current, after)
		c = c.WithUsefulness(reward.Improved)
		if reward.Improved {
			current = after
		}

		session.Curricula = append(session.Curricula, c)
		session.Rewards = append(session.Rewards, reward)
		session.IterationsCompleted = i

		logf("soar iteration",
			zap.String("session_id", session.ID),
			zap.Int("iteration", i),
			zap.Bool("fallback", c.Fallback),
			zap.Float64("composite", reward.Composite),
			zap.Bool("improved", reward.Improved))

		if onIteration != nil {
			if err := onIteration(i, c, reward); err != nil {
				return session, err
			}
		}

		prev = &reward
		if reward.Composite >= l.threshold {
			break
		}
	}

	session.FinalSignals = current
	session.OverallImproved = l.weights.Evaluate(in.Signals, current).Improved

	if cfg.ContradictionDetection {
		scan := ScanContradictions(in.Text)
		session.Contradictions = &scan
	}

	return session, nil
}
