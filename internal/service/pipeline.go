package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCallTimeout = 60 * time.Second
	DefaultStagePause  = 300 * time.Millisecond
	DefaultPacingMin   = 15 * time.Millisecond
	DefaultPacingMax   = 45 * time.Millisecond

	// AdjustmentPenalty is the confidence removed per reflection adjustment.
	AdjustmentPenalty = 0.04
	// AdversarialConfidenceFloor bounds how far the adversarial stage can
	// lower confidence. It never raises it.
	AdversarialConfidenceFloor = 0.15

	analysisTemperature = 0.4
	analysisMaxTokens   = 4096
	objectTemperature   = 0.2
	objectMaxTokens     = 1500
)

// Run error kinds.
const (
	ErrorKindConfig   = "config"
	ErrorKindProvider = "provider"
	ErrorKindLLM      = "llm"
)

var wordPattern = regexp.MustCompile(`\S+\s*`)

// PipelineConfig holds the timing and loop constants of the orchestrator.
type PipelineConfig struct {
	CallTimeout           time.Duration
	StagePause            time.Duration
	PacingMin             time.Duration
	PacingMax             time.Duration
	SOARDefaults          domain.SOARConfig
	SatisfactionThreshold float64
	RewardWeights         RewardWeights
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		CallTimeout:           DefaultCallTimeout,
		StagePause:            DefaultStagePause,
		PacingMin:             DefaultPacingMin,
		PacingMax:             DefaultPacingMax,
		SOARDefaults:          domain.DefaultSOARConfig(),
		SatisfactionThreshold: DefaultSatisfactionThreshold,
		RewardWeights:         DefaultRewardWeights(),
	}
}

// RunStats is a snapshot of the run counters.
type RunStats struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Errored   int64 `json:"errored"`
	Cancelled int64 `json:"cancelled"`
	Active    int64 `json:"active"`
}

type runCounters struct {
	started   atomic.Int64
	completed atomic.Int64
	errored   atomic.Int64
	cancelled atomic.Int64
}

// PipelineService runs the ten-stage research protocol. Runs are independent;
// the only state shared between them is the ID generator and the counters.
type PipelineService struct {
	resolver   domain.ModelResolver
	classifier domain.QueryClassifier
	signals    domain.SignalGenerator
	absorber   Absorber
	ids        IDGenerator
	newRand    func() *rand.Rand
	cfg        PipelineConfig
	counters   runCounters
	logger     *zap.Logger
}

func NewPipelineService(resolver domain.ModelResolver, classifier domain.QueryClassifier, signals domain.SignalGenerator, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		resolver:   resolver,
		classifier: classifier,
		signals:    signals,
		absorber:   NewHeuristicAbsorber(logger),
		ids:        NewSequentialIDGenerator(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		cfg:    DefaultPipelineConfig(),
		logger: logger,
	}
}

func (s *PipelineService) SetConfig(cfg PipelineConfig) {
	s.cfg = cfg
}

func (s *PipelineService) SetIDGenerator(ids IDGenerator) {
	s.ids = ids
}

func (s *PipelineService) SetAbsorber(a Absorber) {
	s.absorber = a
}

// SetRandSource sets the factory for the per-run random source used for
// answer pacing and template quality.
func (s *PipelineService) SetRandSource(f func() *rand.Rand) {
	s.newRand = f
}

func (s *PipelineService) Stats() RunStats {
	st := RunStats{
		Started:   s.counters.started.Load(),
		Completed: s.counters.completed.Load(),
		Errored:   s.counters.errored.Load(),
		Cancelled: s.counters.cancelled.Load(),
	}
	st.Active = st.Started - st.Completed - st.Errored - st.Cancelled
	return st
}

// Run starts a run and returns its event stream. The channel is unbuffered
// and closed when the run ends. A run ends with exactly one complete or
// error event, or with no terminal event if ctx is cancelled first.
func (s *PipelineService) Run(ctx context.Context, req domain.RunRequest) <-chan domain.PipelineEvent {
	out := make(chan domain.PipelineEvent)
	r := &run{
		svc:     s,
		ctx:     ctx,
		out:     out,
		req:     req,
		id:      uuid.NewString(),
		started: time.Now(),
		stages:  domain.NewStages(),
		rng:     s.newRand(),
	}
	r.logger = s.logger.With(zap.String("run_id", r.id))

	s.counters.started.Add(1)
	go func() {
		defer close(out)
		r.execute()
	}()
	return out
}

// run is the state of one pipeline run. It is owned by the run goroutine.
type run struct {
	svc     *PipelineService
	ctx     context.Context
	out     chan<- domain.PipelineEvent
	req     domain.RunRequest
	id      string
	started time.Time
	rng     *rand.Rand
	logger  *zap.Logger

	client     domain.LLMClient
	analysis   domain.QueryAnalysis
	directives string
	// target is the signal state the run has established; current is what
	// observers have been shown so far.
	target  domain.Signals
	current domain.Signals
	stages  domain.Stages

	statisticalPath string
}

func (r *run) execute() {
	client, err := r.svc.resolver.Resolve(r.ctx, r.req.Inference)
	if err != nil {
		if r.ctx.Err() != nil {
			r.cancelled()
			return
		}
		kind := ErrorKindProvider
		if errors.Is(err, domain.ErrNoInferenceConfig) {
			kind = ErrorKindConfig
		}
		r.logger.Warn("model resolution failed", zap.String("kind", kind), zap.Error(err))
		r.failBeforeStages(kind, err)
		return
	}
	r.client = client
	r.analysis = r.svc.classifier.Analyze(r.req.Query, r.req.Context)

	r.logger.Info("pipeline run started",
		zap.String("model", client.Name()),
		zap.String("domain", string(r.analysis.Domain)),
		zap.String("question_type", string(r.analysis.QuestionType)),
		zap.Bool("analytics", r.req.AnalyticsEnabled),
		zap.Bool("follow_up", r.analysis.IsFollowUp))

	if !r.req.AnalyticsEnabled || r.req.ChatMode == domain.ChatPlain {
		err = r.passThrough()
	} else {
		err = r.research()
	}

	switch {
	case r.ctx.Err() != nil:
		r.cancelled()
	case err != nil:
		r.fail(ErrorKindLLM, err)
	}
}

func (r *run) cancelled() {
	r.svc.counters.cancelled.Add(1)
	r.logger.Info("pipeline run cancelled", zap.Duration("elapsed", time.Since(r.started)))
}

func (r *run) failBeforeStages(kind string, err error) {
	r.svc.counters.errored.Add(1)
	_ = r.emit(domain.PipelineEvent{
		Type:  domain.EventError,
		Error: &domain.RunError{Message: err.Error(), Kind: kind, Stages: []domain.StageResult{}},
	})
}

func (r *run) fail(kind string, err error) {
	r.svc.counters.errored.Add(1)
	r.logger.Error("pipeline run failed", zap.String("kind", kind), zap.Error(err))
	for _, st := range r.stages.Slice() {
		if st.Status != domain.StageActive {
			continue
		}
		if r.setStage(st.Stage, domain.StageError, err.Error(), st.Value) != nil {
			return
		}
	}
	r.stages = r.stages.Abort(err.Error())
	_ = r.emit(domain.PipelineEvent{
		Type:  domain.EventError,
		Error: &domain.RunError{Message: err.Error(), Kind: kind, Stages: r.stages.Slice()},
	})
}

// emit delivers ev unless the run has been cancelled.
func (r *run) emit(ev domain.PipelineEvent) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	ev.Timestamp = time.Now()
	select {
	case r.out <- ev:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func (r *run) sleep(d time.Duration) error {
	if d <= 0 {
		return r.ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func (r *run) setStage(st domain.Stage, status domain.StageStatus, detail string, value float64) error {
	r.stages = r.stages.With(domain.StageResult{
		Stage:  st,
		Status: status,
		Detail: detail,
		Value:  value,
	})
	snapshot := r.stages.Get(st)
	return r.emit(domain.PipelineEvent{Type: domain.EventStage, Stage: &snapshot})
}

func (r *run) progress(st domain.Stage) error {
	p := ProgressPatch(st, r.target)
	r.current = r.current.Apply(p)
	return r.emit(domain.PipelineEvent{Type: domain.EventSignals, Signals: &p})
}

// pin applies the caller's manual overrides on top of s.
func (r *run) pin(s domain.Signals) domain.Signals {
	if r.req.Overrides != nil && !r.req.Overrides.IsEmpty() {
		s = s.Apply(r.req.Overrides.Patch())
		s.SafetyState = domain.SafetyStateForRisk(s.RiskScore)
	}
	return s.Clamp()
}

func (r *run) soarConfig() domain.SOARConfig {
	cfg := r.svc.cfg.SOARDefaults
	if r.req.SOAR != nil {
		cfg = *r.req.SOAR
		if cfg.MaxIterations == 0 {
			cfg.MaxIterations = r.svc.cfg.SOARDefaults.MaxIterations
		}
		if cfg.StonesPerCurriculum == 0 {
			cfg.StonesPerCurriculum = r.svc.cfg.SOARDefaults.StonesPerCurriculum
		}
	}
	return cfg.Normalized()
}

func (r *run) mode() domain.AnalyticalMode {
	if r.req.Mode == "" {
		return domain.ModeDeep
	}
	return r.req.Mode
}

// lightStage runs a stage that needs no model call.
func (r *run) lightStage(st domain.Stage, detail string, value float64) error {
	if err := r.setStage(st, domain.StageActive, "", 0); err != nil {
		return err
	}
	if err := r.progress(st); err != nil {
		return err
	}
	return r.setStage(st, domain.StageComplete, detail, value)
}

func (r *run) research() error {
	r.target = r.pin(r.svc.signals.Generate(r.analysis, r.req.Controls, r.req.Bias))
	r.current = domain.Signals{}.Clamp()

	soarCfg := r.soarConfig()
	r.directives = ComposeSteering(SteeringOptions{
		Controls:         r.req.Controls,
		Bias:             r.req.Bias,
		Overrides:        r.req.Overrides,
		SOAR:             &soarCfg,
		Mode:             r.mode(),
		AnalyticsEnabled: r.req.AnalyticsEnabled,

		PlannedFocusDepth: PlanFocus(r.target.Entropy, r.target.Dissonance).Depth,
	})

	a := r.analysis
	if err := r.lightStage(domain.StageTriage, triageDetail(a, r.target), a.Complexity); err != nil {
		return err
	}
	if err := r.lightStage(domain.StageMemory, memoryDetail(a), float64(len(a.Entities))/float64(domain.MaxEntities)); err != nil {
		return err
	}
	if err := r.lightStage(domain.StageRouting, routingDetail(a, r.target), r.target.FocusDepth/float64(domain.MaxFocusDepth)); err != nil {
		return err
	}
	if err := r.sleep(r.svc.cfg.StagePause); err != nil {
		return err
	}

	analysis, reasoning, err := r.statistical()
	if err != nil {
		return err
	}

	if err := r.lightStage(domain.StageCausal, causalDetail(a, r.target), r.target.Dissonance); err != nil {
		return err
	}
	if err := r.lightStage(domain.StageMetaAnalysis, metaDetail(a, r.target), r.target.MaxPersistence); err != nil {
		return err
	}
	if err := r.sleep(r.svc.cfg.StagePause); err != nil {
		return err
	}

	var session *domain.SOARSession
	if soarCfg.Enabled {
		session, err = r.soar(soarCfg, analysis)
		if err != nil {
			return err
		}
	}

	layman, reflection, arbitration, err := r.synthesize(analysis)
	if err != nil {
		return err
	}

	if err := r.adversarial(reflection); err != nil {
		return err
	}

	truth, err := r.calibrate(analysis)
	if err != nil {
		return err
	}

	answer := strings.TrimSpace(analysis)
	if err := r.streamAnswer(answer); err != nil {
		return err
	}

	return r.complete(domain.PipelineResult{
		Answer:      answer,
		RawAnalysis: analysis,
		Reasoning:   reasoning,
		Layman:      &layman,
		Reflection:  &reflection,
		Arbitration: &arbitration,
		Truth:       &truth,
		Signals:     r.target,
		Stages:      r.stages.Slice(),
		SOAR:        session,
	})
}

func (r *run) statistical() (string, string, error) {
	st := domain.StageStatistical
	if err := r.setStage(st, domain.StageActive, "", 0); err != nil {
		return "", "", err
	}

	system := analysisSystemPrompt
	if r.mode() == domain.ModeConversational {
		system = conversationalSystemPrompt
	}
	req := domain.GenerateRequest{
		System:      withDirectives(system, r.directives),
		Prompt:      analysisPrompt(r.req.Query, r.analysis, r.target),
		Temperature: analysisTemperature * r.target.TemperatureScale,
		MaxTokens:   analysisMaxTokens,
		Images:      r.req.Images,
	}

	text, reasoning, err := r.generateText(req, false)
	if err != nil {
		return "", "", fmt.Errorf("statistical analysis: %w", err)
	}

	if err := r.progress(st); err != nil {
		return "", "", err
	}
	detail := fmt.Sprintf("%d words of analysis via %s", len(strings.Fields(text)), r.statisticalPath)
	if err := r.setStage(st, domain.StageComplete, detail, r.current.Confidence); err != nil {
		return "", "", err
	}
	return text, reasoning, nil
}

// generateText streams req, falling back to one non-streaming call when the
// stream fails. With liveText the answer text is emitted as it arrives and
// the fallback is only taken if nothing was emitted yet. Reasoning the failed
// stream already emitted is not emitted again, so the returned reasoning is
// always exactly what reached the caller.
func (r *run) generateText(req domain.GenerateRequest, liveText bool) (string, string, error) {
	text, sent, emitted, err := r.stream(req, liveText)
	if err == nil {
		r.statisticalPath = "stream"
		return text, sent, nil
	}
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return "", "", ctxErr
	}
	if emitted {
		return "", "", err
	}

	r.logger.Warn("stream failed, retrying without streaming", zap.Error(err))
	full, gerr := callWithTimeout(r.ctx, r.svc.cfg.CallTimeout, func(ctx context.Context) (string, error) {
		return r.client.Generate(ctx, req)
	})
	if gerr != nil {
		return "", "", fmt.Errorf("stream: %v; generate: %w", err, gerr)
	}
	r.statisticalPath = "generate"

	var sp ReasoningSplitter
	var textB, reasonB strings.Builder
	reasonB.WriteString(sent)
	skip := sent
	segs := append(sp.Push(full), sp.Flush()...)
	for _, seg := range segs {
		if seg.Reasoning {
			var fresh string
			fresh, skip = unsentReasoning(skip, seg.Text)
			if fresh == "" {
				continue
			}
			reasonB.WriteString(fresh)
			if err := r.emit(domain.PipelineEvent{Type: domain.EventReasoning, Text: fresh}); err != nil {
				return "", "", err
			}
			continue
		}
		textB.WriteString(seg.Text)
		if liveText {
			if err := r.emit(domain.PipelineEvent{Type: domain.EventTextDelta, Text: seg.Text}); err != nil {
				return "", "", err
			}
		}
	}
	return textB.String(), reasonB.String(), nil
}

// unsentReasoning drops the part of seg the caller has already seen in sent
// and returns what is left of sent to match against later segments. Once the
// retried reasoning diverges from sent, the rest of seg is new and starts on
// its own line.
func unsentReasoning(sent, seg string) (fresh, rest string) {
	if sent == "" {
		return seg, ""
	}
	n := 0
	for n < len(sent) && n < len(seg) && sent[n] == seg[n] {
		n++
	}
	switch {
	case n == len(seg):
		return "", sent[n:]
	case n == len(sent):
		return seg[n:], ""
	default:
		return "\n" + seg[n:], ""
	}
}

// stream consumes one streamed call. emitted reports whether any answer
// text reached the caller; on failure reasoning still holds the reasoning
// that did.
func (r *run) stream(req domain.GenerateRequest, liveText bool) (text, reasoning string, emitted bool, err error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if d := r.svc.cfg.CallTimeout; d > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, d)
	} else {
		ctx, cancel = context.WithCancel(r.ctx)
	}
	defer cancel()

	chunks, errs := r.client.Stream(ctx, req)

	var sp ReasoningSplitter
	var textB, reasonB strings.Builder
	deliver := func(segs []Segment) error {
		for _, seg := range segs {
			if seg.Reasoning {
				reasonB.WriteString(seg.Text)
				if err := r.emit(domain.PipelineEvent{Type: domain.EventReasoning, Text: seg.Text}); err != nil {
					return err
				}
				continue
			}
			textB.WriteString(seg.Text)
			if liveText {
				emitted = true
				if err := r.emit(domain.PipelineEvent{Type: domain.EventTextDelta, Text: seg.Text}); err != nil {
					return err
				}
			}
		}
		return nil
	}

	timedOut := func() error {
		return fmt.Errorf("stream %w after %s", domain.ErrCallTimeout, r.svc.cfg.CallTimeout)
	}

	for {
		select {
		case <-ctx.Done():
			if err := r.ctx.Err(); err != nil {
				return "", reasonB.String(), emitted, err
			}
			return "", reasonB.String(), emitted, timedOut()
		case chunk, ok := <-chunks:
			if !ok {
				if serr := <-errs; serr != nil {
					if err := r.ctx.Err(); err != nil {
						return "", reasonB.String(), emitted, err
					}
					if ctx.Err() != nil {
						return "", reasonB.String(), emitted, timedOut()
					}
					return "", reasonB.String(), emitted, fmt.Errorf("stream: %w", serr)
				}
				if err := deliver(sp.Flush()); err != nil {
					return "", reasonB.String(), emitted, err
				}
				return textB.String(), reasonB.String(), emitted, nil
			}
			if err := r.ctx.Err(); err != nil {
				return "", reasonB.String(), emitted, err
			}
			if err := deliver(sp.Push(chunk)); err != nil {
				return "", reasonB.String(), emitted, err
			}
		}
	}
}

func (r *run) soar(cfg domain.SOARConfig, analysisText string) (*domain.SOARSession, error) {
	probe := SOARProber{}.Probe(r.analysis, r.target, cfg)
	if err := r.emit(domain.PipelineEvent{
		Type: domain.EventSOAR,
		SOAR: &domain.SOAREvent{Kind: domain.SOARProbe, Probe: &probe},
	}); err != nil {
		return nil, err
	}

	if cfg.AutoDetect && !probe.AtEdge {
		r.logger.Debug("soar skipped", zap.String("reason", probe.Reason))
		return nil, nil
	}

	if err := r.emit(domain.PipelineEvent{
		Type: domain.EventSOAR,
		SOAR: &domain.SOAREvent{Kind: domain.SOARStart, Probe: &probe},
	}); err != nil {
		return nil, err
	}

	teacher := NewCurriculumTeacher(r.client, r.svc.ids, r.rng, r.svc.cfg.CallTimeout, r.logger)
	loop := NewSOARLoop(teacher, r.svc.absorber, r.svc.ids, r.logger)
	loop.SetRewardWeights(r.svc.cfg.RewardWeights)
	loop.SetSatisfactionThreshold(r.svc.cfg.SatisfactionThreshold)

	session, err := loop.Run(r.ctx, SOARInput{
		Analysis: r.analysis,
		Signals:  r.target,
		Probe:    probe,
		Config:   cfg,
		Text:     analysisText,
	}, func(i int, c domain.Curriculum, rw domain.SOARReward) error {
		return r.emit(domain.PipelineEvent{
			Type: domain.EventSOAR,
			SOAR: &domain.SOAREvent{Kind: domain.SOARIteration, Iteration: i, Curriculum: &c, Reward: &rw},
		})
	})
	if err != nil {
		return nil, err
	}

	if session.OverallImproved {
		t := r.target
		t.Confidence = session.FinalSignals.Confidence
		t.Entropy = session.FinalSignals.Entropy
		t.Dissonance = session.FinalSignals.Dissonance
		t.HealthScore = ComputeHealth(t.Entropy, t.Dissonance)
		r.target = r.pin(t)
	}

	r.logger.Info("soar session finished",
		zap.String("session_id", session.ID),
		zap.Int("iterations", session.IterationsCompleted),
		zap.Bool("improved", session.OverallImproved))

	if err := r.emit(domain.PipelineEvent{
		Type: domain.EventSOAR,
		SOAR: &domain.SOAREvent{Kind: domain.SOARComplete, Session: &session},
	}); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *run) objectRequest(prompt string) domain.GenerateRequest {
	return domain.GenerateRequest{
		System:      withDirectives("You produce structured research artifacts as JSON.", r.directives),
		Prompt:      prompt,
		Temperature: objectTemperature,
		MaxTokens:   objectMaxTokens,
	}
}

// synthesize runs the bayesian and synthesis stages: three structured calls
// joined without cancellation. Only the layman summary is required.
func (r *run) synthesize(analysis string) (domain.LaymanSummary, domain.Reflection, domain.Arbitration, error) {
	var (
		layman      domain.LaymanSummary
		reflection  domain.Reflection
		arbitration domain.Arbitration
		reflErr     error
		arbErr      error
	)

	for _, st := range []domain.Stage{domain.StageBayesian, domain.StageSynthesis} {
		if err := r.setStage(st, domain.StageActive, "", 0); err != nil {
			return layman, reflection, arbitration, err
		}
	}

	timeout := r.svc.cfg.CallTimeout
	var g errgroup.Group
	g.Go(func() error {
		var err error
		layman, err = generateObject[domain.LaymanSummary](r.ctx, r.client, r.objectRequest(laymanPrompt(r.req.Query, analysis)), domain.ShapeLaymanSummary, timeout)
		return err
	})
	g.Go(func() error {
		reflection, reflErr = generateObject[domain.Reflection](r.ctx, r.client, r.objectRequest(reflectionPrompt(r.req.Query, analysis)), domain.ShapeReflection, timeout)
		return nil
	})
	g.Go(func() error {
		arbitration, arbErr = generateObject[domain.Arbitration](r.ctx, r.client, r.objectRequest(arbitrationPrompt(r.req.Query, analysis)), domain.ShapeArbitration, timeout)
		return nil
	})
	laymanErr := g.Wait()

	if err := r.ctx.Err(); err != nil {
		return layman, reflection, arbitration, err
	}
	if laymanErr != nil {
		return layman, reflection, arbitration, fmt.Errorf("layman summary: %w", laymanErr)
	}
	if reflErr != nil {
		r.logger.Warn("reflection failed, using empty placeholder", zap.String("stage", string(domain.StageSynthesis)), zap.Error(reflErr))
		reflection = domain.EmptyReflection()
	}
	if arbErr != nil {
		r.logger.Warn("arbitration failed, using empty placeholder", zap.String("stage", string(domain.StageBayesian)), zap.Error(arbErr))
		arbitration = domain.EmptyArbitration()
	}
	if reflection.Adjustments == nil {
		reflection.Adjustments = []string{}
	}
	if reflection.SelfCriticalQuestions == nil {
		reflection.SelfCriticalQuestions = []string{}
	}

	if err := r.progress(domain.StageBayesian); err != nil {
		return layman, reflection, arbitration, err
	}
	if err := r.setStage(domain.StageBayesian, domain.StageComplete, arbitrationDetail(arbitration), r.current.Confidence); err != nil {
		return layman, reflection, arbitration, err
	}
	if err := r.progress(domain.StageSynthesis); err != nil {
		return layman, reflection, arbitration, err
	}
	detail := truncateRunes(layman.WhatIsLikelyTrue, domain.MaxCoreQuestionLen)
	if err := r.setStage(domain.StageSynthesis, domain.StageComplete, detail, r.current.HealthScore); err != nil {
		return layman, reflection, arbitration, err
	}
	return layman, reflection, arbitration, nil
}

func (r *run) adversarial(reflection domain.Reflection) error {
	st := domain.StageAdversarial
	if err := r.setStage(st, domain.StageActive, "", 0); err != nil {
		return err
	}

	r.target.Confidence = AdversarialConfidence(r.target.Confidence, len(reflection.Adjustments))
	r.target = r.pin(r.target)

	if err := r.progress(st); err != nil {
		return err
	}
	detail := fmt.Sprintf("%d critical questions, %d adjustments", len(reflection.SelfCriticalQuestions), len(reflection.Adjustments))
	if reflection.Fallback {
		detail += " (reflection unavailable)"
	}
	return r.setStage(st, domain.StageComplete, detail, r.current.Confidence)
}

// AdversarialConfidence lowers confidence by AdjustmentPenalty per
// adjustment, stopping at AdversarialConfidenceFloor. A confidence already
// below the floor is left as is.
func AdversarialConfidence(confidence float64, adjustments int) float64 {
	lowered := confidence - AdjustmentPenalty*float64(adjustments)
	return max(lowered, min(confidence, AdversarialConfidenceFloor))
}

func (r *run) calibrate(analysis string) (domain.TruthAssessment, error) {
	st := domain.StageCalibration
	if err := r.setStage(st, domain.StageActive, "", 0); err != nil {
		return domain.TruthAssessment{}, err
	}

	truth, err := generateObject[domain.TruthAssessment](r.ctx, r.client, r.objectRequest(truthPrompt(r.req.Query, analysis, r.target)), domain.ShapeTruthAssessment, r.svc.cfg.CallTimeout)
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return truth, ctxErr
	}
	if err != nil {
		r.logger.Warn("truth assessment failed, using heuristic", zap.String("stage", string(st)), zap.Error(err))
		truth = HeuristicTruthAssessment(r.target)
	} else if truth.ConfidenceInterval == [2]float64{} {
		truth.ConfidenceInterval = UncertaintyBounds(truth.OverallTruthLikelihood, r.target.Dissonance)
	}
	truth.Band = domain.BandFor(truth.OverallTruthLikelihood)

	if err := r.progress(st); err != nil {
		return truth, err
	}
	detail := fmt.Sprintf("truth likelihood %.2f, %s", truth.OverallTruthLikelihood, truth.Band)
	if truth.Fallback {
		detail += " (heuristic)"
	}
	return truth, r.setStage(st, domain.StageComplete, detail, truth.OverallTruthLikelihood)
}

// streamAnswer emits the answer word by word with randomized pacing.
func (r *run) streamAnswer(answer string) error {
	lo, hi := r.svc.cfg.PacingMin, r.svc.cfg.PacingMax
	for _, word := range wordPattern.FindAllString(answer, -1) {
		if err := r.emit(domain.PipelineEvent{Type: domain.EventTextDelta, Text: word}); err != nil {
			return err
		}
		if hi > 0 {
			d := lo
			if hi > lo {
				d += time.Duration(r.rng.Int64N(int64(hi - lo)))
			}
			if err := r.sleep(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// passThrough is the bare path: one streamed call, no stages, no steering.
func (r *run) passThrough() error {
	req := domain.GenerateRequest{
		System:      conversationalSystemPrompt,
		Prompt:      r.req.Query,
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
		Images:      r.req.Images,
	}
	text, reasoning, err := r.generateText(req, true)
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}

	return r.complete(domain.PipelineResult{
		Answer:    strings.TrimSpace(text),
		Reasoning: reasoning,
		Signals:   r.svc.signals.Generate(r.analysis, r.req.Controls, r.req.Bias),
	})
}

func (r *run) complete(res domain.PipelineResult) error {
	provider, model, _ := strings.Cut(r.client.Name(), "/")
	chatMode := r.req.ChatMode
	if chatMode == "" {
		chatMode = domain.ChatResearch
	}

	res.Query = r.req.Query
	res.Analysis = r.analysis
	res.Metadata = domain.RunMetadata{
		RunID:            r.id,
		Provider:         provider,
		Model:            model,
		ChatMode:         chatMode,
		AnalyticsEnabled: r.req.AnalyticsEnabled,
		Directives:       r.directives,
		Mode:             r.mode(),
		StartedAt:        r.started,
		DurationMs:       time.Since(r.started).Milliseconds(),
		StatisticalPath:  r.statisticalPath,
	}

	if err := r.emit(domain.PipelineEvent{Type: domain.EventComplete, Result: &res}); err != nil {
		return err
	}
	r.svc.counters.completed.Add(1)
	r.logger.Info("pipeline run completed",
		zap.Int64("duration_ms", res.Metadata.DurationMs),
		zap.Bool("soar", res.SOAR != nil))
	return nil
}

func triageDetail(a domain.QueryAnalysis, s domain.Signals) string {
	return fmt.Sprintf("%s %s question, complexity %.2f, safety %s",
		strings.ReplaceAll(string(a.Domain), "_", " "), strings.ReplaceAll(string(a.QuestionType), "_", " "), a.Complexity, s.SafetyState)
}

func memoryDetail(a domain.QueryAnalysis) string {
	var parts []string
	if a.IsFollowUp {
		parts = append(parts, fmt.Sprintf("follow-up to %q", a.CoreQuestion))
		if a.FollowUpFocus != "" {
			parts = append(parts, "focus: "+a.FollowUpFocus)
		}
	}
	if len(a.Entities) > 0 {
		parts = append(parts, "entities: "+strings.Join(a.Entities, ", "))
	}
	if len(parts) == 0 {
		return "no prior context"
	}
	return strings.Join(parts, "; ")
}

func routingDetail(a domain.QueryAnalysis, s domain.Signals) string {
	route := "general reasoning"
	switch {
	case a.IsMetaAnalytical:
		route = "evidence synthesis"
	case a.IsEmpirical:
		route = "empirical analysis"
	case a.IsPhilosophical:
		route = "conceptual analysis"
	}
	return fmt.Sprintf("%s, depth %d, temperature x%.2f", route, int(s.FocusDepth), s.TemperatureScale)
}

func causalDetail(a domain.QueryAnalysis, s domain.Signals) string {
	if a.QuestionType == domain.QuestionCausal {
		return fmt.Sprintf("causal claim under test, dissonance %.2f", s.Dissonance)
	}
	return fmt.Sprintf("no direct causal claim, dissonance %.2f", s.Dissonance)
}

func metaDetail(a domain.QueryAnalysis, s domain.Signals) string {
	concepts := "no tracked concepts"
	if len(s.ActiveConcepts) > 0 {
		concepts = "concepts: " + strings.Join(s.ActiveConcepts, ", ")
	}
	if a.IsMetaAnalytical {
		return "pooling across studies; " + concepts
	}
	return "single-line evidence; " + concepts
}

func arbitrationDetail(a domain.Arbitration) string {
	switch {
	case a.Fallback:
		return "arbitration unavailable"
	case a.Consensus:
		return fmt.Sprintf("consensus across %d engines", len(a.Votes))
	default:
		return fmt.Sprintf("%d engines, %d disagreements", len(a.Votes), len(a.Disagreements))
	}
}
