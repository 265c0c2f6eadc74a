// Package workflow sequences generation steps behind an assessment gate.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/job-seeker/internal/ai"
	"github.com/spigell/job-seeker/internal/generation"
	"github.com/spigell/job-seeker/internal/logger"
)

const (
	DefaultMaxSteps    = 8
	DefaultStepTimeout = 60 * time.Second

	reasonAssessmentUnavailable = "assessment unavailable"
)

// MissingUpstream decides what interview preparation does when the CV or the
// cover letter is missing.
type MissingUpstream string

const (
	// MissingUpstreamSkip records the step as upstream_unavailable without
	// calling the generator.
	MissingUpstreamSkip MissingUpstream = "skip"
	// MissingUpstreamPlaceholder calls the generator with an explicit
	// "not available" marker in place of the missing document.
	MissingUpstreamPlaceholder MissingUpstream = "placeholder"
)

// Config holds controller settings.
type Config struct {
	Threshold       float64
	MaxSteps        int
	StepTimeout     time.Duration
	MissingUpstream MissingUpstream
	// Documents limits generation to these kinds; empty means all of them.
	// The assessment always runs.
	Documents []generation.Kind
}

// DefaultConfig returns the default controller settings.
func DefaultConfig() Config {
	return Config{
		Threshold:       DefaultThreshold,
		MaxSteps:        DefaultMaxSteps,
		StepTimeout:     DefaultStepTimeout,
		MissingUpstream: MissingUpstreamSkip,
	}
}

// ConfigurationError stops a run before any generator call.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Result is the outcome of one run.
type Result struct {
	RunID           string                                   `json:"run_id"`
	State           State                                    `json:"state"`
	Rejected        bool                                     `json:"rejected"`
	RejectionReason string                                   `json:"rejection_reason,omitempty"`
	Halted          bool                                     `json:"halted"`
	Assessment      *generation.Assessment                   `json:"assessment,omitempty"`
	Artifacts       map[generation.Kind]*generation.Artifact `json:"-"`
	Failures        map[generation.Kind]*generation.Error    `json:"failures,omitempty"`
	StepLog         []StepRecord                             `json:"step_log"`
	StartedAt       time.Time                                `json:"started_at"`
	FinishedAt      time.Time                                `json:"finished_at"`
}

// Option customizes a Controller.
type Option func(*Controller)

// WithDriver replaces the default TableDriver.
func WithDriver(d Driver) Option {
	return func(c *Controller) { c.driver = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller runs the workflow. It performs no file I/O.
type Controller struct {
	generator ai.Generator
	steps     generation.Steps
	cfg       Config
	driver    Driver
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	// nil selects every document kind.
	selected map[generation.Kind]bool
}

// New validates cfg and builds a Controller.
func New(gen ai.Generator, steps generation.Steps, cfg Config, opts ...Option) (*Controller, error) {
	if gen == nil {
		return nil, &ConfigurationError{Field: "generator", Err: errors.New("generator is required")}
	}
	for _, kind := range []generation.Kind{
		generation.KindAssessment,
		generation.KindCV,
		generation.KindCoverLetter,
		generation.KindInterviewPrep,
	} {
		if _, ok := steps.Find(kind); !ok {
			return nil, &ConfigurationError{Field: "steps", Err: fmt.Errorf("no step for %s", kind)}
		}
	}

	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 || cfg.Threshold > 100 {
		return nil, &ConfigurationError{Field: "threshold", Err: fmt.Errorf("%v is outside [0,100]", cfg.Threshold)}
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	switch cfg.MissingUpstream {
	case "":
		cfg.MissingUpstream = MissingUpstreamSkip
	case MissingUpstreamSkip, MissingUpstreamPlaceholder:
	default:
		return nil, &ConfigurationError{Field: "missing-upstream", Err: fmt.Errorf("unknown policy %q", cfg.MissingUpstream)}
	}

	selected := map[generation.Kind]bool{}
	for _, kind := range cfg.Documents {
		switch kind {
		case generation.KindCV, generation.KindCoverLetter, generation.KindInterviewPrep:
			selected[kind] = true
		default:
			return nil, &ConfigurationError{Field: "documents", Err: fmt.Errorf("%q is not a document kind", kind)}
		}
	}
	if len(selected) == 0 {
		selected = nil
	}

	c := &Controller{
		selected:  selected,
		generator: gen,
		steps:     steps,
		cfg:       cfg,
		driver:    TableDriver{},
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.driver == nil {
		c.driver = TableDriver{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Run drives one posting/profile pair to a terminal state. The returned error
// is a *ConfigurationError for unusable inputs or the context error when ctx
// ends mid-run; step failures are reported in Result.Failures.
func (c *Controller) Run(ctx context.Context, posting string, profile map[string]any) (*Result, error) {
	if strings.TrimSpace(posting) == "" {
		return nil, &ConfigurationError{Field: "posting", Err: errors.New("job posting is empty")}
	}
	if len(profile) == 0 {
		return nil, &ConfigurationError{Field: "profile", Err: errors.New("candidate profile is empty")}
	}

	res := &Result{RunID: c.newID(), StartedAt: c.now()}
	log := logger.WithCommonFields(logger.WithRun(c.logger, res.RunID), c.generator.Provider(), c.generator.Model())

	ws := newWorkflowState()
	ws.state = StateAssessing

	var runErr error
	for !ws.state.Terminal() {
		if err := ctx.Err(); err != nil {
			runErr = err
			res.Halted = true
			ws.state = StateDone
			break
		}
		if ws.requests >= c.cfg.MaxSteps {
			log.Warn("step limit reached, halting", zap.Int("max_steps", c.cfg.MaxSteps))
			res.Halted = true
			ws.state = StateDone
			break
		}

		kind, ok := c.driver.Next(ws.snapshot())
		if !ok {
			log.Warn("driver stopped before completion", zap.String("state", string(ws.state)))
			res.Halted = true
			ws.state = StateDone
			break
		}
		ws.requests++

		c.request(ctx, log, ws, res, posting, profile, kind)
	}

	res.State = ws.state
	res.Assessment = ws.assessment
	res.Artifacts = ws.artifacts
	res.Failures = ws.failures
	res.StepLog = ws.log
	res.FinishedAt = c.now()

	log.Info("workflow finished",
		zap.String("state", string(res.State)),
		zap.Bool("rejected", res.Rejected),
		zap.Bool("halted", res.Halted),
		zap.Int("artifacts", len(res.Artifacts)),
		zap.Int("failures", len(res.Failures)),
	)

	return res, runErr
}

func (c *Controller) request(ctx context.Context, log *zap.Logger, ws *workflowState, res *Result, posting string, profile map[string]any, kind generation.Kind) {
	stepLog := logger.WithStep(log, string(kind))

	if ws.executed[kind] {
		ws.record(kind, StatusSkippedDuplicate, "", 0)
		stepLog.Warn("step already executed, skipping")
		return
	}
	if kind != generation.KindAssessment && !ws.gatePassed {
		ws.record(kind, StatusBlockedByGate, "", 0)
		stepLog.Warn("step blocked by assessment gate")
		return
	}
	if expected, _ := ws.state.Expected(); kind != expected {
		ws.record(kind, StatusSkippedOutOfOrder, "", 0)
		stepLog.Warn("step requested out of order", zap.String("expected", string(expected)))
		return
	}

	step, _ := c.steps.Find(kind)
	in := generation.Inputs{
		Posting:           posting,
		Profile:           profile,
		Assessment:        ws.assessment,
		Artifacts:         maps.Clone(ws.artifacts),
		AllowPlaceholders: c.cfg.MissingUpstream == MissingUpstreamPlaceholder,
	}

	started := c.now()
	artifact, err := c.execute(ctx, step, in)
	elapsed := c.now().Sub(started)

	ws.markExecuted(kind)

	if err != nil {
		genErr := asGenerationError(kind, err)
		ws.failures[kind] = genErr
		ws.record(kind, StatusFailed, genErr.Reason, elapsed)
		stepLog.Warn("step failed",
			zap.String("reason", string(genErr.Reason)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	} else {
		ws.record(kind, StatusSucceeded, "", elapsed)
		stepLog.Info("step completed", zap.Duration("duration", elapsed))
	}

	if kind == generation.KindAssessment {
		c.applyGate(stepLog, ws, res, artifact)
		return
	}

	if artifact != nil {
		ws.artifacts[kind] = artifact
	}
	ws.state = c.advance(ws.state)
}

// advance moves to the next selected generation state, or done.
func (c *Controller) advance(s State) State {
	for {
		s = nextDocumentState(s)
		kind, ok := s.Expected()
		if !ok || c.selected == nil || c.selected[kind] {
			return s
		}
	}
}

// execute runs the step under the step timeout. A generator that ignores its
// context is abandoned when the timeout fires; its late result is dropped.
func (c *Controller) execute(ctx context.Context, step generation.Step, in generation.Inputs) (*generation.Artifact, error) {
	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	defer cancel()

	type outcome struct {
		artifact *generation.Artifact
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		artifact, err := step.Execute(stepCtx, c.generator, in)
		done <- outcome{artifact: artifact, err: err}
	}()

	select {
	case out := <-done:
		return out.artifact, out.err
	case <-stepCtx.Done():
		err := stepCtx.Err()
		reason := generation.ReasonGenerationFailed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = generation.ReasonTimeout
		}
		return nil, &generation.Error{Kind: step.Kind, Reason: reason, Detail: err.Error(), Err: err}
	}
}

func (c *Controller) applyGate(log *zap.Logger, ws *workflowState, res *Result, artifact *generation.Artifact) {
	if artifact == nil || artifact.Assessment == nil {
		res.Rejected = true
		res.RejectionReason = reasonAssessmentUnavailable
		ws.state = StateRejected
		log.Info("run rejected", zap.String("reason", res.RejectionReason))
		return
	}

	ws.assessment = artifact.Assessment
	score := ws.assessment.Score()

	if !Passes(score, c.cfg.Threshold) {
		res.Rejected = true
		if ws.assessment.Scored() {
			res.RejectionReason = fmt.Sprintf("match score %.1f is below threshold %.1f", score, c.cfg.Threshold)
		} else {
			res.RejectionReason = "match score is missing or invalid"
		}
		ws.state = StateRejected
		log.Info("run rejected",
			zap.String("reason", res.RejectionReason),
			zap.Float64("threshold", c.cfg.Threshold),
		)
		return
	}

	ws.gatePassed = true
	ws.state = c.advance(StateAssessing)
	log.Info("assessment passed", zap.Float64("score", score), zap.Float64("threshold", c.cfg.Threshold))
}

func asGenerationError(kind generation.Kind, err error) *generation.Error {
	var genErr *generation.Error
	if errors.As(err, &genErr) {
		return genErr
	}
	return &generation.Error{Kind: kind, Reason: generation.ReasonGenerationFailed, Detail: err.Error(), Err: err}
}
