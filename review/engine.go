package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/taskgraph"
	"github.com/BaSui01/crewflow/types"
)

// Decision is a reviewer's verdict on a task result.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionRevise  Decision = "revise"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionRevise:
		return true
	}
	return false
}

// Request carries a task result to a reviewer. Round starts at 0 and counts
// revision rounds for the same task.
type Request struct {
	Task   taskgraph.Task   `json:"task"`
	Result taskgraph.Result `json:"result"`
	Round  int              `json:"round"`
}

// Feedback is the reviewer's response.
type Feedback struct {
	Decision Decision `json:"decision"`
	Comments string   `json:"comments,omitempty"`
}

// Reviewer judges a task result. In a hierarchical crew this is the manager
// member; implementations usually call a language model.
type Reviewer interface {
	Review(ctx context.Context, req Request) (Feedback, error)
}

// ReviewerFunc adapts a function to the Reviewer interface.
type ReviewerFunc func(ctx context.Context, req Request) (Feedback, error)

// Review implements Reviewer.
func (f ReviewerFunc) Review(ctx context.Context, req Request) (Feedback, error) {
	return f(ctx, req)
}

// DefaultMaxRevisions bounds how many revise rounds a task gets before the
// engine escalates.
const DefaultMaxRevisions = 2

// Config configures an Engine.
type Config struct {
	// MaxRevisions is how many revise rounds a task may go through. Past
	// this bound a revise verdict escalates instead.
	MaxRevisions int `json:"max_revisions" yaml:"max_revisions"`
	// Synthesis configures output merging for consensus crews.
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
}

// Engine runs hierarchical review gates and consensus synthesis. Invalid
// synthesis configuration is rejected at construction, never at run time.
type Engine struct {
	maxRevisions int
	synth        *Synthesizer
	sink         events.Sink
	logger       *zap.Logger
}

// NewEngine builds a review engine. A zero-valued Synthesis strategy is
// allowed for crews that never synthesize; any non-empty strategy must be a
// known one.
func NewEngine(cfg Config, sink events.Sink, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	if cfg.MaxRevisions <= 0 {
		cfg.MaxRevisions = DefaultMaxRevisions
	}

	var synth *Synthesizer
	if cfg.Synthesis.Strategy != "" {
		var err error
		synth, err = NewSynthesizer(cfg.Synthesis)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		maxRevisions: cfg.MaxRevisions,
		synth:        synth,
		sink:         sink,
		logger:       logger.With(zap.String("component", "review_engine")),
	}, nil
}

// MaxRevisions returns the revise-round bound.
func (e *Engine) MaxRevisions() int { return e.maxRevisions }

// Outcome is the engine's instruction to the coordinator after one gate.
type Outcome string

const (
	// OutcomeAccepted means the result passed review.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRevise means the task should be re-executed with the
	// reviewer's comments attached.
	OutcomeRevise Outcome = "revise"
	// OutcomeEscalate means the revision budget is exhausted and the task
	// escalates to a human operator.
	OutcomeEscalate Outcome = "escalate"
)

// Gate submits a task result to the reviewer and translates the verdict into
// a coordinator outcome. A revise verdict past MaxRevisions escalates. The
// decision is emitted on the event stream either way.
func (e *Engine) Gate(ctx context.Context, reviewer Reviewer, req Request) (Outcome, Feedback, error) {
	fb, err := reviewer.Review(ctx, req)
	if err != nil {
		return OutcomeEscalate, fb, fmt.Errorf("reviewer failed for task %s: %w", req.Task.ID, err)
	}
	if !fb.Decision.Valid() {
		return OutcomeEscalate, fb, types.NewErrorf(types.ErrInvalidTransition,
			"reviewer returned unknown decision %q", fb.Decision).WithTask(req.Task.ID)
	}

	e.sink.Emit(events.Event{
		Type:   events.TypeReviewDecision,
		TaskID: req.Task.ID,
		Detail: string(fb.Decision),
		Fields: map[string]any{"round": req.Round, "comments": fb.Comments},
	})
	e.logger.Debug("review decision",
		zap.String("task_id", req.Task.ID),
		zap.String("decision", string(fb.Decision)),
		zap.Int("round", req.Round),
	)

	if fb.Decision == DecisionApprove {
		return OutcomeAccepted, fb, nil
	}
	// Reject and revise both send the task back for re-execution while the
	// revision budget lasts.
	if req.Round >= e.maxRevisions {
		e.logger.Warn("revision rounds exhausted",
			zap.String("task_id", req.Task.ID),
			zap.String("decision", string(fb.Decision)),
		)
		return OutcomeEscalate, fb, nil
	}
	return OutcomeRevise, fb, nil
}

// Synthesize merges consensus candidates for a task through the configured
// strategy.
func (e *Engine) Synthesize(taskID string, candidates []Candidate) (any, error) {
	if e.synth == nil {
		return nil, types.NewError(types.ErrInvalidSynthesisStrategy,
			"engine built without a synthesis strategy")
	}
	out, err := e.synth.Synthesize(candidates)
	if err != nil {
		e.logger.Warn("synthesis failed",
			zap.String("task_id", taskID),
			zap.String("strategy", string(e.synth.Strategy())),
			zap.Error(err),
		)
		return nil, err
	}
	e.sink.Emit(events.Event{
		Type:   events.TypeReviewDecision,
		TaskID: taskID,
		Detail: "synthesized",
		Fields: map[string]any{
			"strategy":   string(e.synth.Strategy()),
			"candidates": len(candidates),
		},
	})
	return out, nil
}
