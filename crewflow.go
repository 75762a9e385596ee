// Package crewflow provides a top-level convenience entry point for running
// crews with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/crewflow"
//
//	coord, err := crewflow.New(myCrew, myExecutor)
//	coord, err := crewflow.New(myCrew, myExecutor,
//	    crewflow.WithLogger(logger),
//	    crewflow.WithReviewer(myReviewer),
//	)
//	res, err := coord.Kickoff(ctx, tasks)
//
// The facade registers every builtin agent type and wires a supervisor with
// the stock health policy. Construct the pieces yourself through crew/,
// registry/ and health/ when you need finer control.
package crewflow

import (
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/health"
	"github.com/BaSui01/crewflow/registry"
	"github.com/BaSui01/crewflow/review"
)

// Re-exported core types so simple integrations need a single import.
type (
	Crew        = crew.Crew
	CrewConfig  = crew.CrewConfig
	Member      = crew.Member
	Coordinator = crew.Coordinator
	Result      = crew.CrewResult
	Executor    = crew.Executor
)

// NewCrew creates an empty crew.
var NewCrew = crew.NewCrew

type options struct {
	logger    *zap.Logger
	policy    health.Policy
	cfg       crew.Config
	reviewer  review.Reviewer
	responder crew.Responder
}

// Option configures the coordinator created by [New].
type Option func(*options)

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPolicy overrides the default health policy.
func WithPolicy(p health.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithConfig overrides the default coordinator configuration.
func WithConfig(cfg crew.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithReviewer sets the reviewer used by hierarchical review gates.
func WithReviewer(r review.Reviewer) Option {
	return func(o *options) { o.reviewer = r }
}

// WithResponder sets how members answer delegation offers.
func WithResponder(r crew.Responder) Option {
	return func(o *options) { o.responder = r }
}

// New wires a ready-to-run coordinator: builtin agent types registered, a
// supervisor under the stock policy, and the crew initialized.
func New(c *crew.Crew, exec crew.Executor, opts ...Option) (*crew.Coordinator, error) {
	o := options{policy: health.DefaultPolicy()}
	for _, opt := range opts {
		opt(&o)
	}

	reg := registry.NewAgentTypeRegistry(o.logger)
	for _, def := range registry.BuiltinDefinitions() {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}

	sup := health.NewSupervisor(o.policy, events.NopSink{}, o.logger)

	coord, err := crew.NewCoordinator(c, reg, sup, exec, o.cfg, o.logger)
	if err != nil {
		return nil, err
	}
	if o.reviewer != nil {
		coord.SetReviewer(o.reviewer)
	}
	if o.responder != nil {
		coord.SetResponder(o.responder)
	}
	if err := coord.Initialize(); err != nil {
		return nil, err
	}
	return coord, nil
}
