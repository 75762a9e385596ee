package crew

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/crewflow/delegation"
	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/health"
	"github.com/BaSui01/crewflow/registry"
	"github.com/BaSui01/crewflow/review"
	"github.com/BaSui01/crewflow/taskgraph"
	"github.com/BaSui01/crewflow/types"
)

// tracer emits spans through the globally registered provider, which stays
// noop unless telemetry is initialized.
var tracer = otel.Tracer("github.com/BaSui01/crewflow/crew")

// Config tunes a coordinator.
type Config struct {
	// RunTimeout bounds one kickoff end to end. Zero disables the bound.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout"`
	// EventBuffer is the outbound event stream capacity.
	EventBuffer int `json:"event_buffer" yaml:"event_buffer"`
	// MaxDelegationAttempts bounds re-delegation after rejections.
	MaxDelegationAttempts int `json:"max_delegation_attempts" yaml:"max_delegation_attempts"`
	// Review configures the hierarchical gate and consensus synthesis.
	Review review.Config `json:"review" yaml:"review"`
}

// Responder decides a member's answer to a delegation offer. The default
// accepts every offer; tests and custom integrations override it.
type Responder func(offer delegation.Offer) (delegation.Decision, string)

// Coordinator owns one crew and drives its runs. The task graph is mutated
// only from the coordinator's run loop; workers touch the supervisor, the
// review engine and the event bus, all of which are safe for concurrent use.
type Coordinator struct {
	crew       *Crew
	registry   *registry.AgentTypeRegistry
	supervisor *health.Supervisor
	graph      *taskgraph.Manager
	hub        *delegation.Hub
	engine     *review.Engine
	bus        *events.Bus
	executor   Executor
	reviewer   review.Reviewer
	responder  Responder
	logger     *zap.Logger
	cfg        Config

	initialized bool
	mu          sync.Mutex // guards member status and load
}

// NewCoordinator wires a coordinator around the crew. The review
// configuration is validated here: an unknown synthesis strategy fails
// construction.
func NewCoordinator(c *Crew, reg *registry.AgentTypeRegistry, sup *health.Supervisor, exec Executor, cfg Config, logger *zap.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDelegationAttempts <= 0 {
		cfg.MaxDelegationAttempts = delegation.DefaultMaxAttempts
	}

	bus := events.NewBus(cfg.EventBuffer, logger)
	engine, err := review.NewEngine(cfg.Review, bus, logger)
	if err != nil {
		return nil, err
	}

	coord := &Coordinator{
		crew:       c,
		registry:   reg,
		supervisor: sup,
		graph:      taskgraph.NewManager(logger),
		engine:     engine,
		bus:        bus,
		executor:   exec,
		responder: func(delegation.Offer) (delegation.Decision, string) {
			return delegation.DecisionAccept, ""
		},
		reviewer: review.ReviewerFunc(func(context.Context, review.Request) (review.Feedback, error) {
			return review.Feedback{Decision: review.DecisionApprove}, nil
		}),
		logger: logger.With(zap.String("component", "crew_coordinator"), zap.String("crew", c.Name)),
		cfg:    cfg,
	}
	coord.hub = delegation.NewHub(sup, coord, bus, logger)
	return coord, nil
}

// SetReviewer installs the manager-side reviewer used by the hierarchical
// gate. Production crews wrap the manager member's model client here.
func (c *Coordinator) SetReviewer(r review.Reviewer) { c.reviewer = r }

// SetResponder installs the member-side delegation decision hook.
func (c *Coordinator) SetResponder(r Responder) { c.responder = r }

// Bus exposes the run event stream for external observers.
func (c *Coordinator) Bus() *events.Bus { return c.bus }

// Graph exposes the task graph for snapshotting between runs.
func (c *Coordinator) Graph() *taskgraph.Manager { return c.graph }

// Members implements delegation.Directory. Managers never appear as
// delegation candidates in a hierarchical crew: they review, workers
// execute.
func (c *Coordinator) Members() []delegation.MemberInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]delegation.MemberInfo, 0, len(c.crew.Members))
	for _, m := range c.crew.Members {
		if c.crew.Process == ProcessHierarchical && m.IsManager() {
			continue
		}
		out = append(out, delegation.MemberInfo{
			ID:           m.ID,
			Name:         m.Name,
			AgentType:    m.AgentType,
			Tier:         m.Tier,
			Priority:     m.Priority,
			Capabilities: m.Capabilities,
			Load:         m.Load,
			Idle:         m.Status == MemberIdle,
		})
	}
	return out
}

// Initialize validates the roster against the registry and the process
// type, assigns instance ids, and registers every member for heartbeat
// tracking. Must be called once before Kickoff.
func (c *Coordinator) Initialize() error {
	if len(c.crew.Members) == 0 {
		return types.NewError(types.ErrInvalidCrewConfig, "crew has no members")
	}
	if !c.crew.Process.Valid() {
		return types.NewErrorf(types.ErrInvalidCrewConfig, "unknown process type: %q", c.crew.Process)
	}

	for _, m := range c.crew.Members {
		def, err := c.registry.Resolve(m.AgentType)
		if err != nil {
			return err
		}
		if m.Priority == "" {
			m.Priority = def.Priority
		}
		if m.Priority == "" {
			m.Priority = types.PriorityMedium
		}
		if m.Tier == 0 {
			m.Tier = def.Tier
		}
		m.Status = MemberIdle
		m.InstanceID = uuid.NewString()
		c.supervisor.Track(m.InstanceID, m.ID, def.Heartbeat)
	}

	switch c.crew.Process {
	case ProcessHierarchical:
		if n := len(c.crew.Managers()); n != 1 {
			return types.NewErrorf(types.ErrInvalidCrewConfig,
				"hierarchical crew needs exactly one manager, found %d", n)
		}
	case ProcessConsensus:
		quorum := c.cfg.Review.Synthesis.Quorum
		if quorum <= 0 {
			quorum = review.DefaultQuorum
		}
		if len(c.crew.Members) < quorum {
			// Deliberately non-fatal: small consensus crews run, they just
			// cannot reach quorum without every member responding.
			c.logger.Warn("consensus crew below recommended size",
				zap.Int("members", len(c.crew.Members)),
				zap.Int("quorum", quorum),
			)
		}
	}

	c.initialized = true
	c.logger.Info("crew initialized",
		zap.Int("members", len(c.crew.Members)),
		zap.String("process", string(c.crew.Process)),
	)
	return nil
}

// Kickoff submits the tasks and drives the run until every task is
// terminal, the run timeout elapses, or the context is cancelled. The
// returned result always carries whatever completed, even on failure.
func (c *Coordinator) Kickoff(ctx context.Context, tasks []taskgraph.Task) (*CrewResult, error) {
	if !c.initialized {
		return nil, types.NewError(types.ErrInvalidCrewConfig, "coordinator not initialized")
	}

	runID := uuid.NewString()
	res := &CrewResult{
		RunID:       runID,
		CrewID:      c.crew.ID,
		TaskResults: make(map[string]taskgraph.Result),
	}

	if err := c.graph.BuildGraph(tasks); err != nil {
		// Structural errors abort before anything executes.
		return res, err
	}

	if c.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RunTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "crew.run", trace.WithAttributes(
		attribute.String("crew.id", c.crew.ID),
		attribute.String("crew.process", string(c.crew.Process)),
		attribute.String("run.id", runID),
		attribute.Int("run.tasks", len(tasks)),
	))
	defer span.End()

	start := time.Now()
	c.bus.Emit(events.Event{
		Type:  events.TypeRunStarted,
		RunID: runID,
		Fields: map[string]any{
			"tasks":   len(tasks),
			"process": string(c.crew.Process),
		},
	})

	var runErr error
	for !c.graph.AllTerminal() {
		if ctx.Err() != nil {
			runErr = c.cancelInFlight(runID)
			break
		}

		wave := c.graph.NextSchedulable()
		if len(wave) == 0 {
			if !c.blockStalled(runID) {
				break
			}
			continue
		}

		switch c.crew.Process {
		case ProcessSequential:
			c.runSequentialTask(ctx, runID, wave[0])
		case ProcessHierarchical:
			c.runHierarchicalWave(ctx, runID, wave)
		case ProcessConsensus:
			c.runConsensusTask(ctx, runID, wave[0])
		}
	}

	c.finalize(res, start)
	return res, runErr
}

// runSequentialTask executes one task with the first capable idle member,
// in roster order.
func (c *Coordinator) runSequentialTask(ctx context.Context, runID string, t taskgraph.Task) {
	member := c.pickIdleMember(t.Capabilities)
	if member == nil {
		c.escalateTask(runID, t.ID, "no capable member available")
		return
	}

	token, err := c.supervisor.AcquireSlot(member.AgentType, member.Tier)
	if err != nil {
		c.failRunnable(runID, t.ID, err.Error())
		return
	}
	defer c.supervisor.ReleaseSlot(token)

	if err := c.assignAndStart(runID, t.ID, member.ID); err != nil {
		return
	}
	c.setMemberBusy(member)
	result, execErr := c.execute(ctx, member, t)
	c.setMemberIdle(member)

	c.applyOutcome(ctx, runID, t.ID, member.ID, result, execErr)
}

// hierUnit is one accepted delegation awaiting execution.
type hierUnit struct {
	task   taskgraph.Task
	member *Member
	token  *health.SlotToken
}

// hierOutcome is the reviewed result of one hierarchical execution.
type hierOutcome struct {
	result   taskgraph.Result
	execErr  error
	outcome  review.Outcome
	feedback review.Feedback
}

// runHierarchicalWave delegates every schedulable task through the hub,
// executes accepted delegations concurrently, then applies reviewed
// outcomes to the graph from the run loop.
func (c *Coordinator) runHierarchicalWave(ctx context.Context, runID string, wave []taskgraph.Task) {
	manager := c.crew.Managers()[0]

	var units []hierUnit
	for _, t := range wave {
		unit, ok := c.delegateTask(runID, manager, t)
		if ok {
			units = append(units, unit)
		}
	}

	if len(units) == 0 {
		// Nothing accepted and nothing in flight to free capacity: burn a
		// retry on each task so the run cannot spin forever.
		for _, t := range wave {
			if cur, ok := c.graph.Get(t.ID); ok && cur.Status == taskgraph.StatusPending {
				c.failRunnable(runID, t.ID, "no delegate accepted the task")
			}
		}
		return
	}

	outcomes := make([]hierOutcome, len(units))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		g.Go(func() error {
			outcomes[i] = c.executeWithReview(gctx, manager, u.member, u.task)
			c.supervisor.ReleaseSlot(u.token)
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range units {
		o := outcomes[i]
		c.setMemberIdle(u.member)

		switch {
		case o.execErr != nil || !o.result.Success:
			c.applyOutcome(ctx, runID, u.task.ID, u.member.ID, o.result, o.execErr)
		case o.outcome == review.OutcomeAccepted:
			o.result.ReviewDecision = string(review.DecisionApprove)
			c.completeTask(runID, u.task.ID, u.member.ID, o.result)
		default:
			if ctx.Err() != nil {
				c.failCancelled(runID, u.task.ID)
				continue
			}
			c.escalateTask(runID, u.task.ID, "review exhausted: "+o.feedback.Comments)
		}
	}
}

// delegateTask offers one task through the hub and drives the
// respond/re-offer loop until acceptance, escalation, or no candidate.
func (c *Coordinator) delegateTask(runID string, manager *Member, t taskgraph.Task) (hierUnit, bool) {
	offer, err := c.hub.Delegate(delegation.Request{
		FromMember:  manager.ID,
		TaskID:      t.ID,
		Required:    t.Capabilities,
		MaxAttempts: c.cfg.MaxDelegationAttempts,
	})
	if err != nil {
		if types.IsCode(err, types.ErrNoEligibleDelegate) && c.anyMemberBusy() {
			// Capacity frees up when the current wave drains; try again then.
			return hierUnit{}, false
		}
		c.escalateTask(runID, t.ID, err.Error())
		return hierUnit{}, false
	}

	for offer != nil {
		decision, reason := c.responder(*offer)
		next, req, err := c.hub.Respond(offer.RequestID, decision, reason)
		if err != nil {
			c.escalateTask(runID, t.ID, err.Error())
			return hierUnit{}, false
		}
		if decision == delegation.DecisionAccept {
			member, ok := c.crew.Member(offer.Member.ID)
			if !ok {
				c.supervisor.ReleaseSlot(offer.Token)
				c.escalateTask(runID, t.ID, "accepted by unknown member "+offer.Member.ID)
				return hierUnit{}, false
			}
			if err := c.assignAndStart(runID, t.ID, member.ID); err != nil {
				c.supervisor.ReleaseSlot(offer.Token)
				return hierUnit{}, false
			}
			c.setMemberBusy(member)
			return hierUnit{task: t, member: member, token: offer.Token}, true
		}
		if req.Status == delegation.RequestEscalated {
			c.escalateTask(runID, t.ID, "delegation attempts exhausted")
			return hierUnit{}, false
		}
		offer = next
	}
	return hierUnit{}, false
}

// executeWithReview runs the execute/review loop for one delegated task.
// Rejected and revised results re-execute with the reviewer's comments
// folded into the task context until the revision budget runs out.
func (c *Coordinator) executeWithReview(ctx context.Context, manager, member *Member, t taskgraph.Task) hierOutcome {
	var out hierOutcome
	for round := 0; ; round++ {
		out.result, out.execErr = c.execute(ctx, member, t)
		if out.execErr != nil || !out.result.Success {
			return out
		}

		outcome, fb, err := c.engine.Gate(ctx, c.reviewer, review.Request{
			Task:   t,
			Result: out.result,
			Round:  round,
		})
		out.feedback = fb
		if err != nil {
			c.logger.Warn("review gate failed",
				zap.String("task_id", t.ID),
				zap.String("manager_id", manager.ID),
				zap.Error(err),
			)
			out.outcome = review.OutcomeEscalate
			return out
		}
		if outcome != review.OutcomeRevise {
			out.outcome = outcome
			return out
		}
		if fb.Comments != "" {
			t.Description += "\n\nReviewer feedback: " + fb.Comments
		}
	}
}

// runConsensusTask fans one task out to every capable idle member, gathers
// their outputs, and synthesizes an accepted result.
func (c *Coordinator) runConsensusTask(ctx context.Context, runID string, t taskgraph.Task) {
	panel := c.idleMembersWith(t.Capabilities)
	if len(panel) == 0 {
		c.escalateTask(runID, t.ID, "no capable member available")
		return
	}

	if err := c.assignAndStart(runID, t.ID, panel[0].ID); err != nil {
		return
	}
	for _, m := range panel {
		c.setMemberBusy(m)
	}

	candidates := make([]*review.Candidate, len(panel))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range panel {
		g.Go(func() error {
			token, err := c.supervisor.AcquireSlot(m.AgentType, m.Tier)
			if err != nil {
				return nil
			}
			defer c.supervisor.ReleaseSlot(token)

			result, err := c.execute(gctx, m, t)
			if err != nil || !result.Success {
				return nil
			}
			candidates[i] = &review.Candidate{
				MemberID: m.ID,
				Priority: m.Priority,
				Output:   result.Output,
				Order:    i,
			}
			return nil
		})
	}
	_ = g.Wait()
	for _, m := range panel {
		c.setMemberIdle(m)
	}

	if ctx.Err() != nil {
		c.failCancelled(runID, t.ID)
		return
	}

	var collected []review.Candidate
	for _, cand := range candidates {
		if cand != nil {
			collected = append(collected, *cand)
		}
	}

	out, err := c.engine.Synthesize(t.ID, collected)
	if err != nil {
		c.escalateTask(runID, t.ID, err.Error())
		return
	}
	c.completeTask(runID, t.ID, panel[0].ID, taskgraph.Result{
		TaskID:  t.ID,
		Output:  out,
		Success: true,
	})
}

// execute runs one attempt under the clamped per-task timeout.
func (c *Coordinator) execute(ctx context.Context, member *Member, t taskgraph.Task) (taskgraph.Result, error) {
	timeout := c.supervisor.Policy().ClampTimeout(t.Timeout)
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tctx, span := tracer.Start(tctx, "task.execute", trace.WithAttributes(
		attribute.String("task.id", t.ID),
		attribute.String("member.id", member.ID),
		attribute.String("agent.type", string(member.AgentType)),
	))
	defer span.End()

	c.supervisor.Heartbeat(member.InstanceID)
	return c.executor.ExecuteTask(tctx, member, t)
}

// applyOutcome records a non-reviewed execution outcome on the graph.
func (c *Coordinator) applyOutcome(ctx context.Context, runID, taskID, memberID string, result taskgraph.Result, execErr error) {
	if execErr == nil && result.Success {
		c.completeTask(runID, taskID, memberID, result)
		return
	}

	if ctx.Err() != nil {
		c.failCancelled(runID, taskID)
		return
	}

	reason := result.Error
	if reason == "" && execErr != nil {
		reason = execErr.Error()
	}
	status, err := c.graph.Fail(taskID, reason)
	if err != nil {
		c.logger.Warn("failed to record task failure", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	c.bus.Emit(events.Event{
		Type:     events.TypeTaskFailed,
		RunID:    runID,
		TaskID:   taskID,
		MemberID: memberID,
		Detail:   reason,
		Fields:   map[string]any{"status": string(status)},
	})
	if status == taskgraph.StatusEscalated {
		c.bus.Emit(events.Event{
			Type:   events.TypeEscalationRaised,
			RunID:  runID,
			TaskID: taskID,
			Detail: "retry budget exhausted: " + reason,
		})
		c.blockDependents(runID, taskID)
	}
}

func (c *Coordinator) assignAndStart(runID, taskID, memberID string) error {
	if err := c.graph.Assign(taskID, memberID); err != nil {
		c.logger.Warn("assignment rejected", zap.String("task_id", taskID), zap.Error(err))
		return err
	}
	if err := c.graph.Start(taskID); err != nil {
		return err
	}
	c.bus.Emit(events.Event{
		Type:     events.TypeTaskStarted,
		RunID:    runID,
		TaskID:   taskID,
		MemberID: memberID,
	})
	return nil
}

func (c *Coordinator) completeTask(runID, taskID, memberID string, result taskgraph.Result) {
	if err := c.graph.Complete(taskID, result); err != nil {
		c.logger.Warn("failed to record completion", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	c.bus.Emit(events.Event{
		Type:     events.TypeTaskCompleted,
		RunID:    runID,
		TaskID:   taskID,
		MemberID: memberID,
	})
}

// failRunnable burns one retry on a task that could not start executing.
func (c *Coordinator) failRunnable(runID, taskID, reason string) {
	cur, ok := c.graph.Get(taskID)
	if !ok {
		return
	}
	if cur.Status == taskgraph.StatusPending {
		if err := c.graph.Assign(taskID, ""); err != nil {
			c.escalateTask(runID, taskID, reason)
			return
		}
	}
	status, err := c.graph.Fail(taskID, reason)
	if err != nil {
		return
	}
	if status == taskgraph.StatusEscalated {
		c.bus.Emit(events.Event{
			Type:   events.TypeEscalationRaised,
			RunID:  runID,
			TaskID: taskID,
			Detail: reason,
		})
		c.blockDependents(runID, taskID)
	}
}

func (c *Coordinator) failCancelled(runID, taskID string) {
	if err := c.graph.FailTerminal(taskID, string(types.ErrRunCancelled)); err != nil {
		return
	}
	c.bus.Emit(events.Event{
		Type:   events.TypeTaskFailed,
		RunID:  runID,
		TaskID: taskID,
		Detail: string(types.ErrRunCancelled),
	})
	c.blockDependents(runID, taskID)
}

func (c *Coordinator) escalateTask(runID, taskID, reason string) {
	if err := c.graph.Escalate(taskID, reason); err != nil {
		c.logger.Warn("failed to escalate", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	c.bus.Emit(events.Event{
		Type:   events.TypeEscalationRaised,
		RunID:  runID,
		TaskID: taskID,
		Detail: reason,
	})
	c.blockDependents(runID, taskID)
}

func (c *Coordinator) blockDependents(runID, taskID string) {
	for _, id := range c.graph.BlockDependents(taskID) {
		c.bus.Emit(events.Event{
			Type:   events.TypeTaskFailed,
			RunID:  runID,
			TaskID: id,
			Detail: "blocked: dependency " + taskID + " did not complete",
		})
	}
}

// cancelInFlight terminally fails every non-terminal task when the run
// context is cancelled.
func (c *Coordinator) cancelInFlight(runID string) error {
	for _, t := range c.graph.Tasks() {
		if !t.Status.Terminal() {
			c.failCancelled(runID, t.ID)
		}
	}
	c.mu.Lock()
	for _, m := range c.crew.Members {
		m.Status = MemberIdle
		m.Load = 0
	}
	c.mu.Unlock()
	return types.NewError(types.ErrRunCancelled, "crew run cancelled").WithRetryable(false)
}

// blockStalled handles a run with no schedulable tasks left: dependents of
// non-completed terminal tasks are blocked; anything still stuck after that
// escalates. Returns whether progress was made.
func (c *Coordinator) blockStalled(runID string) bool {
	progressed := false
	for _, t := range c.graph.Tasks() {
		if t.Status.Terminal() && t.Status != taskgraph.StatusCompleted {
			if blocked := c.graph.BlockDependents(t.ID); len(blocked) > 0 {
				progressed = true
				for _, id := range blocked {
					c.bus.Emit(events.Event{
						Type:   events.TypeTaskFailed,
						RunID:  runID,
						TaskID: id,
						Detail: "blocked: dependency " + t.ID + " did not complete",
					})
				}
			}
		}
	}
	if progressed {
		return true
	}
	for _, t := range c.graph.Tasks() {
		if !t.Status.Terminal() {
			c.escalateTask(runID, t.ID, "task can no longer be scheduled")
			progressed = true
		}
	}
	return progressed
}

func (c *Coordinator) finalize(res *CrewResult, start time.Time) {
	for _, t := range c.graph.Tasks() {
		res.Metrics.TasksTotal++
		if t.Result != nil {
			res.TaskResults[t.ID] = *t.Result
			res.Metrics.Tokens += t.Result.Metrics.Tokens
		}
		switch t.Status {
		case taskgraph.StatusCompleted:
			res.Metrics.Completed++
		case taskgraph.StatusFailed:
			res.Metrics.Failed++
			res.FailedTasks = append(res.FailedTasks, FailedTask{TaskID: t.ID, Status: t.Status, Reason: t.LastError})
		case taskgraph.StatusEscalated:
			res.Metrics.Escalated++
			res.FailedTasks = append(res.FailedTasks, FailedTask{TaskID: t.ID, Status: t.Status, Reason: t.LastError})
		case taskgraph.StatusBlocked:
			res.Metrics.Blocked++
			res.FailedTasks = append(res.FailedTasks, FailedTask{TaskID: t.ID, Status: t.Status, Reason: t.LastError})
		}
	}
	res.Metrics.Duration = time.Since(start)
	res.Success = res.Metrics.TasksTotal > 0 && res.Metrics.Completed == res.Metrics.TasksTotal

	c.bus.Emit(events.Event{
		Type:  events.TypeRunFinished,
		RunID: res.RunID,
		Fields: map[string]any{
			"success":   res.Success,
			"completed": res.Metrics.Completed,
			"failed":    len(res.FailedTasks),
		},
	})
	res.Events = c.bus.Log()

	c.logger.Info("crew run finished",
		zap.String("run_id", res.RunID),
		zap.Bool("success", res.Success),
		zap.Duration("duration", res.Metrics.Duration),
		zap.Int("completed", res.Metrics.Completed),
		zap.Int("failed", len(res.FailedTasks)),
	)
}

func (c *Coordinator) pickIdleMember(required []string) *Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.crew.Members {
		if m.Status == MemberIdle && m.HasCapabilities(required) {
			return m
		}
	}
	return nil
}

func (c *Coordinator) idleMembersWith(required []string) []*Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Member
	for _, m := range c.crew.Members {
		if m.Status == MemberIdle && m.HasCapabilities(required) {
			out = append(out, m)
		}
	}
	return out
}

func (c *Coordinator) anyMemberBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.crew.Members {
		if m.Status == MemberActive {
			return true
		}
	}
	return false
}

func (c *Coordinator) setMemberBusy(m *Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.Status = MemberActive
	m.Load++
}

func (c *Coordinator) setMemberIdle(m *Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Execution errors do not sideline the member; the error status is
	// reserved for heartbeat escalations raised by the supervisor.
	m.Status = MemberIdle
	if m.Load > 0 {
		m.Load--
	}
}
