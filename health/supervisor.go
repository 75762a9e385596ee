package health

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/registry"
	"github.com/BaSui01/crewflow/types"
)

// InstanceState is the supervisor's view of one tracked agent instance.
type InstanceState string

const (
	InstanceOK    InstanceState = "ok"
	InstanceError InstanceState = "error"
)

// HeartbeatRecord tracks liveness of one agent instance.
type HeartbeatRecord struct {
	InstanceID   string                   `json:"instance_id"`
	MemberID     string                   `json:"member_id,omitempty"`
	Config       registry.HeartbeatConfig `json:"config"`
	LastSeen     time.Time                `json:"last_seen"`
	MissedCount  int                      `json:"missed_count"`
	RestartCount int                      `json:"restart_count"`
	State        InstanceState            `json:"state"`
}

// SlotToken is proof of acquired capacity. Release it through the supervisor
// that issued it; releasing twice is a no-op.
type SlotToken struct {
	ID         string
	AgentType  types.AgentType
	Tier       types.Tier
	AcquiredAt time.Time
}

// Supervisor enforces concurrency ceilings and watches instance heartbeats.
// Its counters are the single point of mutable shared state in the core;
// AcquireSlot and ReleaseSlot are the only mutation entry points.
type Supervisor struct {
	policy Policy
	sink   events.Sink
	logger *zap.Logger

	mu         sync.Mutex
	byType     map[types.AgentType]int
	byTier     map[types.Tier]int
	total      int
	openSlots  map[string]*SlotToken
	instances  map[string]*HeartbeatRecord
	cancelTick context.CancelFunc
	tickDone   chan struct{}
}

// NewSupervisor creates a supervisor with the given policy. A nil sink
// discards events.
func NewSupervisor(policy Policy, sink events.Sink, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Supervisor{
		policy:    policy,
		sink:      sink,
		logger:    logger.With(zap.String("component", "health_supervisor")),
		byType:    make(map[types.AgentType]int),
		byTier:    make(map[types.Tier]int),
		openSlots: make(map[string]*SlotToken),
		instances: make(map[string]*HeartbeatRecord),
	}
}

// Policy returns the supervisor's policy.
func (s *Supervisor) Policy() Policy {
	return s.policy
}

// AcquireSlot grants a capacity token when the type, tier, and global
// ceilings all have headroom; otherwise it fails with RESOURCE_EXHAUSTED and
// the caller decides whether to queue or reject.
func (s *Supervisor) AcquireSlot(agentType types.AgentType, tier types.Tier) (*SlotToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total >= s.policy.MaxConcurrentAgents {
		return nil, types.NewErrorf(types.ErrResourceExhausted,
			"global ceiling reached: %d active agents", s.total).WithRetryable(true)
	}
	if s.byType[agentType] >= s.policy.MaxConcurrentPerType {
		return nil, types.NewErrorf(types.ErrResourceExhausted,
			"type ceiling reached for %s: %d active", agentType, s.byType[agentType]).WithRetryable(true)
	}
	if s.byTier[tier] >= s.policy.TierCeiling(tier) {
		return nil, types.NewErrorf(types.ErrResourceExhausted,
			"tier %d ceiling reached: %d active", tier, s.byTier[tier]).WithRetryable(true)
	}

	token := &SlotToken{
		ID:         uuid.NewString(),
		AgentType:  agentType,
		Tier:       tier,
		AcquiredAt: time.Now(),
	}
	s.byType[agentType]++
	s.byTier[tier]++
	s.total++
	s.openSlots[token.ID] = token
	return token, nil
}

// ReleaseSlot returns capacity. Idempotent: releasing an already released or
// unknown token is a no-op, so crash-recovery replays are harmless.
func (s *Supervisor) ReleaseSlot(token *SlotToken) {
	if token == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, open := s.openSlots[token.ID]; !open {
		return
	}
	delete(s.openSlots, token.ID)
	s.byType[token.AgentType]--
	s.byTier[token.Tier]--
	s.total--
}

// ActiveCount returns the active instance count for a type.
func (s *Supervisor) ActiveCount(agentType types.AgentType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byType[agentType]
}

// ActiveTierCount returns the active instance count for a tier.
func (s *Supervisor) ActiveTierCount(tier types.Tier) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byTier[tier]
}

// TotalActive returns the total number of active instances.
func (s *Supervisor) TotalActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Track registers an instance for heartbeat supervision.
func (s *Supervisor) Track(instanceID, memberID string, cfg registry.HeartbeatConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = registry.DefaultHeartbeat.Interval
	}
	if cfg.MissedThreshold <= 0 {
		cfg.MissedThreshold = registry.DefaultHeartbeat.MissedThreshold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[instanceID] = &HeartbeatRecord{
		InstanceID: instanceID,
		MemberID:   memberID,
		Config:     cfg,
		LastSeen:   time.Now(),
		State:      InstanceOK,
	}
}

// Untrack stops supervising an instance.
func (s *Supervisor) Untrack(instanceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, instanceID)
}

// Heartbeat records a liveness signal: resets the missed count and the
// last-seen timestamp.
func (s *Supervisor) Heartbeat(instanceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.instances[instanceID]
	if !ok {
		return
	}
	rec.LastSeen = time.Now()
	rec.MissedCount = 0
}

// Record returns a copy of the heartbeat record for an instance.
func (s *Supervisor) Record(instanceID string) (HeartbeatRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.instances[instanceID]
	if !ok {
		return HeartbeatRecord{}, false
	}
	return *rec, true
}

// Tick advances heartbeat supervision to the given time. Instances whose
// interval elapsed since last-seen accrue a missed heartbeat; at the missed
// threshold the instance is either restarted (bounded by max restarts) or
// escalated and marked error. Exported so tests can drive time explicitly;
// the Start loop calls it with wall-clock time.
func (s *Supervisor) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.instances {
		if rec.State == InstanceError {
			continue
		}
		if now.Sub(rec.LastSeen) <= rec.Config.Interval {
			continue
		}

		rec.MissedCount++
		rec.LastSeen = now
		s.sink.Emit(events.Event{
			Type:       events.TypeHeartbeatMissed,
			InstanceID: rec.InstanceID,
			MemberID:   rec.MemberID,
			Fields:     map[string]any{"missed_count": rec.MissedCount},
		})

		if rec.MissedCount < rec.Config.MissedThreshold {
			continue
		}

		if rec.Config.AutoRestart && rec.RestartCount < rec.Config.MaxRestarts {
			rec.RestartCount++
			rec.MissedCount = 0
			s.logger.Warn("restarting unresponsive instance",
				zap.String("instance_id", rec.InstanceID),
				zap.Int("restart_count", rec.RestartCount),
			)
			s.sink.Emit(events.Event{
				Type:       events.TypeAgentRestarted,
				InstanceID: rec.InstanceID,
				MemberID:   rec.MemberID,
				Fields:     map[string]any{"restart_count": rec.RestartCount},
			})
			continue
		}

		// Fatal for the instance, not for the process.
		rec.State = InstanceError
		code := types.ErrHeartbeatTimeout
		if rec.Config.AutoRestart {
			code = types.ErrRestartLimitExceeded
		}
		s.logger.Error("escalating unresponsive instance",
			zap.String("instance_id", rec.InstanceID),
			zap.String("code", string(code)),
			zap.Int("restart_count", rec.RestartCount),
		)
		s.sink.Emit(events.Event{
			Type:       events.TypeEscalationRaised,
			InstanceID: rec.InstanceID,
			MemberID:   rec.MemberID,
			Detail:     string(code),
		})
	}
}

// Start runs the periodic tick loop until Stop is called or the context is
// cancelled.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancelTick != nil {
		s.mu.Unlock()
		return
	}
	tickCtx, cancel := context.WithCancel(ctx)
	s.cancelTick = cancel
	done := make(chan struct{})
	s.tickDone = done
	interval := s.policy.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case now := <-ticker.C:
				s.Tick(now)
			}
		}
	}()
}

// Stop halts the tick loop and waits for it to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancelTick
	done := s.tickDone
	s.cancelTick = nil
	s.tickDone = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
