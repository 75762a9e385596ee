package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Type identifies an orchestration event.
type Type string

const (
	TypeRunStarted          Type = "run_started"
	TypeRunFinished         Type = "run_finished"
	TypeTaskStarted         Type = "task_started"
	TypeTaskCompleted       Type = "task_completed"
	TypeTaskFailed          Type = "task_failed"
	TypeDelegationRequested Type = "delegation_requested"
	TypeDelegationResolved  Type = "delegation_resolved"
	TypeReviewDecision      Type = "review_decision"
	TypeEscalationRaised    Type = "escalation_raised"
	TypeHeartbeatMissed     Type = "heartbeat_missed"
	TypeAgentRestarted      Type = "agent_restarted"
)

// Event is one entry of the outbound notification stream. Events are
// fire-and-forget: observers can never block or fail a run.
type Event struct {
	Type       Type           `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	RunID      string         `json:"run_id,omitempty"`
	TaskID     string         `json:"task_id,omitempty"`
	MemberID   string         `json:"member_id,omitempty"`
	InstanceID string         `json:"instance_id,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Sink receives orchestration events.
type Sink interface {
	Emit(Event)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

// Bus is a bounded event queue for one crew run. Emission never blocks: when
// the outbound channel is full the event is dropped from the stream (it stays
// in the retained log) and the drop is counted. Ordering on the stream
// matches emission order.
type Bus struct {
	ch      chan Event
	log     []Event
	dropped int64
	closed  bool
	warn    rate.Sometimes
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewBus creates a bus with the given outbound channel capacity.
func NewBus(capacity int, logger *zap.Logger) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		ch:     make(chan Event, capacity),
		warn:   rate.Sometimes{Interval: time.Second},
		logger: logger.With(zap.String("component", "event_bus")),
	}
}

// Emit appends the event to the retained log and offers it to the outbound
// stream. Never blocks.
func (b *Bus) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.log = append(b.log, ev)

	select {
	case b.ch <- ev:
	default:
		b.dropped++
		dropped := b.dropped
		b.warn.Do(func() {
			b.logger.Warn("event stream full, dropping",
				zap.String("type", string(ev.Type)),
				zap.Int64("dropped_total", dropped),
			)
		})
	}
	b.mu.Unlock()
}

// Events returns the outbound stream. The channel is closed by Close.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Log returns a copy of every event emitted so far, in emission order,
// including events dropped from the bounded stream.
func (b *Bus) Log() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.log))
	copy(out, b.log)
	return out
}

// LogByType filters the retained log.
func (b *Bus) LogByType(t Type) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, ev := range b.log {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Dropped returns how many events did not fit on the outbound stream.
func (b *Bus) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes the outbound stream. Emit after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
