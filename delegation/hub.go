package delegation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/events"
	"github.com/BaSui01/crewflow/health"
	"github.com/BaSui01/crewflow/types"
)

// RequestStatus is the lifecycle state of a delegation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestExpired   RequestStatus = "expired"
	RequestEscalated RequestStatus = "escalated"
)

// Decision is a member's answer to an offered delegation.
type Decision string

const (
	DecisionAccept Decision = "accepted"
	DecisionReject Decision = "rejected"
)

// DefaultMaxAttempts bounds re-delegation after rejections before the
// request escalates.
const DefaultMaxAttempts = 3

// MemberInfo is the hub's view of one crew member for matching.
type MemberInfo struct {
	ID           string
	Name         string
	AgentType    types.AgentType
	Tier         types.Tier
	Priority     types.Priority
	Capabilities []string
	Load         int
	Idle         bool
}

// HasCapabilities reports whether the member's capability set is a superset
// of the required set.
func (m MemberInfo) HasCapabilities(required []string) bool {
	for _, req := range required {
		found := false
		for _, c := range m.Capabilities {
			if c == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Directory supplies the current member roster. The crew coordinator
// implements it.
type Directory interface {
	Members() []MemberInfo
}

// Request is one delegation request tracked by the hub.
type Request struct {
	ID           string        `json:"id"`
	FromMember   string        `json:"from_member"`
	ToMember     string        `json:"to_member,omitempty"` // empty means any capable member
	TaskID       string        `json:"task_id"`
	Required     []string      `json:"required_capabilities,omitempty"`
	Deadline     time.Time     `json:"deadline,omitzero"`
	Status       RequestStatus `json:"status"`
	OfferedTo    string        `json:"offered_to,omitempty"`
	Attempts     int           `json:"attempts"`
	MaxAttempts  int           `json:"max_attempts"`
	Reason       string        `json:"reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ResolvedAt   time.Time     `json:"resolved_at,omitzero"`
	rejectedBy   map[string]bool
	token        *health.SlotToken
}

// Offer is a pending delegation handed to the caller: the chosen member and
// the capacity token reserved for it.
type Offer struct {
	RequestID string
	Member    MemberInfo
	Token     *health.SlotToken
}

// Hub brokers task hand-off between crew members using hub-and-spoke
// capability matching. It never executes tasks itself; it matches, reserves
// capacity, and tracks the request/response lifecycle.
type Hub struct {
	supervisor *health.Supervisor
	directory  Directory
	sink       events.Sink
	logger     *zap.Logger

	requests map[string]*Request
	mu       sync.Mutex
}

// NewHub creates a delegation hub.
func NewHub(supervisor *health.Supervisor, directory Directory, sink events.Sink, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Hub{
		supervisor: supervisor,
		directory:  directory,
		sink:       sink,
		logger:     logger.With(zap.String("component", "delegation_hub")),
		requests:   make(map[string]*Request),
	}
}

// Delegate matches the request against idle members and reserves capacity
// for the best candidate. Eligibility requires a capability superset and a
// grantable slot; ties break by lowest load, then higher declared priority.
// Fails with NO_ELIGIBLE_DELEGATE when nobody qualifies; the caller decides
// whether to queue, escalate, or reject the task.
func (h *Hub) Delegate(req Request) (*Offer, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = DefaultMaxAttempts
	}
	req.Status = RequestPending
	req.CreatedAt = time.Now()
	req.rejectedBy = make(map[string]bool)

	h.mu.Lock()
	defer h.mu.Unlock()

	r := &req
	h.requests[r.ID] = r

	offer, err := h.offerLocked(r)
	if err != nil {
		delete(h.requests, r.ID)
		return nil, err
	}
	return offer, nil
}

// offerLocked selects the best eligible member for r and reserves a slot.
func (h *Hub) offerLocked(r *Request) (*Offer, error) {
	candidates := h.directory.Members()

	var eligible []MemberInfo
	for _, m := range candidates {
		if !m.Idle || m.ID == r.FromMember || r.rejectedBy[m.ID] {
			continue
		}
		if r.ToMember != "" && m.ID != r.ToMember {
			continue
		}
		if !m.HasCapabilities(r.Required) {
			continue
		}
		eligible = append(eligible, m)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Load != eligible[j].Load {
			return eligible[i].Load < eligible[j].Load
		}
		return eligible[i].Priority.Rank() < eligible[j].Priority.Rank()
	})

	for _, m := range eligible {
		token, err := h.supervisor.AcquireSlot(m.AgentType, m.Tier)
		if err != nil {
			// Ceiling saturated for this member's type or tier; the next
			// candidate may sit under a different ceiling.
			continue
		}
		r.OfferedTo = m.ID
		r.Attempts++
		r.token = token
		h.sink.Emit(events.Event{
			Type:     events.TypeDelegationRequested,
			TaskID:   r.TaskID,
			MemberID: m.ID,
			Fields:   map[string]any{"request_id": r.ID, "attempt": r.Attempts},
		})
		h.logger.Debug("delegation offered",
			zap.String("request_id", r.ID),
			zap.String("task_id", r.TaskID),
			zap.String("member_id", m.ID),
			zap.Int("attempt", r.Attempts),
		)
		return &Offer{RequestID: r.ID, Member: m, Token: token}, nil
	}

	return nil, types.NewErrorf(types.ErrNoEligibleDelegate,
		"no eligible member for task %s (required: %v)", r.TaskID, r.Required).
		WithTask(r.TaskID).WithRetryable(true)
}

// Respond records the offered member's decision.
//
// Accept resolves the request; the reserved slot stays held and the caller
// starts execution. Reject releases the slot and re-offers to the next
// candidate while the attempt budget lasts; once exhausted (or when nobody
// else qualifies) the request escalates and the task goes back to the
// caller for escalation handling.
func (h *Hub) Respond(requestID string, decision Decision, reason string) (*Offer, Request, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.requests[requestID]
	if !ok {
		return nil, Request{}, types.NewErrorf(types.ErrNoEligibleDelegate, "unknown delegation request: %s", requestID)
	}
	if r.Status != RequestPending {
		return nil, *r, types.NewErrorf(types.ErrInvalidTransition,
			"delegation request %s already %s", requestID, r.Status)
	}

	h.sink.Emit(events.Event{
		Type:     events.TypeDelegationResolved,
		TaskID:   r.TaskID,
		MemberID: r.OfferedTo,
		Detail:   string(decision),
		Fields:   map[string]any{"request_id": r.ID, "reason": reason},
	})

	if decision == DecisionAccept {
		r.Status = RequestAccepted
		r.Reason = reason
		r.ResolvedAt = time.Now()
		return nil, *r, nil
	}

	// Rejection: capacity reserved for the rejecting member is returned.
	r.rejectedBy[r.OfferedTo] = true
	h.supervisor.ReleaseSlot(r.token)
	r.token = nil
	r.OfferedTo = ""
	r.Reason = reason

	if r.Attempts >= r.MaxAttempts {
		r.Status = RequestEscalated
		r.ResolvedAt = time.Now()
		return nil, *r, nil
	}

	offer, err := h.offerLocked(r)
	if err != nil {
		r.Status = RequestEscalated
		r.ResolvedAt = time.Now()
		return nil, *r, nil
	}
	return offer, *r, nil
}

// Request returns a copy of a tracked request.
func (h *Hub) Request(requestID string) (Request, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.requests[requestID]
	if !ok {
		return Request{}, false
	}
	return *r, true
}

// ExpirePending expires every pending request whose deadline passed,
// releasing reserved capacity. Returns the expired request ids.
func (h *Hub) ExpirePending(now time.Time) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var expired []string
	for id, r := range h.requests {
		if r.Status != RequestPending || r.Deadline.IsZero() || now.Before(r.Deadline) {
			continue
		}
		r.Status = RequestExpired
		r.ResolvedAt = now
		h.supervisor.ReleaseSlot(r.token)
		r.token = nil
		expired = append(expired, id)
		h.sink.Emit(events.Event{
			Type:   events.TypeDelegationResolved,
			TaskID: r.TaskID,
			Detail: string(RequestExpired),
			Fields: map[string]any{"request_id": id},
		})
	}
	sort.Strings(expired)
	return expired
}
