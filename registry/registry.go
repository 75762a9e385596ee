package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/types"
)

// HeartbeatConfig controls liveness tracking for instances of a type.
type HeartbeatConfig struct {
	Interval        time.Duration `json:"interval" yaml:"interval"`
	MissedThreshold int           `json:"missed_threshold" yaml:"missed_threshold"`
	AutoRestart     bool          `json:"auto_restart" yaml:"auto_restart"`
	MaxRestarts     int           `json:"max_restarts" yaml:"max_restarts"`
}

// ResourceLimits bounds what a single instance may consume.
type ResourceLimits struct {
	MaxMemoryMB   int           `json:"max_memory_mb,omitempty" yaml:"max_memory_mb,omitempty"`
	MaxTokens     int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxToolCalls  int           `json:"max_tool_calls,omitempty" yaml:"max_tool_calls,omitempty"`
	ExecutionTime time.Duration `json:"execution_time,omitempty" yaml:"execution_time,omitempty"`
}

// EscalationTrigger names a condition that forces a task to escalate instead
// of retrying.
type EscalationTrigger string

const (
	EscalateOnLowConfidence  EscalationTrigger = "low_confidence"
	EscalateOnBreakingChange EscalationTrigger = "breaking_change"
	EscalateOnSecurityIssue  EscalationTrigger = "security_issue"
	EscalateOnRetryExhausted EscalationTrigger = "retry_exhausted"
)

// ToolRestrictions carries the allow/deny tool lists of a definition. The two
// lists are intended to be mutually exclusive but both may be populated in
// authored configuration; Allowed resolves the conflict with deny-wins
// precedence.
type ToolRestrictions struct {
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty" yaml:"deny,omitempty"`
}

// Allowed reports whether the named tool may be used. The deny-list always
// wins: a tool present in both lists is denied. With only an allow-list set,
// unlisted tools are denied; with neither set, everything is allowed.
func (r ToolRestrictions) Allowed(tool string) bool {
	for _, d := range r.Deny {
		if d == tool {
			return false
		}
	}
	if len(r.Allow) == 0 {
		return true
	}
	for _, a := range r.Allow {
		if a == tool {
			return true
		}
	}
	return false
}

// AgentDefinition is the archetype metadata for one agent type. Definitions
// are immutable once registered; the registry hands out copies.
type AgentDefinition struct {
	Type               types.AgentType     `json:"type" yaml:"type"`
	Tier               types.Tier          `json:"tier" yaml:"tier"`
	Priority           types.Priority      `json:"priority" yaml:"priority"`
	ModelPreference    string              `json:"model_preference,omitempty" yaml:"model_preference,omitempty"`
	PermissionMode     types.PermissionMode `json:"permission_mode" yaml:"permission_mode"`
	MaxTurns           int                 `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
	ToolRestrictions   ToolRestrictions    `json:"tool_restrictions,omitempty" yaml:"tool_restrictions,omitempty"`
	MemoryScope        types.MemoryScope   `json:"memory_scope" yaml:"memory_scope"`
	Heartbeat          HeartbeatConfig     `json:"heartbeat" yaml:"heartbeat"`
	ResourceLimits     ResourceLimits      `json:"resource_limits,omitempty" yaml:"resource_limits,omitempty"`
	EscalationTriggers []EscalationTrigger `json:"escalation_triggers,omitempty" yaml:"escalation_triggers,omitempty"`
	EscalationProtocol string              `json:"escalation_protocol,omitempty" yaml:"escalation_protocol,omitempty"`
	CanSpawnSubagents  bool                `json:"can_spawn_subagents" yaml:"can_spawn_subagents"`
}

// EffectiveMaxTurns returns the definition's turn budget, falling back to the
// per-type default when the definition omits one.
func (d AgentDefinition) EffectiveMaxTurns() int {
	if d.MaxTurns > 0 {
		return d.MaxTurns
	}
	return DefaultMaxTurns(d.Type)
}

// AgentTypeRegistry is the catalog of agent archetypes. It is explicitly
// constructed and injected; there is no package-level instance. After load it
// is effectively read-only and safe for concurrent resolution.
type AgentTypeRegistry struct {
	definitions map[types.AgentType]AgentDefinition
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewAgentTypeRegistry creates an empty registry.
func NewAgentTypeRegistry(logger *zap.Logger) *AgentTypeRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentTypeRegistry{
		definitions: make(map[types.AgentType]AgentDefinition),
		logger:      logger.With(zap.String("component", "agent_type_registry")),
	}
}

// Register validates and stores a definition. Registering the same type
// twice replaces the previous definition.
func (r *AgentTypeRegistry) Register(def AgentDefinition) error {
	if err := validateDefinition(def); err != nil {
		return err
	}

	normalizeDefinition(&def)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Type] = def
	r.logger.Info("registered agent definition",
		zap.String("type", string(def.Type)),
		zap.Int("tier", int(def.Tier)),
		zap.Int("max_turns", def.EffectiveMaxTurns()),
	)
	return nil
}

// Resolve returns the definition for the given type.
func (r *AgentTypeRegistry) Resolve(typ types.AgentType) (AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[typ]
	if !ok {
		return AgentDefinition{}, types.NewErrorf(types.ErrUnknownAgentType, "agent type not registered: %s", typ)
	}
	return def, nil
}

// Types returns the registered agent types in the canonical type order.
func (r *AgentTypeRegistry) Types() []types.AgentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AgentType, 0, len(r.definitions))
	for _, typ := range types.AllAgentTypes() {
		if _, ok := r.definitions[typ]; ok {
			out = append(out, typ)
		}
	}
	return out
}

// Len returns the number of registered definitions.
func (r *AgentTypeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.definitions)
}

// Clear removes every definition. Intended for test isolation.
func (r *AgentTypeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions = make(map[types.AgentType]AgentDefinition)
}

func validateDefinition(def AgentDefinition) error {
	if !def.Type.Valid() {
		return types.NewErrorf(types.ErrInvalidDefinition, "unknown agent type: %q", def.Type)
	}
	if !def.Tier.Valid() {
		return types.NewErrorf(types.ErrInvalidDefinition, "tier out of range [0,3]: %d", def.Tier)
	}
	if def.Priority != "" && !def.Priority.Valid() {
		return types.NewErrorf(types.ErrInvalidDefinition, "unknown priority: %q", def.Priority)
	}
	if def.PermissionMode != "" && !def.PermissionMode.Valid() {
		return types.NewErrorf(types.ErrInvalidDefinition, "unknown permission mode: %q", def.PermissionMode)
	}
	if def.MemoryScope != "" && !def.MemoryScope.Valid() {
		return types.NewErrorf(types.ErrInvalidDefinition, "unknown memory scope: %q", def.MemoryScope)
	}
	if def.MaxTurns < 0 {
		return types.NewErrorf(types.ErrInvalidDefinition, "max_turns must be a positive integer, got %d", def.MaxTurns)
	}
	if def.Heartbeat.Interval < 0 {
		return types.NewErrorf(types.ErrInvalidDefinition, "heartbeat interval must be > 0, got %s", def.Heartbeat.Interval)
	}
	if def.Heartbeat.MaxRestarts < 0 {
		return types.NewErrorf(types.ErrInvalidDefinition, "max_restarts must be >= 0, got %d", def.Heartbeat.MaxRestarts)
	}
	if def.Heartbeat.MissedThreshold < 0 {
		return types.NewErrorf(types.ErrInvalidDefinition, "missed_threshold must be >= 0, got %d", def.Heartbeat.MissedThreshold)
	}
	return nil
}

// normalizeDefinition fills zero-valued optional fields with defaults so that
// resolved definitions are always complete.
func normalizeDefinition(def *AgentDefinition) {
	if def.Priority == "" {
		def.Priority = types.PriorityMedium
	}
	if def.PermissionMode == "" {
		def.PermissionMode = types.PermissionAsk
	}
	if def.MemoryScope == "" {
		def.MemoryScope = types.MemoryScopeProject
	}
	if def.Heartbeat.Interval == 0 {
		def.Heartbeat.Interval = DefaultHeartbeat.Interval
	}
	if def.Heartbeat.MissedThreshold == 0 {
		def.Heartbeat.MissedThreshold = DefaultHeartbeat.MissedThreshold
	}
	if def.Heartbeat.MaxRestarts == 0 {
		def.Heartbeat.MaxRestarts = DefaultHeartbeat.MaxRestarts
	}
}
