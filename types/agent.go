package types

// AgentType identifies an agent archetype. The set is closed: registry
// validation rejects anything not listed here.
type AgentType string

const (
	AgentDeveloper        AgentType = "developer"
	AgentCoordinator      AgentType = "coordinator"
	AgentEvaluator        AgentType = "evaluator"
	AgentSessionManager   AgentType = "session-manager"
	AgentResearcher       AgentType = "researcher"
	AgentReviewer         AgentType = "reviewer"
	AgentTester           AgentType = "tester"
	AgentPlanner          AgentType = "planner"
	AgentSpecialist       AgentType = "specialist"
	AgentSwarmCoordinator AgentType = "swarm-coordinator"
)

// AllAgentTypes lists every known agent type in a stable order.
func AllAgentTypes() []AgentType {
	return []AgentType{
		AgentDeveloper,
		AgentCoordinator,
		AgentEvaluator,
		AgentSessionManager,
		AgentResearcher,
		AgentReviewer,
		AgentTester,
		AgentPlanner,
		AgentSpecialist,
		AgentSwarmCoordinator,
	}
}

// Valid returns true if the agent type is a known value.
func (t AgentType) Valid() bool {
	switch t {
	case AgentDeveloper, AgentCoordinator, AgentEvaluator, AgentSessionManager,
		AgentResearcher, AgentReviewer, AgentTester, AgentPlanner,
		AgentSpecialist, AgentSwarmCoordinator:
		return true
	default:
		return false
	}
}

// Tier is a coarse agent capability/authority class. Lower tiers are more
// restricted: tier 0 (evaluator-class) allows the fewest concurrent
// instances, tier 3 (specialist-class) the most.
type Tier int

const (
	TierEvaluator  Tier = 0
	TierStandard   Tier = 1
	TierAdvanced   Tier = 2
	TierSpecialist Tier = 3
)

// Valid returns true if the tier is within the supported range.
func (t Tier) Valid() bool {
	return t >= TierEvaluator && t <= TierSpecialist
}

// PermissionMode controls how an agent instance may act on its environment.
type PermissionMode string

const (
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	PermissionAsk         PermissionMode = "ask"
	PermissionDeny        PermissionMode = "deny"
)

// Valid returns true if the permission mode is a known value.
func (m PermissionMode) Valid() bool {
	switch m {
	case PermissionAcceptEdits, PermissionAsk, PermissionDeny:
		return true
	default:
		return false
	}
}

// MemoryScope controls where an agent's memory is persisted.
type MemoryScope string

const (
	MemoryScopeUser    MemoryScope = "user"
	MemoryScopeProject MemoryScope = "project"
	MemoryScopeLocal   MemoryScope = "local"
	MemoryScopeGlobal  MemoryScope = "global"
)

// Valid returns true if the memory scope is a known value.
func (s MemoryScope) Valid() bool {
	switch s {
	case MemoryScopeUser, MemoryScopeProject, MemoryScopeLocal, MemoryScopeGlobal:
		return true
	default:
		return false
	}
}
