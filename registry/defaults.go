package registry

import (
	"time"

	"github.com/BaSui01/crewflow/types"
)

// DefaultHeartbeat is the heartbeat policy applied when a definition omits
// its own. Values are deliberate and load-bearing for supervisor tests.
var DefaultHeartbeat = HeartbeatConfig{
	Interval:        30 * time.Second,
	MissedThreshold: 3,
	AutoRestart:     false,
	MaxRestarts:     2,
}

// defaultMaxTurns is the built-in turn budget per agent type, used when a
// definition omits MaxTurns. Every known type has an entry; there is no
// fallback gap.
var defaultMaxTurns = map[types.AgentType]int{
	types.AgentDeveloper:        50,
	types.AgentCoordinator:      30,
	types.AgentEvaluator:        20,
	types.AgentSessionManager:   25,
	types.AgentResearcher:       35,
	types.AgentReviewer:         25,
	types.AgentTester:           40,
	types.AgentPlanner:          30,
	types.AgentSpecialist:       45,
	types.AgentSwarmCoordinator: 30,
}

// DefaultMaxTurns returns the built-in turn budget for the given type.
// Unknown types get the most conservative budget rather than zero, so a
// caller that skipped validation still cannot run unbounded.
func DefaultMaxTurns(typ types.AgentType) int {
	if turns, ok := defaultMaxTurns[typ]; ok {
		return turns
	}
	return 20
}

// defaultTier maps each agent type to its tier when building the builtin
// catalog.
var defaultTier = map[types.AgentType]types.Tier{
	types.AgentEvaluator:        types.TierEvaluator,
	types.AgentReviewer:         types.TierEvaluator,
	types.AgentCoordinator:      types.TierStandard,
	types.AgentSessionManager:   types.TierStandard,
	types.AgentPlanner:          types.TierStandard,
	types.AgentResearcher:       types.TierAdvanced,
	types.AgentTester:           types.TierAdvanced,
	types.AgentSwarmCoordinator: types.TierAdvanced,
	types.AgentDeveloper:        types.TierSpecialist,
	types.AgentSpecialist:       types.TierSpecialist,
}

// BuiltinDefinitions returns a complete catalog with one definition per known
// agent type, using default tiers, turn budgets, and heartbeat policy.
// Useful as a starting point before applying configured overrides.
func BuiltinDefinitions() []AgentDefinition {
	defs := make([]AgentDefinition, 0, len(defaultMaxTurns))
	for _, typ := range types.AllAgentTypes() {
		defs = append(defs, AgentDefinition{
			Type:           typ,
			Tier:           defaultTier[typ],
			Priority:       types.PriorityMedium,
			PermissionMode: types.PermissionAsk,
			MemoryScope:    types.MemoryScopeProject,
			Heartbeat:      DefaultHeartbeat,
		})
	}
	return defs
}
