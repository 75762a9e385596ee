package health

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/types"
)

// Property: under arbitrary interleavings of concurrent acquire attempts, the
// supervisor never grants more tokens than the tier ceiling for any tier nor
// more than the global ceiling in total.
func TestProperty_CapacityCeilingsNeverExceeded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("per-tier and global ceilings hold under concurrent load", prop.ForAll(
		func(attempts int, tierPick []int) bool {
			policy := DefaultPolicy()
			s := NewSupervisor(policy, nil, zap.NewNop())

			var mu sync.Mutex
			grantedPerTier := make(map[types.Tier]int)
			grantedTotal := 0

			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				tier := types.Tier(0)
				if len(tierPick) > 0 {
					tier = types.Tier(tierPick[i%len(tierPick)] % 4)
				}
				wg.Add(1)
				go func(tier types.Tier) {
					defer wg.Done()
					// Spread across types so the per-type ceiling is not
					// the binding constraint for every tier.
					typ := typeForTier(tier)
					if _, err := s.AcquireSlot(typ, tier); err == nil {
						mu.Lock()
						grantedPerTier[tier]++
						grantedTotal++
						mu.Unlock()
					}
				}(tier)
			}
			wg.Wait()

			if grantedTotal > policy.MaxConcurrentAgents {
				return false
			}
			for tier, n := range grantedPerTier {
				if n > policy.TierCeiling(tier) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.SliceOfN(8, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

// Property: acquire/release pairs always return the supervisor to zero, and
// double releases never drive counters negative.
func TestProperty_ReleaseRestoresCapacity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("all released tokens restore full capacity", prop.ForAll(
		func(rounds int, doubleRelease bool) bool {
			s := NewSupervisor(DefaultPolicy(), nil, zap.NewNop())

			for r := 0; r < rounds; r++ {
				var tokens []*SlotToken
				for {
					tok, err := s.AcquireSlot(types.AgentDeveloper, types.TierSpecialist)
					if err != nil {
						break
					}
					tokens = append(tokens, tok)
				}
				for _, tok := range tokens {
					s.ReleaseSlot(tok)
					if doubleRelease {
						s.ReleaseSlot(tok)
					}
				}
				if s.TotalActive() != 0 {
					return false
				}
				if s.ActiveTierCount(types.TierSpecialist) != 0 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func typeForTier(tier types.Tier) types.AgentType {
	switch tier {
	case types.TierEvaluator:
		return types.AgentEvaluator
	case types.TierStandard:
		return types.AgentPlanner
	case types.TierAdvanced:
		return types.AgentTester
	default:
		return types.AgentDeveloper
	}
}
