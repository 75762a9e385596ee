package health

import (
	"time"

	"github.com/BaSui01/crewflow/types"
)

// Policy bounds concurrent agent instances and task timeouts. Per-tier
// ceilings increase monotonically with tier number: tier 0 is the most
// restricted.
type Policy struct {
	MaxConcurrentAgents  int                `json:"max_concurrent_agents" yaml:"max_concurrent_agents"`
	MaxConcurrentPerType int                `json:"max_concurrent_per_type" yaml:"max_concurrent_per_type"`
	MaxConcurrentPerTier map[types.Tier]int `json:"max_concurrent_per_tier" yaml:"max_concurrent_per_tier"`
	DefaultTimeout       time.Duration      `json:"default_timeout" yaml:"default_timeout"`
	MaxTimeout           time.Duration      `json:"max_timeout" yaml:"max_timeout"`
	ArchiveAfter         time.Duration      `json:"archive_after" yaml:"archive_after"`
	TickInterval         time.Duration      `json:"tick_interval" yaml:"tick_interval"`
}

// DefaultPolicy returns the stock concurrency and timeout policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxConcurrentAgents:  10,
		MaxConcurrentPerType: 5,
		MaxConcurrentPerTier: map[types.Tier]int{
			types.TierEvaluator:  2,
			types.TierStandard:   3,
			types.TierAdvanced:   5,
			types.TierSpecialist: 10,
		},
		DefaultTimeout: 5 * time.Minute,
		MaxTimeout:     time.Hour,
		ArchiveAfter:   60 * time.Minute,
		TickInterval:   time.Second,
	}
}

// TierCeiling returns the concurrency ceiling for a tier. Tiers without an
// explicit entry fall back to the global agent ceiling.
func (p Policy) TierCeiling(tier types.Tier) int {
	if c, ok := p.MaxConcurrentPerTier[tier]; ok {
		return c
	}
	return p.MaxConcurrentAgents
}

// ClampTimeout normalizes a requested per-task timeout: zero becomes the
// default, anything above the hard cap is clamped down to it.
func (p Policy) ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return p.DefaultTimeout
	}
	if d > p.MaxTimeout {
		return p.MaxTimeout
	}
	return d
}
