package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BaSui01/crewflow/types"
)

// Strategy names an algorithm for merging multiple member outputs into one
// accepted result. The set is closed; ParseStrategy rejects anything else.
type Strategy string

const (
	StrategyMerge           Strategy = "merge"
	StrategyVote            Strategy = "vote"
	StrategyConsensus       Strategy = "consensus"
	StrategyBestPick        Strategy = "best_pick"
	StrategyWeightedAverage Strategy = "weighted_average"
	StrategyChain           Strategy = "chain"
)

// ParseStrategy validates a strategy name. Misconfigured strategies fail
// fast here rather than silently defaulting at synthesis time.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMerge, StrategyVote, StrategyConsensus, StrategyBestPick,
		StrategyWeightedAverage, StrategyChain:
		return Strategy(s), nil
	default:
		return "", types.NewErrorf(types.ErrInvalidSynthesisStrategy, "unknown synthesis strategy: %q", s)
	}
}

// Candidate is one member's output for a task under consensus.
type Candidate struct {
	MemberID string         `json:"member_id"`
	Priority types.Priority `json:"priority"`
	Output   any            `json:"output"`
	Score    float64        `json:"score,omitempty"`
	Order    int            `json:"order"` // submission order, breaks ties deterministically
}

// SynthesisConfig configures a Synthesizer.
type SynthesisConfig struct {
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	// Quorum is the minimum number of candidate outputs required before
	// synthesis may run.
	Quorum int `json:"quorum" yaml:"quorum"`
	// AgreementThreshold is the fraction of candidates that must agree for
	// the consensus strategy (1.0 = unanimous).
	AgreementThreshold float64 `json:"agreement_threshold" yaml:"agreement_threshold"`
	// Scorer overrides candidate scoring for best_pick. Defaults to the
	// candidate's own Score field.
	Scorer func(Candidate) float64 `json:"-" yaml:"-"`
	// Refine composes outputs for the chain strategy. Defaults to taking
	// each next output as the refinement of the previous.
	Refine func(prev, next any) any `json:"-" yaml:"-"`
}

// DefaultQuorum is the recommended minimum number of member opinions.
const DefaultQuorum = 3

// DefaultAgreementThreshold is the consensus super-majority bound.
const DefaultAgreementThreshold = 2.0 / 3.0

// Synthesizer applies one synthesis strategy. Construction resolves the
// strategy through an explicit table and fails fast on an unrecognized tag.
type Synthesizer struct {
	cfg   SynthesisConfig
	apply func(*Synthesizer, []Candidate) (any, error)
}

// strategyTable maps each known strategy to its implementation.
var strategyTable = map[Strategy]func(*Synthesizer, []Candidate) (any, error){
	StrategyMerge:           (*Synthesizer).merge,
	StrategyVote:            (*Synthesizer).vote,
	StrategyConsensus:       (*Synthesizer).consensus,
	StrategyBestPick:        (*Synthesizer).bestPick,
	StrategyWeightedAverage: (*Synthesizer).weightedAverage,
	StrategyChain:           (*Synthesizer).chain,
}

// NewSynthesizer builds a synthesizer for the configured strategy.
func NewSynthesizer(cfg SynthesisConfig) (*Synthesizer, error) {
	apply, ok := strategyTable[cfg.Strategy]
	if !ok {
		return nil, types.NewErrorf(types.ErrInvalidSynthesisStrategy,
			"unknown synthesis strategy: %q", cfg.Strategy)
	}
	if cfg.Quorum <= 0 {
		cfg.Quorum = DefaultQuorum
	}
	if cfg.AgreementThreshold <= 0 || cfg.AgreementThreshold > 1 {
		cfg.AgreementThreshold = DefaultAgreementThreshold
	}
	return &Synthesizer{cfg: cfg, apply: apply}, nil
}

// Strategy returns the configured strategy.
func (s *Synthesizer) Strategy() Strategy { return s.cfg.Strategy }

// Quorum returns the configured minimum candidate count.
func (s *Synthesizer) Quorum() int { return s.cfg.Quorum }

// Synthesize merges the candidates into one output. Fails with
// QUORUM_NOT_REACHED below the configured quorum.
func (s *Synthesizer) Synthesize(candidates []Candidate) (any, error) {
	if len(candidates) < s.cfg.Quorum {
		return nil, types.NewErrorf(types.ErrQuorumNotReached,
			"have %d candidate outputs, need %d", len(candidates), s.cfg.Quorum)
	}
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	return s.apply(s, ordered)
}

// merge unions non-conflicting fields. Map outputs merge by key with the
// earliest submission winning conflicts; string outputs concatenate; other
// outputs collect into a slice.
func (s *Synthesizer) merge(candidates []Candidate) (any, error) {
	allMaps, allStrings := true, true
	for _, c := range candidates {
		if _, ok := c.Output.(map[string]any); !ok {
			allMaps = false
		}
		if _, ok := c.Output.(string); !ok {
			allStrings = false
		}
	}

	switch {
	case allMaps:
		out := make(map[string]any)
		for _, c := range candidates {
			for k, v := range c.Output.(map[string]any) {
				if _, exists := out[k]; !exists {
					out[k] = v
				}
			}
		}
		return out, nil
	case allStrings:
		parts := make([]string, len(candidates))
		for i, c := range candidates {
			parts[i] = c.Output.(string)
		}
		return strings.Join(parts, "\n\n"), nil
	default:
		out := make([]any, len(candidates))
		for i, c := range candidates {
			out[i] = c.Output
		}
		return out, nil
	}
}

// vote picks the majority output; ties break by earliest submission order.
func (s *Synthesizer) vote(candidates []Candidate) (any, error) {
	counts := make(map[string]int)
	firstOrder := make(map[string]int)
	outputs := make(map[string]any)
	for _, c := range candidates {
		key := outputKey(c.Output)
		counts[key]++
		if _, seen := firstOrder[key]; !seen {
			firstOrder[key] = c.Order
			outputs[key] = c.Output
		}
	}

	bestKey := ""
	for key := range counts {
		if bestKey == "" {
			bestKey = key
			continue
		}
		if counts[key] > counts[bestKey] ||
			(counts[key] == counts[bestKey] && firstOrder[key] < firstOrder[bestKey]) {
			bestKey = key
		}
	}
	return outputs[bestKey], nil
}

// consensus requires the winning output to reach the agreement threshold
// (super-majority, or unanimity at 1.0); otherwise the decision escalates.
func (s *Synthesizer) consensus(candidates []Candidate) (any, error) {
	winner, err := s.vote(candidates)
	if err != nil {
		return nil, err
	}
	winnerKey := outputKey(winner)
	agree := 0
	for _, c := range candidates {
		if outputKey(c.Output) == winnerKey {
			agree++
		}
	}
	if float64(agree)/float64(len(candidates)) < s.cfg.AgreementThreshold {
		return nil, types.NewErrorf(types.ErrQuorumNotReached,
			"consensus not reached: %d of %d agree, threshold %.2f",
			agree, len(candidates), s.cfg.AgreementThreshold)
	}
	return winner, nil
}

// bestPick selects the highest-scoring candidate; ties break by earliest
// submission order.
func (s *Synthesizer) bestPick(candidates []Candidate) (any, error) {
	scorer := s.cfg.Scorer
	if scorer == nil {
		scorer = func(c Candidate) float64 { return c.Score }
	}
	best := candidates[0]
	bestScore := scorer(best)
	for _, c := range candidates[1:] {
		if score := scorer(c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best.Output, nil
}

// weightedAverage averages numeric outputs weighted by member priority.
func (s *Synthesizer) weightedAverage(candidates []Candidate) (any, error) {
	var sum, weights float64
	for _, c := range candidates {
		v, ok := toFloat(c.Output)
		if !ok {
			return nil, types.NewErrorf(types.ErrInvalidSynthesisStrategy,
				"weighted_average requires numeric outputs, member %s produced %T", c.MemberID, c.Output)
		}
		w := c.Priority.Weight()
		sum += v * w
		weights += w
	}
	return sum / weights, nil
}

// chain composes outputs sequentially, each refining the previous.
func (s *Synthesizer) chain(candidates []Candidate) (any, error) {
	refine := s.cfg.Refine
	if refine == nil {
		refine = func(_, next any) any { return next }
	}
	out := candidates[0].Output
	for _, c := range candidates[1:] {
		out = refine(out, c.Output)
	}
	return out, nil
}

// outputKey produces a deterministic equality key for vote counting.
func outputKey(v any) string {
	return fmt.Sprintf("%#v", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
