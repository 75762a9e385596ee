package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/types"
)

func mustSynthesizer(t *testing.T, cfg SynthesisConfig) *Synthesizer {
	t.Helper()
	s, err := NewSynthesizer(cfg)
	require.NoError(t, err)
	return s
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"merge", "vote", "consensus", "best_pick", "weighted_average", "chain"} {
		s, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, Strategy(name), s)
	}

	_, err := ParseStrategy("majority")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidSynthesisStrategy))
}

func TestSynthesizer_QuorumNotReached(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyVote})

	_, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "X"},
		{MemberID: "m2", Output: "X"},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrQuorumNotReached))
}

func TestSynthesizer_VoteMajority(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyVote})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "X", Order: 0},
		{MemberID: "m2", Output: "X", Order: 1},
		{MemberID: "m3", Output: "Y", Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "X", out)
}

func TestSynthesizer_VoteTieBreaksBySubmissionOrder(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyVote})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "Y", Order: 0},
		{MemberID: "m2", Output: "X", Order: 1},
		{MemberID: "m3", Output: "X", Order: 2},
		{MemberID: "m4", Output: "Y", Order: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "Y", out, "earliest submitted output wins a tie")
}

func TestSynthesizer_ConsensusThreshold(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyConsensus})

	// 2 of 3 agree: meets the default 2/3 threshold.
	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "X", Order: 0},
		{MemberID: "m2", Output: "X", Order: 1},
		{MemberID: "m3", Output: "Y", Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "X", out)

	// 2 of 4 do not.
	_, err = s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "X", Order: 0},
		{MemberID: "m2", Output: "X", Order: 1},
		{MemberID: "m3", Output: "Y", Order: 2},
		{MemberID: "m4", Output: "Z", Order: 3},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrQuorumNotReached))
}

func TestSynthesizer_ConsensusUnanimous(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyConsensus, AgreementThreshold: 1.0})

	_, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "X", Order: 0},
		{MemberID: "m2", Output: "X", Order: 1},
		{MemberID: "m3", Output: "Y", Order: 2},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrQuorumNotReached))
}

func TestSynthesizer_MergeMaps(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyMerge})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: map[string]any{"summary": "short", "risk": "low"}, Order: 0},
		{MemberID: "m2", Output: map[string]any{"summary": "long", "cost": 3}, Order: 1},
		{MemberID: "m3", Output: map[string]any{"owner": "m3"}, Order: 2},
	})
	require.NoError(t, err)
	merged, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "short", merged["summary"], "earliest submission wins conflicting keys")
	assert.Equal(t, "low", merged["risk"])
	assert.Equal(t, 3, merged["cost"])
	assert.Equal(t, "m3", merged["owner"])
}

func TestSynthesizer_MergeStrings(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyMerge})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "part one", Order: 0},
		{MemberID: "m2", Output: "part two", Order: 1},
		{MemberID: "m3", Output: "part three", Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "part one\n\npart two\n\npart three", out)
}

func TestSynthesizer_BestPick(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyBestPick})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "a", Score: 0.4, Order: 0},
		{MemberID: "m2", Output: "b", Score: 0.9, Order: 1},
		{MemberID: "m3", Output: "c", Score: 0.9, Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "b", out, "equal scores keep the earliest submission")
}

func TestSynthesizer_BestPickCustomScorer(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{
		Strategy: StrategyBestPick,
		Scorer: func(c Candidate) float64 {
			return float64(len(c.Output.(string)))
		},
	})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "ok", Order: 0},
		{MemberID: "m2", Output: "longer answer", Order: 1},
		{MemberID: "m3", Output: "mid", Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "longer answer", out)
}

func TestSynthesizer_WeightedAverage(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyWeightedAverage})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Priority: types.PriorityCritical, Output: 10.0, Order: 0},
		{MemberID: "m2", Priority: types.PriorityLow, Output: 2.0, Order: 1},
		{MemberID: "m3", Priority: types.PriorityLow, Output: 2.0, Order: 2},
	})
	require.NoError(t, err)
	// (10*4 + 2*1 + 2*1) / 6
	assert.InDelta(t, 44.0/6.0, out.(float64), 1e-9)
}

func TestSynthesizer_WeightedAverageRejectsNonNumeric(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyWeightedAverage})

	_, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: 1.0, Order: 0},
		{MemberID: "m2", Output: "oops", Order: 1},
		{MemberID: "m3", Output: 2.0, Order: 2},
	})
	require.Error(t, err)
}

func TestSynthesizer_ChainTakesFinalRefinement(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{Strategy: StrategyChain})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "draft", Order: 0},
		{MemberID: "m2", Output: "edited", Order: 1},
		{MemberID: "m3", Output: "final", Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "final", out)
}

func TestSynthesizer_ChainCustomRefine(t *testing.T) {
	s := mustSynthesizer(t, SynthesisConfig{
		Strategy: StrategyChain,
		Refine: func(prev, next any) any {
			return prev.(string) + " -> " + next.(string)
		},
	})

	out, err := s.Synthesize([]Candidate{
		{MemberID: "m1", Output: "a", Order: 0},
		{MemberID: "m2", Output: "b", Order: 1},
		{MemberID: "m3", Output: "c", Order: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "a -> b -> c", out)
}
