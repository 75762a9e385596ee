package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	e := NewError(ErrResourceExhausted, "tier 0 ceiling reached")
	assert.Equal(t, "[RESOURCE_EXHAUSTED] tier 0 ceiling reached", e.Error())

	cause := errors.New("boom")
	e = e.WithCause(cause)
	assert.Contains(t, e.Error(), "boom")
	assert.ErrorIs(t, e, cause)
}

func TestError_Wrapped(t *testing.T) {
	inner := NewError(ErrDependencyCycle, "a -> b -> a")
	wrapped := fmt.Errorf("submit: %w", inner)

	assert.Equal(t, ErrDependencyCycle, GetErrorCode(wrapped))
	assert.True(t, IsCode(wrapped, ErrDependencyCycle))
	assert.False(t, IsCode(wrapped, ErrResourceExhausted))
}

func TestError_Retryable(t *testing.T) {
	e := NewError(ErrNoEligibleDelegate, "no idle member").WithRetryable(true)
	assert.True(t, IsRetryable(e))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestError_Metadata(t *testing.T) {
	e := NewErrorf(ErrHeartbeatTimeout, "missed %d heartbeats", 3).
		WithTask("task-1").
		WithMember("member-2")
	require.Equal(t, "task-1", e.TaskID)
	require.Equal(t, "member-2", e.MemberID)
	assert.Contains(t, e.Message, "missed 3")
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		fatal bool
	}{
		{ErrInvalidDefinition, true},
		{ErrUnknownAgentType, true},
		{ErrDependencyCycle, true},
		{ErrInvalidCrewConfig, true},
		{ErrResourceExhausted, false},
		{ErrNoEligibleDelegate, false},
		{ErrRunCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(NewError(tt.code, "x")))
		})
	}
}

func TestAgentType_Valid(t *testing.T) {
	for _, typ := range AllAgentTypes() {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, AgentType("wizard").Valid())
	assert.False(t, AgentType("").Valid())
}

func TestTier_Valid(t *testing.T) {
	assert.True(t, TierEvaluator.Valid())
	assert.True(t, TierSpecialist.Valid())
	assert.False(t, Tier(-1).Valid())
	assert.False(t, Tier(4).Valid())
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("bogus").Rank(), PriorityLow.Rank())
}
