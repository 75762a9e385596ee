package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus(8, zap.NewNop())

	bus.Emit(Event{Type: TypeTaskStarted, TaskID: "t1"})
	bus.Emit(Event{Type: TypeTaskCompleted, TaskID: "t1"})
	bus.Close()

	var got []Event
	for ev := range bus.Events() {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, TypeTaskStarted, got[0].Type)
	assert.Equal(t, TypeTaskCompleted, got[1].Type)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestBus_OrderingPreserved(t *testing.T) {
	bus := NewBus(100, zap.NewNop())
	for i := 0; i < 50; i++ {
		bus.Emit(Event{Type: TypeTaskStarted, TaskID: string(rune('a' + i%26))})
	}
	bus.Close()

	log := bus.Log()
	i := 0
	for ev := range bus.Events() {
		assert.Equal(t, log[i], ev)
		i++
	}
	assert.Equal(t, 50, i)
}

func TestBus_DropsWhenFullButRetainsLog(t *testing.T) {
	bus := NewBus(2, zap.NewNop())
	for i := 0; i < 5; i++ {
		bus.Emit(Event{Type: TypeHeartbeatMissed})
	}

	assert.Equal(t, int64(3), bus.Dropped())
	assert.Len(t, bus.Log(), 5)
	assert.Len(t, bus.LogByType(TypeHeartbeatMissed), 5)
	assert.Empty(t, bus.LogByType(TypeAgentRestarted))
}

func TestBus_EmitAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(2, zap.NewNop())
	bus.Close()
	assert.NotPanics(t, func() {
		bus.Emit(Event{Type: TypeRunFinished})
	})
	assert.Empty(t, bus.Log())
}

func TestBus_CloseIdempotent(t *testing.T) {
	bus := NewBus(2, zap.NewNop())
	bus.Close()
	assert.NotPanics(t, bus.Close)
}
