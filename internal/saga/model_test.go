package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateRoundTrip(t *testing.T) {
	for _, s := range []State{StatePending, StateExecuting, StateCompleted, StateFailed, StateCompensating, StateCompensated} {
		parsed, ok := ParseState(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	_, ok := ParseState("bogus")
	assert.False(t, ok)
}

func TestStateIsTerminal(t *testing.T) {
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateCompensated.IsTerminal())
	assert.False(t, StateFailed.IsTerminal())
	assert.False(t, StateExecuting.IsTerminal())
}

func TestMutationTypeRoundTrip(t *testing.T) {
	for _, m := range []MutationType{MutationCreate, MutationUpdate, MutationDelete} {
		parsed, ok := ParseMutationType(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, parsed)
	}
}

func TestCompensationStatusString(t *testing.T) {
	assert.Equal(t, "compensated", Compensated.String())
	assert.Equal(t, "partially_compensated", PartiallyCompensated.String())
	assert.Equal(t, "compensation_failed", CompensationFailed.String())
}
