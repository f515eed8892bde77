package saga

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chaosRun executes one saga through the real orchestrator/compensator
// pair, injecting a random step failure (stepFailRate), forcing the last
// step to fail when failLastStep is set, and, when the forward phase
// fails, a random compensation failure per step (compFailRate). It
// returns the saga's final persisted state.
func chaosRun(t *testing.T, ctx context.Context, store *Store, rng *rand.Rand, stepCount int, stepFailRate, compFailRate float64, failLastStep bool) State {
	t.Helper()

	comp := NewCompensator(store, func(_ context.Context, st Step) (map[string]interface{}, error) {
		if rng.Float64() < compFailRate {
			return nil, fmt.Errorf("chaos: compensation failure at step %d", st.Order)
		}
		return map[string]interface{}{"compensated_step": st.Order}, nil
	})
	orch := NewOrchestrator(store, comp, nil)

	sg, err := orch.Begin(ctx, nil)
	require.NoError(t, err)

	steps := make([]PlannedStep, stepCount)
	for i := range steps {
		steps[i] = PlannedStep{
			Subgraph: "inventory", MutationType: MutationCreate, Typename: "Order",
			Variables: map[string]interface{}{"step": i},
			Run: func(_ context.Context, st Step) (map[string]interface{}, error) {
				if (failLastStep && st.Order == stepCount-1) || rng.Float64() < stepFailRate {
					return nil, fmt.Errorf("chaos: random step failure at %d", st.Order)
				}
				return map[string]interface{}{"id": fmt.Sprintf("order-%d", st.Order)}, nil
			},
		}
	}

	// Execute must return promptly: the orchestrator runs synchronously
	// with no goroutines of its own, so a deadline here catches any
	// accidental blocking call (e.g. on an unbuffered channel) rather
	// than hanging the test suite.
	done := make(chan struct{})
	var execErr error
	go func() {
		execErr = orch.Execute(ctx, sg.ID, steps)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("saga %s: Execute did not return, suspected deadlock", sg.ID)
	}
	_ = execErr // step/compensation failures are expected and carried in saga state, not just the error

	final, ok, err := store.LoadSaga(ctx, sg.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NotEqual(t, StateExecuting, final.State, "saga %s stuck mid-execution", sg.ID)
	assert.NotEqual(t, StateCompensating, final.State, "saga %s stuck mid-compensation", sg.ID)

	return final.State
}

// TestSagaChaosRandomStepFailures drives many sagas through random
// per-step failure injection and asserts every one reaches one of this
// engine's quiescent states (Completed, Compensated, or Failed with
// compensation incomplete) with no step or compensation phase left
// half-finished.
func TestSagaChaosRandomStepFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(20260729))

	var completed, compensated, failedAwaitingRecovery int
	for i := 0; i < 40; i++ {
		state := chaosRun(t, ctx, store, rng, 5, 0.3, 0.0, false)
		switch state {
		case StateCompleted:
			completed++
		case StateCompensated:
			compensated++
		case StateFailed:
			failedAwaitingRecovery++
		default:
			t.Fatalf("saga ended in unexpected non-terminal state %s", state)
		}
	}

	assert.Greater(t, completed+compensated+failedAwaitingRecovery, 0)
	t.Logf("completed=%d compensated=%d failed_awaiting_recovery=%d", completed, compensated, failedAwaitingRecovery)
}

// TestSagaChaosCompensationFailureInjection forces the last forward step
// to fail so the earlier, completed steps are always compensated, then
// injects random compensation failures: a saga whose compensation
// partially fails must remain in Failed (the recovery scheduler does not
// pick up Failed sagas, per this engine's two-terminal-state model)
// rather than ever reporting success or hanging.
func TestSagaChaosCompensationFailureInjection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(20260730))

	var compensated, failedAwaitingRecovery int
	for i := 0; i < 40; i++ {
		state := chaosRun(t, ctx, store, rng, 4, 0.0, 0.4, true)
		switch state {
		case StateCompensated:
			compensated++
		case StateFailed:
			failedAwaitingRecovery++
		default:
			t.Fatalf("forced-failure saga ended in unexpected state %s", state)
		}
	}

	assert.Greater(t, compensated+failedAwaitingRecovery, 0)
	t.Logf("compensated=%d failed_awaiting_recovery=%d", compensated, failedAwaitingRecovery)
}

// TestSagaChaosNeverLeavesStepsMidFlight runs a high-churn mix of step
// and compensation failures and additionally asserts no step is ever
// left in StepExecuting once the saga itself reaches a quiescent state.
func TestSagaChaosNeverLeavesStepsMidFlight(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(20260731))

	for i := 0; i < 20; i++ {
		comp := NewCompensator(store, func(_ context.Context, st Step) (map[string]interface{}, error) {
			if rng.Float64() < 0.3 {
				return nil, fmt.Errorf("chaos: compensation failure at step %d", st.Order)
			}
			return map[string]interface{}{"compensated_step": st.Order}, nil
		})
		orch := NewOrchestrator(store, comp, nil)

		sg, err := orch.Begin(ctx, nil)
		require.NoError(t, err)

		steps := make([]PlannedStep, 6)
		for j := range steps {
			steps[j] = PlannedStep{
				Subgraph: "payments", MutationType: MutationCreate, Typename: "Payment",
				Variables: map[string]interface{}{"step": j},
				Run: func(_ context.Context, st Step) (map[string]interface{}, error) {
					if rng.Float64() < 0.5 {
						return nil, fmt.Errorf("chaos: random step failure at %d", st.Order)
					}
					return map[string]interface{}{"id": fmt.Sprintf("payment-%d", st.Order)}, nil
				},
			}
		}

		require.NoError(t, func() error {
			_ = orch.Execute(ctx, sg.ID, steps)
			return nil
		}())

		loaded, err := store.LoadSagaSteps(ctx, sg.ID)
		require.NoError(t, err)
		for _, st := range loaded {
			assert.NotEqual(t, StepExecuting, st.State, "saga %s step %d left mid-flight", sg.ID, st.Order)
		}
	}
}
