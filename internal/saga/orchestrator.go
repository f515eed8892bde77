package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// StepMutation executes one saga step's forward mutation against its
// subgraph and returns the mutation's result document.
type StepMutation func(ctx context.Context, st Step) (map[string]interface{}, error)

// PlannedStep describes one step to execute, before it has been persisted.
type PlannedStep struct {
	Subgraph     string
	MutationType MutationType
	Typename     string
	Variables    map[string]interface{}
	Run          StepMutation
}

// Orchestrator drives a saga's forward execution state machine: creation
// places the saga in Pending; forward execution transitions it to
// Executing; each step goes Pending -> Executing -> Completed on success
// or Pending -> Executing -> Failed on failure. A step failure moves the
// saga to Failed then triggers compensation.
type Orchestrator struct {
	store       *Store
	compensator *Compensator
	log         *zap.Logger
}

// NewOrchestrator builds an orchestrator over store, using compensator to
// unwind a saga when a forward step fails.
func NewOrchestrator(store *Store, compensator *Compensator, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{store: store, compensator: compensator, log: log}
}

// Begin creates a new saga in Pending state.
func (o *Orchestrator) Begin(ctx context.Context, metadata map[string]interface{}) (Saga, error) {
	sg := Saga{ID: uuid.New(), State: StatePending, CreatedAt: time.Now().UTC(), Metadata: metadata}
	if err := o.store.SaveSaga(ctx, sg); err != nil {
		return Saga{}, err
	}
	return sg, nil
}

// Execute runs a saga's planned steps in order. On the first step failure
// it marks the saga Failed and, if a compensator is configured, triggers
// compensation immediately; it returns the step-failure error either way.
func (o *Orchestrator) Execute(ctx context.Context, sagaID uuid.UUID, steps []PlannedStep) error {
	sg, ok, err := o.store.LoadSaga(ctx, sagaID)
	if err != nil {
		return err
	}
	if !ok {
		return ferr.SagaNotFound(sagaID)
	}
	if sg.State.IsTerminal() {
		return ferr.InvalidStateTransition(sg.State.String(), StateExecuting.String())
	}

	if err := o.store.UpdateSagaState(ctx, sagaID, StateExecuting); err != nil {
		return err
	}

	for i, planned := range steps {
		st := Step{
			ID: uuid.New(), SagaID: sagaID, Order: i, Subgraph: planned.Subgraph,
			MutationType: planned.MutationType, Typename: planned.Typename,
			Variables: planned.Variables, State: StepPending,
		}
		if err := o.store.SaveSagaStep(ctx, st); err != nil {
			return err
		}

		now := time.Now().UTC()
		st.StartedAt = &now
		st.State = StepExecuting
		if err := o.store.UpdateSagaStepState(ctx, st.ID, StepExecuting); err != nil {
			return err
		}

		result, err := planned.Run(ctx, st)
		if err != nil {
			_ = o.store.UpdateSagaStepState(ctx, st.ID, StepFailed)
			_ = o.store.UpdateSagaState(ctx, sagaID, StateFailed)
			if o.compensator != nil {
				if _, cErr := o.compensator.CompensateSaga(ctx, sagaID); cErr != nil {
					o.log.Error("compensation failed after step failure",
						zap.String("saga_id", sagaID.String()), zap.Error(cErr))
				}
			}
			return ferr.DatabaseWrap(err, "", fmt.Sprintf("saga step %d failed", i))
		}

		if err := o.store.UpdateSagaStepResult(ctx, st.ID, result); err != nil {
			return err
		}
		if err := o.store.UpdateSagaStepState(ctx, st.ID, StepCompleted); err != nil {
			return err
		}
	}

	return o.store.UpdateSagaState(ctx, sagaID, StateCompleted)
}
