package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// CompensationStatus summarizes a compensation run's outcome.
type CompensationStatus int

const (
	Compensated CompensationStatus = iota
	PartiallyCompensated
	CompensationFailed
)

func (c CompensationStatus) String() string {
	switch c {
	case Compensated:
		return "compensated"
	case PartiallyCompensated:
		return "partially_compensated"
	default:
		return "compensation_failed"
	}
}

// StepResult is one step's compensation outcome.
type StepResult struct {
	StepNumber int
	Success    bool
	Data       map[string]interface{}
	Error      string
	Duration   time.Duration
}

// CompensationResult is the outcome of compensating one saga.
type CompensationResult struct {
	SagaID       uuid.UUID
	Status       CompensationStatus
	StepResults  []StepResult
	FailedSteps  []int
	TotalDuration time.Duration
	Error        string
}

// InverseMutation runs the compensating (inverse) mutation for one
// completed step against its original subgraph.
type InverseMutation func(ctx context.Context, st Step) (map[string]interface{}, error)

// Compensator unwinds a failed saga by running each completed step's
// inverse mutation in strict reverse order, continuing past individual
// step failures and accumulating per-step outcomes.
type Compensator struct {
	store   *Store
	inverse InverseMutation
}

// NewCompensator builds a compensator over store. inverse may be nil, in
// which case a built-in stub compensation (matching the reference
// implementation's default behavior) is used: it always succeeds and
// returns a {deleted:true, confirmation_id, __typename} document.
func NewCompensator(store *Store, inverse InverseMutation) *Compensator {
	return &Compensator{store: store, inverse: inverse}
}

// CompensateSaga compensates sagaID's completed steps in strict reverse
// order. If the saga is not in Failed state, it returns an empty
// Compensated result without touching anything. The saga transitions
// Failed -> Compensating immediately, then to Compensated only if every
// step compensates successfully; otherwise it remains Failed, matching
// the partial-failure contract.
func (c *Compensator) CompensateSaga(ctx context.Context, sagaID uuid.UUID) (CompensationResult, error) {
	start := time.Now()

	sg, ok, err := c.store.LoadSaga(ctx, sagaID)
	if err != nil {
		return CompensationResult{}, err
	}
	if !ok {
		return CompensationResult{}, ferr.SagaNotFound(sagaID)
	}
	// Compensating is accepted alongside Failed so a crash-interrupted
	// compensation (recovery scheduler resuming mid-unwind) can proceed;
	// any other state means there is nothing to compensate.
	if sg.State != StateFailed && sg.State != StateCompensating {
		return CompensationResult{SagaID: sagaID, Status: Compensated}, nil
	}

	if sg.State != StateCompensating {
		if err := c.store.UpdateSagaState(ctx, sagaID, StateCompensating); err != nil {
			return CompensationResult{}, err
		}
	}

	steps, err := c.store.LoadSagaSteps(ctx, sagaID)
	if err != nil {
		return CompensationResult{}, err
	}

	var completed []Step
	for _, st := range steps {
		if st.State == StepCompleted {
			completed = append(completed, st)
		}
	}

	var results []StepResult
	var failed []int
	for i := len(completed) - 1; i >= 0; i-- {
		st := completed[i]
		res := c.compensateStep(ctx, st)
		results = append(results, res)
		if !res.Success {
			failed = append(failed, st.Order)
		}
	}

	status := Compensated
	switch {
	case len(failed) == 0:
		status = Compensated
	case len(failed) == len(results):
		status = CompensationFailed
	default:
		status = PartiallyCompensated
	}

	if status == Compensated {
		if err := c.store.UpdateSagaState(ctx, sagaID, StateCompensated); err != nil {
			return CompensationResult{}, err
		}
	} else {
		if err := c.store.UpdateSagaState(ctx, sagaID, StateFailed); err != nil {
			return CompensationResult{}, err
		}
	}

	return CompensationResult{
		SagaID: sagaID, Status: status, StepResults: results,
		FailedSteps: failed, TotalDuration: time.Since(start),
	}, nil
}

// compensateStep runs the inverse mutation for one completed step,
// persisting the compensation document over the step's stored forward
// result. It never returns an error; failures are carried in the
// returned StepResult so the caller can continue compensating the rest
// of the saga.
func (c *Compensator) compensateStep(ctx context.Context, st Step) StepResult {
	stepStart := time.Now()

	if st.State != StepCompleted {
		err := ferr.InvalidStateTransition(st.State.String(), StepCompleted.String())
		return StepResult{StepNumber: st.Order, Success: false, Error: err.Error(), Duration: time.Since(stepStart)}
	}

	var data map[string]interface{}
	var err error
	if c.inverse != nil {
		data, err = c.inverse(ctx, st)
	} else {
		data = map[string]interface{}{
			"deleted":         true,
			"confirmation_id": fmt.Sprintf("comp-%d", st.Order),
			"__typename":      st.Typename,
		}
	}
	if err != nil {
		return StepResult{StepNumber: st.Order, Success: false, Error: err.Error(), Duration: time.Since(stepStart)}
	}

	if saveErr := c.store.UpdateSagaStepResult(ctx, st.ID, data); saveErr != nil {
		return StepResult{StepNumber: st.Order, Success: false, Error: saveErr.Error(), Duration: time.Since(stepStart)}
	}

	return StepResult{StepNumber: st.Order, Success: true, Data: data, Duration: time.Since(stepStart)}
}

// GetCompensationStatus reports whether sagaID currently requires, is
// undergoing, or has finished compensation.
func (c *Compensator) GetCompensationStatus(ctx context.Context, sagaID uuid.UUID) (CompensationStatus, bool, error) {
	sg, ok, err := c.store.LoadSaga(ctx, sagaID)
	if err != nil || !ok {
		return 0, false, err
	}
	switch sg.State {
	case StateCompensated:
		return Compensated, true, nil
	case StateCompensating, StateFailed:
		return 0, false, nil
	default:
		return 0, false, nil
	}
}
