package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecoveryScheduler periodically scans for sagas stuck in Executing or
// Compensating after a crash and retries them, bounded by MaxAttempts.
// After a saga exhausts its attempts, it is left for operator
// intervention rather than retried further.
type RecoveryScheduler struct {
	store        *Store
	orchestrator *Orchestrator
	log          *zap.Logger

	// StaleAfter is how long a saga may sit in Executing/Compensating
	// before it is considered crash-interrupted.
	StaleAfter time.Duration
	// MaxAttempts bounds the number of recovery attempts per saga.
	MaxAttempts int32
}

// NewRecoveryScheduler builds a scheduler with the reference
// implementation's defaults: a five-minute staleness window and five
// recovery attempts.
func NewRecoveryScheduler(store *Store, orchestrator *Orchestrator, log *zap.Logger) *RecoveryScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecoveryScheduler{
		store: store, orchestrator: orchestrator, log: log,
		StaleAfter: 5 * time.Minute, MaxAttempts: 5,
	}
}

// RunOnce scans for stuck sagas and attempts recovery on each, returning
// the count recovered successfully and the count not recovered on this
// pass: sagas whose attempt failed (retried on a later pass while under
// MaxAttempts) plus sagas already at MaxAttempts, which are skipped and
// left for operator intervention.
func (r *RecoveryScheduler) RunOnce(ctx context.Context) (recovered, abandoned int, err error) {
	stuck, err := r.store.FindStuckSagas(ctx, r.StaleAfter)
	if err != nil {
		return 0, 0, err
	}

	for _, sg := range stuck {
		attempts, aerr := r.store.GetRecoveryAttempts(ctx, sg.ID)
		if aerr != nil {
			r.log.Warn("recovery: failed to read attempt count", zap.String("saga_id", sg.ID.String()), zap.Error(aerr))
			continue
		}
		if attempts >= r.MaxAttempts {
			abandoned++
			continue
		}

		ok := r.attemptRecovery(ctx, sg)
		if ok {
			recovered++
		} else {
			abandoned++
		}
	}

	return recovered, abandoned, nil
}

func (r *RecoveryScheduler) attemptRecovery(ctx context.Context, sg Saga) bool {
	var recoveryErr error
	switch sg.State {
	case StateExecuting:
		// A crash mid-forward-execution cannot safely resume forward
		// progress without re-deriving the remaining planned steps, which
		// this engine does not persist; mark it Failed so the normal
		// compensation path unwinds what already completed.
		recoveryErr = r.store.UpdateSagaState(ctx, sg.ID, StateFailed)
		if recoveryErr == nil && r.orchestrator != nil && r.orchestrator.compensator != nil {
			_, recoveryErr = r.orchestrator.compensator.CompensateSaga(ctx, sg.ID)
		}
	case StateCompensating:
		if r.orchestrator != nil && r.orchestrator.compensator != nil {
			_, recoveryErr = r.orchestrator.compensator.CompensateSaga(ctx, sg.ID)
		}
	}

	if recoveryErr != nil {
		r.log.Warn("recovery attempt failed", zap.String("saga_id", sg.ID.String()), zap.Error(recoveryErr))
		rec := Recovery{
			ID: uuid.New(), SagaID: sg.ID, RecoveryType: "crash_recovery",
			AttemptedAt: time.Now().UTC(), AttemptCount: 1, LastError: recoveryErr.Error(),
		}
		if err := r.store.SaveRecoveryRecord(ctx, rec); err != nil {
			r.log.Warn("recovery: failed to persist recovery record", zap.Error(err))
		}
		return false
	}

	_ = r.store.ClearRecoveryRecord(ctx, sg.ID)
	return true
}
