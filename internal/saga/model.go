// Package saga implements the federated saga orchestrator: a persistent,
// trinity-keyed store, a forward-execution state machine, a strict-reverse
// compensator, and a recovery scheduler for crash-interrupted sagas.
package saga

import (
	"time"

	"github.com/google/uuid"
)

// State is a saga's lifecycle state.
type State int

const (
	StatePending State = iota
	StateExecuting
	StateCompleted
	StateFailed
	StateCompensating
	StateCompensated
)

var stateNames = map[State]string{
	StatePending: "pending", StateExecuting: "executing", StateCompleted: "completed",
	StateFailed: "failed", StateCompensating: "compensating", StateCompensated: "compensated",
}

var stateValues = map[string]State{
	"pending": StatePending, "executing": StateExecuting, "completed": StateCompleted,
	"failed": StateFailed, "compensating": StateCompensating, "compensated": StateCompensated,
}

func (s State) String() string { return stateNames[s] }

// ParseState parses a persisted state string.
func ParseState(s string) (State, bool) { v, ok := stateValues[s]; return v, ok }

// IsTerminal reports whether state stamps completed_at on transition.
func (s State) IsTerminal() bool { return s == StateCompleted || s == StateCompensated }

// StepState is a saga step's lifecycle state.
type StepState int

const (
	StepPending StepState = iota
	StepExecuting
	StepCompleted
	StepFailed
)

var stepStateNames = map[StepState]string{
	StepPending: "pending", StepExecuting: "executing", StepCompleted: "completed", StepFailed: "failed",
}

var stepStateValues = map[string]StepState{
	"pending": StepPending, "executing": StepExecuting, "completed": StepCompleted, "failed": StepFailed,
}

func (s StepState) String() string { return stepStateNames[s] }

// ParseStepState parses a persisted step state string.
func ParseStepState(s string) (StepState, bool) { v, ok := stepStateValues[s]; return v, ok }

// MutationType is the kind of GraphQL mutation a saga step runs.
type MutationType int

const (
	MutationCreate MutationType = iota
	MutationUpdate
	MutationDelete
)

var mutationNames = map[MutationType]string{
	MutationCreate: "create", MutationUpdate: "update", MutationDelete: "delete",
}

var mutationValues = map[string]MutationType{
	"create": MutationCreate, "update": MutationUpdate, "delete": MutationDelete,
}

func (m MutationType) String() string { return mutationNames[m] }

// ParseMutationType parses a persisted mutation type string.
func ParseMutationType(s string) (MutationType, bool) { v, ok := mutationValues[s]; return v, ok }

// Saga is one federated distributed transaction.
type Saga struct {
	ID          uuid.UUID
	State       State
	CreatedAt   time.Time
	CompletedAt *time.Time
	Metadata    map[string]interface{}
}

// Step is one forward mutation within a saga, keyed by its order in the
// saga's execution sequence.
type Step struct {
	ID           uuid.UUID
	SagaID       uuid.UUID
	Order        int
	Subgraph     string
	MutationType MutationType
	Typename     string
	Variables    map[string]interface{}
	State        StepState
	Result       map[string]interface{}
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Recovery is one crash-recovery attempt record for a saga.
type Recovery struct {
	ID            uuid.UUID
	SagaID        uuid.UUID
	RecoveryType  string
	AttemptedAt   time.Time
	LastAttempt   *time.Time
	AttemptCount  int32
	LastError     string
}
