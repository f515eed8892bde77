package saga

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// Store is the persistent, trinity-keyed saga store: surrogate BIGINT
// primary key (`pk_`) for internal joins, natural UUID `id` for the public
// identity, `tb_` table prefix.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-connected pool.
func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

const schemaDDL = `
CREATE SEQUENCE IF NOT EXISTS seq_tb_federation_sagas START 1 INCREMENT 1;

CREATE TABLE IF NOT EXISTS tb_federation_sagas (
	pk_ BIGINT PRIMARY KEY DEFAULT nextval('seq_tb_federation_sagas'),
	id UUID NOT NULL UNIQUE,
	state TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	metadata JSONB
);
CREATE INDEX IF NOT EXISTS idx_tb_federation_sagas_state ON tb_federation_sagas (state);
CREATE INDEX IF NOT EXISTS idx_tb_federation_sagas_created_at ON tb_federation_sagas (created_at);

CREATE SEQUENCE IF NOT EXISTS seq_tb_federation_saga_steps START 1 INCREMENT 1;

CREATE TABLE IF NOT EXISTS tb_federation_saga_steps (
	pk_ BIGINT PRIMARY KEY DEFAULT nextval('seq_tb_federation_saga_steps'),
	id UUID NOT NULL UNIQUE,
	saga_pk_ BIGINT NOT NULL REFERENCES tb_federation_sagas (pk_) ON DELETE CASCADE,
	step_number INT NOT NULL,
	subgraph TEXT NOT NULL,
	mutation_type TEXT NOT NULL,
	typename TEXT NOT NULL,
	variables JSONB NOT NULL,
	state TEXT NOT NULL,
	result JSONB,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tb_federation_saga_steps_saga_pk ON tb_federation_saga_steps (saga_pk_);

CREATE SEQUENCE IF NOT EXISTS seq_tb_federation_saga_recovery START 1 INCREMENT 1;

CREATE TABLE IF NOT EXISTS tb_federation_saga_recovery (
	pk_ BIGINT PRIMARY KEY DEFAULT nextval('seq_tb_federation_saga_recovery'),
	id UUID NOT NULL UNIQUE,
	saga_pk_ BIGINT NOT NULL REFERENCES tb_federation_sagas (pk_) ON DELETE CASCADE,
	recovery_type TEXT NOT NULL,
	attempted_at TIMESTAMPTZ NOT NULL,
	last_attempt TIMESTAMPTZ,
	attempt_count INT NOT NULL DEFAULT 0,
	last_error TEXT
);
`

// MigrateSchema creates the saga tables and indices if they do not exist.
func (s *Store) MigrateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return ferr.DatabaseWrap(err, "", "migrate saga schema")
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	sqlState := ""
	if pe, ok := err.(interface{ SQLState() string }); ok {
		sqlState = pe.SQLState()
	}
	return ferr.DatabaseWrap(err, sqlState, "saga store")
}

// SaveSaga upserts a saga by its natural id.
func (s *Store) SaveSaga(ctx context.Context, sg Saga) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tb_federation_sagas (id, state, created_at, completed_at, updated_at, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     state = $2, completed_at = $4, updated_at = $5, metadata = $6`,
		sg.ID, sg.State.String(), sg.CreatedAt, sg.CompletedAt, now, metadataJSON(sg.Metadata),
	)
	return mapErr(err)
}

func metadataJSON(m map[string]interface{}) []byte {
	if m == nil {
		return nil
	}
	b, _ := json.Marshal(m)
	return b
}

func scanSaga(row pgx.Row) (Saga, error) {
	var sg Saga
	var stateStr string
	var metadata []byte
	if err := row.Scan(&sg.ID, &stateStr, &sg.CreatedAt, &sg.CompletedAt, &metadata); err != nil {
		return Saga{}, err
	}
	state, ok := ParseState(stateStr)
	if !ok {
		state = StatePending
	}
	sg.State = state
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &sg.Metadata)
	}
	return sg, nil
}

// LoadSaga loads one saga by id, returning (Saga{}, false, nil) if absent.
func (s *Store) LoadSaga(ctx context.Context, id uuid.UUID) (Saga, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, state, created_at, completed_at, metadata FROM tb_federation_sagas WHERE id = $1`, id)
	sg, err := scanSaga(row)
	if err == pgx.ErrNoRows {
		return Saga{}, false, nil
	}
	if err != nil {
		return Saga{}, false, mapErr(err)
	}
	return sg, true, nil
}

// LoadAllSagas loads every saga, newest first.
func (s *Store) LoadAllSagas(ctx context.Context) ([]Saga, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, state, created_at, completed_at, metadata FROM tb_federation_sagas ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectSagas(rows)
}

// LoadSagasByState loads sagas filtered to one state, newest first.
func (s *Store) LoadSagasByState(ctx context.Context, state State) ([]Saga, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, state, created_at, completed_at, metadata FROM tb_federation_sagas WHERE state = $1 ORDER BY created_at DESC`,
		state.String())
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectSagas(rows)
}

func collectSagas(rows pgx.Rows) ([]Saga, error) {
	var out []Saga
	for rows.Next() {
		sg, err := scanSaga(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, sg)
	}
	return out, mapErr(rows.Err())
}

// UpdateSagaState transitions a saga's state, auto-stamping completed_at
// for terminal states (Completed, Compensated).
func (s *Store) UpdateSagaState(ctx context.Context, id uuid.UUID, state State) error {
	now := time.Now().UTC()
	var completedAt *time.Time
	if state.IsTerminal() {
		completedAt = &now
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE tb_federation_sagas SET state = $1, completed_at = $2, updated_at = $3 WHERE id = $4`,
		state.String(), completedAt, now, id)
	return mapErr(err)
}

func scanStep(row interface {
	Scan(dest ...interface{}) error
}) (Step, error) {
	var st Step
	var mutationStr, stateStr string
	var variables, result []byte
	if err := row.Scan(&st.ID, &st.SagaID, &st.Order, &st.Subgraph, &mutationStr,
		&st.Typename, &variables, &stateStr, &result, &st.StartedAt, &st.CompletedAt); err != nil {
		return Step{}, err
	}
	if mt, ok := ParseMutationType(mutationStr); ok {
		st.MutationType = mt
	} else {
		st.MutationType = MutationUpdate
	}
	if ss, ok := ParseStepState(stateStr); ok {
		st.State = ss
	} else {
		st.State = StepPending
	}
	if len(variables) > 0 {
		_ = json.Unmarshal(variables, &st.Variables)
	}
	if len(result) > 0 {
		_ = json.Unmarshal(result, &st.Result)
	}
	return st, nil
}

const stepSelectColumns = `fss.id, fs.id, fss.step_number, fss.subgraph, fss.mutation_type, fss.typename,
	fss.variables, fss.state, fss.result, fss.started_at, fss.completed_at`

// LoadSagaStep loads one step by its own id.
func (s *Store) LoadSagaStep(ctx context.Context, stepID uuid.UUID) (Step, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stepSelectColumns+`
		 FROM tb_federation_saga_steps fss
		 INNER JOIN tb_federation_sagas fs ON fss.saga_pk_ = fs.pk_
		 WHERE fss.id = $1`, stepID)
	st, err := scanStep(row)
	if err == pgx.ErrNoRows {
		return Step{}, false, nil
	}
	if err != nil {
		return Step{}, false, mapErr(err)
	}
	return st, true, nil
}

// LoadSagaSteps loads all steps for a saga, ordered by step number.
func (s *Store) LoadSagaSteps(ctx context.Context, sagaID uuid.UUID) ([]Step, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stepSelectColumns+`
		 FROM tb_federation_saga_steps fss
		 INNER JOIN tb_federation_sagas fs ON fss.saga_pk_ = fs.pk_
		 WHERE fs.id = $1
		 ORDER BY fss.step_number ASC`, sagaID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, st)
	}
	return out, mapErr(rows.Err())
}

// UpdateSagaStepState transitions a step's state, auto-stamping
// completed_at for terminal states (Completed, Failed).
func (s *Store) UpdateSagaStepState(ctx context.Context, stepID uuid.UUID, state StepState) error {
	now := time.Now().UTC()
	var completedAt *time.Time
	if state == StepCompleted || state == StepFailed {
		completedAt = &now
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE tb_federation_saga_steps SET state = $1, completed_at = $2, updated_at = $3 WHERE id = $4`,
		state.String(), completedAt, now, stepID)
	return mapErr(err)
}

// SaveSagaStep upserts a step, resolving the parent saga's surrogate key
// via subquery from its natural UUID.
func (s *Store) SaveSagaStep(ctx context.Context, st Step) error {
	now := time.Now().UTC()
	variables, err := json.Marshal(st.Variables)
	if err != nil {
		return ferr.Validation("marshal step variables: %v", err)
	}
	result := metadataJSON(st.Result)

	_, execErr := s.pool.Exec(ctx,
		`INSERT INTO tb_federation_saga_steps
		     (id, saga_pk_, step_number, subgraph, mutation_type, typename, variables, state, result, started_at, completed_at, created_at, updated_at)
		 SELECT $1, fs.pk_, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		 FROM tb_federation_sagas fs
		 WHERE fs.id = $2
		 ON CONFLICT (id) DO UPDATE SET state = $8, result = $9, completed_at = $11, updated_at = $13`,
		st.ID, st.SagaID, st.Order, st.Subgraph, st.MutationType.String(), st.Typename,
		variables, st.State.String(), result, st.StartedAt, st.CompletedAt, now, now,
	)
	return mapErr(execErr)
}

// UpdateSagaStepResult overwrites a step's stored result (used both for a
// successful forward mutation's result and for the compensator's
// confirmation document).
func (s *Store) UpdateSagaStepResult(ctx context.Context, stepID uuid.UUID, result map[string]interface{}) error {
	b, err := json.Marshal(result)
	if err != nil {
		return ferr.Validation("marshal step result: %v", err)
	}
	_, execErr := s.pool.Exec(ctx,
		`UPDATE tb_federation_saga_steps SET result = $1, updated_at = $2 WHERE id = $3`,
		b, time.Now().UTC(), stepID)
	return mapErr(execErr)
}

// MarkSagaForRecovery inserts a recovery record for a saga.
func (s *Store) MarkSagaForRecovery(ctx context.Context, sagaID uuid.UUID, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tb_federation_saga_recovery (id, saga_pk_, recovery_type, attempted_at, attempt_count)
		 SELECT $1, fs.pk_, $3, $4, $5
		 FROM tb_federation_sagas fs
		 WHERE fs.id = $2`,
		uuid.New(), sagaID, reason, time.Now().UTC(), int32(0))
	return mapErr(err)
}

// GetRecoveryAttempts returns the total recorded recovery attempts for a saga.
func (s *Store) GetRecoveryAttempts(ctx context.Context, sagaID uuid.UUID) (int32, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(r.attempt_count), 0)
		 FROM tb_federation_saga_recovery r
		 INNER JOIN tb_federation_sagas fs ON r.saga_pk_ = fs.pk_
		 WHERE fs.id = $1`, sagaID)
	var n int32
	if err := row.Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// ClearRecoveryRecord removes all recovery records for a saga.
func (s *Store) ClearRecoveryRecord(ctx context.Context, sagaID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM tb_federation_saga_recovery
		 WHERE saga_pk_ = (SELECT pk_ FROM tb_federation_sagas WHERE id = $1)`, sagaID)
	return mapErr(err)
}

// SaveRecoveryRecord inserts an explicit recovery record.
func (s *Store) SaveRecoveryRecord(ctx context.Context, r Recovery) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tb_federation_saga_recovery (id, saga_pk_, recovery_type, attempted_at, last_attempt, attempt_count, last_error)
		 SELECT $1, fs.pk_, $3, $4, $5, $6, $7
		 FROM tb_federation_sagas fs
		 WHERE fs.id = $2`,
		r.ID, r.SagaID, r.RecoveryType, r.AttemptedAt, r.LastAttempt, r.AttemptCount, nullableString(r.LastError))
	return mapErr(err)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DeleteSaga deletes a saga; steps and recovery records cascade.
func (s *Store) DeleteSaga(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tb_federation_sagas WHERE id = $1`, id)
	return mapErr(err)
}

// DeleteCompletedSagas deletes every saga in a terminal state and returns
// the count removed.
func (s *Store) DeleteCompletedSagas(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tb_federation_sagas WHERE state IN ($1, $2)`,
		StateCompleted.String(), StateCompensated.String())
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

// CleanupStaleSagas deletes non-terminal sagas older than hoursThreshold.
func (s *Store) CleanupStaleSagas(ctx context.Context, hoursThreshold int64) (int64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(hoursThreshold) * time.Hour)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tb_federation_sagas WHERE state NOT IN ($1, $2) AND created_at < $3`,
		StateCompleted.String(), StateCompensated.String(), cutoff)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

// FindPendingSagas returns sagas still in Pending state.
func (s *Store) FindPendingSagas(ctx context.Context) ([]Saga, error) {
	return s.LoadSagasByState(ctx, StatePending)
}

// FindStuckSagas returns sagas stuck in Executing or Compensating for
// longer than staleAfter, a crash-recovery candidate set.
func (s *Store) FindStuckSagas(ctx context.Context, staleAfter time.Duration) ([]Saga, error) {
	cutoff := time.Now().UTC().Add(-staleAfter)
	rows, err := s.pool.Query(ctx,
		`SELECT id, state, created_at, completed_at, metadata FROM tb_federation_sagas
		 WHERE state IN ($1, $2) AND updated_at < $3
		 ORDER BY created_at ASC`,
		StateExecuting.String(), StateCompensating.String(), cutoff)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectSagas(rows)
}

// SagaCount returns the total number of sagas.
func (s *Store) SagaCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "tb_federation_sagas")
}

// StepCount returns the total number of saga steps.
func (s *Store) StepCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "tb_federation_saga_steps")
}

// RecoveryCount returns the total number of recovery records.
func (s *Store) RecoveryCount(ctx context.Context) (int64, error) {
	return s.count(ctx, "tb_federation_saga_recovery")
}

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	row := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+table)
	if err := row.Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// HealthCheck verifies the underlying pool can serve a query.
func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	row := s.pool.QueryRow(ctx, "SELECT 1")
	return mapErr(row.Scan(&one))
}
