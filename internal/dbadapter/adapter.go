package dbadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
	"github.com/fraiseql/fraiseql-engine/internal/filter"
)

// Adapter owns a bounded PostgreSQL connection pool.
type Adapter struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Config configures pool sizing. A positive MaxSize sets pgxpool's
// MaxConns and a positive MinSize sets its MinConns; zero leaves pgxpool's
// own default in place.
type Config struct {
	ConnString string
	MinSize    int32
	MaxSize    int32
}

// New creates an adapter and verifies connectivity, retrying pool
// acquisition with backoff before giving up.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Adapter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pcfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, ferr.ConnectionPoolWrap(err, "parse config")
	}
	if cfg.MaxSize > 0 {
		pcfg.MaxConns = cfg.MaxSize
	}
	if cfg.MinSize > 0 {
		pcfg.MinConns = cfg.MinSize
	}

	var pool *pgxpool.Pool
	err = retry.Do(
		func() error {
			p, err := pgxpool.ConnectConfig(ctx, pcfg)
			if err != nil {
				return err
			}
			if err := p.Ping(ctx); err != nil {
				p.Close()
				return err
			}
			pool = p
			return nil
		},
		retry.Attempts(5),
		retry.Delay(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("database connect retry", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, ferr.ConnectionPoolWrap(err, "acquire connection")
	}

	return &Adapter{pool: pool, log: log}, nil
}

// Close releases the pool.
func (a *Adapter) Close() { a.pool.Close() }

// Pool exposes the underlying connection pool for components that need
// direct access (the saga store's migrations and queries).
func (a *Adapter) Pool() *pgxpool.Pool { return a.pool }

// DatabaseType reports the backend kind.
func (a *Adapter) DatabaseType() DatabaseType { return DatabasePostgreSQL }

// PoolMetrics snapshots current pool occupancy.
func (a *Adapter) PoolMetrics() PoolMetrics {
	s := a.pool.Stat()
	total := s.TotalConns()
	idle := s.IdleConns()
	return PoolMetrics{
		Total:   total,
		Idle:    idle,
		Active:  total - idle,
		Waiting: int32(s.EmptyAcquireCount()),
	}
}

// HealthCheck verifies the pool can serve a trivial query.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	var one int
	row := a.pool.QueryRow(ctx, "SELECT 1")
	if err := row.Scan(&one); err != nil {
		return databaseErr(err, "health check failed")
	}
	return nil
}

func databaseErr(err error, msg string) error {
	sqlState := ""
	if pe, ok := err.(interface{ SQLState() string }); ok {
		sqlState = pe.SQLState()
	}
	return ferr.DatabaseWrap(err, sqlState, msg)
}

func (a *Adapter) queryJSONBRows(ctx context.Context, sql string, args []interface{}) ([]JsonbValue, error) {
	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, databaseErr(err, "query execution failed")
	}
	defer rows.Close()

	var results []JsonbValue
	for rows.Next() {
		var data interface{}
		if err := rows.Scan(&data); err != nil {
			return nil, databaseErr(err, "row scan failed")
		}
		results = append(results, JsonbValue{Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, databaseErr(err, "row iteration failed")
	}
	return results, nil
}

// ExecuteWhereQuery is the standard query path: SELECT data FROM view
// [WHERE ...] [LIMIT $n] [OFFSET $n]. View names are interpolated
// unquoted and are assumed validated by the schema registry; LIMIT/OFFSET
// are always parameterized, continuing the WHERE clause's own parameter
// numbering.
func (a *Adapter) ExecuteWhereQuery(
	ctx context.Context, view string, idx filter.IndexedColumns, where filter.Clause, limit, offset *int,
) ([]JsonbValue, error) {
	sql := fmt.Sprintf("SELECT data FROM %s", view)
	var args []interface{}

	if where != nil {
		gen := filter.NewGenerator(idx)
		whereSQL, params, err := gen.Generate(where)
		if err != nil {
			return nil, err
		}
		sql += " WHERE " + whereSQL
		args = ArgsOf(params)
	}

	n := len(args)
	if limit != nil {
		n++
		sql += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, *limit)
	}
	if offset != nil {
		n++
		sql += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, *offset)
	}

	return a.queryJSONBRows(ctx, sql, args)
}

// ExecuteWithProjection replaces the SELECT list with projection's SQL
// template (typically jsonb_build_object(...)) when present; with no
// projection it falls back to ExecuteWhereQuery.
func (a *Adapter) ExecuteWithProjection(
	ctx context.Context, view string, idx filter.IndexedColumns, projection *ProjectionHint, where filter.Clause, limit *int,
) ([]JsonbValue, error) {
	if projection == nil {
		return a.ExecuteWhereQuery(ctx, view, idx, where, limit, nil)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", projection.Template, view)
	var args []interface{}

	if where != nil {
		gen := filter.NewGenerator(idx)
		whereSQL, params, err := gen.Generate(where)
		if err != nil {
			return nil, err
		}
		sql += " WHERE " + whereSQL
		args = ArgsOf(params)
	}

	if limit != nil {
		sql += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, *limit)
	}

	return a.queryJSONBRows(ctx, sql, args)
}

// ExecuteRawQuery runs a caller-trusted SQL string with no parameters and
// returns each row as a column-name-to-value map. Intended for adapter
// utilities (schema introspection, migrations), never for untrusted input.
func (a *Adapter) ExecuteRawQuery(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := a.pool.Query(ctx, sql)
	if err != nil {
		return nil, databaseErr(err, "query execution failed")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var results []map[string]interface{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, databaseErr(err, "row scan failed")
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = vals[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseErr(err, "row iteration failed")
	}
	return results, nil
}
