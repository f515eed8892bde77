package dbadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/orlangure/gnomock"
	"github.com/orlangure/gnomock/preset/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraiseql/fraiseql-engine/internal/filter"
)

// startPostgres boots a disposable postgres container with one JSONB view
// seeded, for adapter integration coverage. Skipped in short mode
// (go test -short); otherwise it needs a reachable docker daemon.
func startPostgres(t *testing.T) (*gnomock.Container, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	p := postgres.Preset(
		postgres.WithUser("fraiseql", "fraiseql"),
		postgres.WithDatabase("fraiseql"),
		postgres.WithQueries(
			`CREATE TABLE v_user (data jsonb NOT NULL)`,
			`INSERT INTO v_user (data) VALUES
				('{"id":"1","name":"ann","age":30}'),
				('{"id":"2","name":"bob","age":17}')`,
		),
	)
	c, err := gnomock.Start(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gnomock.Stop(c) })

	connString := fmt.Sprintf(
		"postgres://fraiseql:fraiseql@%s/fraiseql", c.DefaultAddress(),
	)
	return c, connString
}

func TestAdapterExecuteWhereQuery(t *testing.T) {
	_, connString := startPostgres(t)
	ctx := context.Background()

	a, err := New(ctx, Config{ConnString: connString, MaxSize: 4}, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.HealthCheck(ctx))
	assert.Equal(t, DatabasePostgreSQL, a.DatabaseType())

	limit := 10
	rows, err := a.ExecuteWhereQuery(ctx, "v_user", nil, filter.FieldClause{
		Path: []string{"age"}, Op: filter.OpGt, Value: 18,
	}, &limit, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	m, ok := rows[0].Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ann", m["name"])
}

func TestAdapterExecuteRawQuery(t *testing.T) {
	_, connString := startPostgres(t)
	ctx := context.Background()

	a, err := New(ctx, Config{ConnString: connString, MaxSize: 2}, nil)
	require.NoError(t, err)
	defer a.Close()

	rows, err := a.ExecuteRawQuery(ctx, "SELECT count(*) AS n FROM v_user")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["n"])
}

func TestQueryParamConversion(t *testing.T) {
	assert.Equal(t, int64(42), NewQueryParam(json.Number("42")).Arg())
	assert.Equal(t, 3.5, NewQueryParam(json.Number("3.5")).Arg())
	assert.Equal(t, "hi", NewQueryParam("hi").Arg())
	assert.Equal(t, true, NewQueryParam(true).Arg())
}
