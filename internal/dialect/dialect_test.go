package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForNameDefaultsToPostgres(t *testing.T) {
	assert.Equal(t, Postgres, ForName(""))
	assert.Equal(t, Postgres, ForName("oracle"))
	assert.Equal(t, MySQL, ForName("mysql"))
	assert.Equal(t, SQLite, ForName("sqlite"))
}

func TestPostgresQuotingAndBindVar(t *testing.T) {
	assert.Equal(t, `"col"`, Postgres.QuoteIdentifier("col"))
	assert.Equal(t, "$3", Postgres.BindVar(3))
	assert.True(t, Postgres.SupportsLateral())
}

func TestMySQLQuotingAndBindVar(t *testing.T) {
	assert.Equal(t, "`col`", MySQL.QuoteIdentifier("col"))
	assert.Equal(t, "?", MySQL.BindVar(3))
}

func TestSQLiteDoesNotSupportLateral(t *testing.T) {
	assert.False(t, SQLite.SupportsLateral())
	assert.Equal(t, "?", SQLite.BindVar(1))
}
