// Package dialect carries the engine's partial multi-SQL-dialect
// awareness: identifier quoting and parameter placeholder rendering vary
// by backend even though the query generation logic in internal/filter
// and internal/dbadapter is otherwise Postgres-shaped.
package dialect

// Dialect is the small surface internal/filter.Generator needs from a SQL
// backend: its name, how it quotes identifiers, how it renders a
// positional parameter placeholder, and whether it supports LATERAL joins.
type Dialect interface {
	Name() string
	QuoteIdentifier(s string) string
	BindVar(i int) string
	SupportsLateral() bool
}

// Postgres is the engine's primary, fully-supported dialect.
var Postgres Dialect = &postgresDialect{}

// MySQL and SQLite are carried as partial dialects: their identifier
// quoting and placeholder rendering are correct, but no component in
// this engine executes JSONB/ltree/vector/inet operators against them,
// since those are Postgres extensions with no equivalent here.
var MySQL Dialect = &mysqlDialect{}
var SQLite Dialect = &sqliteDialect{}

// ForName resolves a dialect by its Name(), defaulting to Postgres for
// an unrecognized or empty name.
func ForName(name string) Dialect {
	switch name {
	case "mysql":
		return MySQL
	case "sqlite":
		return SQLite
	default:
		return Postgres
	}
}
