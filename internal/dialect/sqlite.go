package dialect

type sqliteDialect struct{}

func (d *sqliteDialect) Name() string { return "sqlite" }

func (d *sqliteDialect) QuoteIdentifier(s string) string { return `"` + s + `"` }

func (d *sqliteDialect) BindVar(i int) string { return "?" }

// SQLite has no LATERAL join support; nested projections fall back to
// inline subqueries wherever a component checks this.
func (d *sqliteDialect) SupportsLateral() bool { return false }
