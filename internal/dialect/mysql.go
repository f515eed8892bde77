package dialect

type mysqlDialect struct{}

func (d *mysqlDialect) Name() string { return "mysql" }

func (d *mysqlDialect) QuoteIdentifier(s string) string { return "`" + s + "`" }

// BindVar ignores i: MySQL's driver uses positional "?" placeholders with
// no numbering, unlike Postgres's numbered "$N".
func (d *mysqlDialect) BindVar(i int) string { return "?" }

func (d *mysqlDialect) SupportsLateral() bool { return true }
