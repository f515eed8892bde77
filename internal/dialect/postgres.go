package dialect

import "strconv"

type postgresDialect struct{}

func (d *postgresDialect) Name() string { return "postgresql" }

func (d *postgresDialect) QuoteIdentifier(s string) string { return `"` + s + `"` }

func (d *postgresDialect) BindVar(i int) string { return "$" + strconv.Itoa(i) }

func (d *postgresDialect) SupportsLateral() bool { return true }
