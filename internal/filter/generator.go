package filter

import (
	"fmt"
	"strings"

	"github.com/fraiseql/fraiseql-engine/internal/dialect"
	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// IndexedColumns is the per-view set of physical column names that mirror
// JSONB paths (dotted path joined by "__"). Its presence lets the
// generator emit a quoted identifier instead of JSONB path extraction.
type IndexedColumns map[string]struct{}

// Generator compiles a Clause tree into parameterized SQL for one view.
// paramCounter is local to a single Generate call and must never be shared
// across concurrent invocations; if that is ever required, promote it to
// an atomic counter (see Design Notes).
type Generator struct {
	indexed      IndexedColumns
	dialect      dialect.Dialect
	paramCounter int
	params       []interface{}
}

// NewGenerator returns a Generator for a view whose indexed-columns cache
// is idx (nil is treated as empty), emitting Postgres SQL.
func NewGenerator(idx IndexedColumns) *Generator {
	return &Generator{indexed: idx, dialect: dialect.Postgres}
}

// NewGeneratorForDialect returns a Generator targeting a specific SQL
// dialect's identifier quoting and parameter placeholders. Non-Postgres
// dialects are partial: only quoting and placeholders follow the dialect;
// JSONB path extraction and the JSONB/ltree/vector/inet operators below
// are still emitted in Postgres syntax.
func NewGeneratorForDialect(idx IndexedColumns, d dialect.Dialect) *Generator {
	return &Generator{indexed: idx, dialect: d}
}

// Generate compiles clause into SQL text and an ordered parameter list.
// The internal parameter counter is reset at the start of every call.
func (g *Generator) Generate(clause Clause) (string, []interface{}, error) {
	g.paramCounter = 0
	g.params = nil
	sql, err := g.generateClause(clause)
	if err != nil {
		return "", nil, err
	}
	return sql, g.params, nil
}

func (g *Generator) nextParam(v interface{}) string {
	g.paramCounter++
	g.params = append(g.params, v)
	return g.dialect.BindVar(g.paramCounter)
}

func (g *Generator) generateClause(clause Clause) (string, error) {
	switch c := clause.(type) {
	case FieldClause:
		return g.generateField(c)
	case AndClause:
		if len(c.Children) == 0 {
			return "TRUE", nil
		}
		return g.joinChildren(c.Children, " AND ")
	case OrClause:
		if len(c.Children) == 0 {
			return "FALSE", nil
		}
		return g.joinChildren(c.Children, " OR ")
	case NotClause:
		inner, err := g.generateClause(c.Child)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", ferr.Validation("unknown clause type %T", clause)
	}
}

func (g *Generator) joinChildren(children []Clause, sep string) (string, error) {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		s, err := g.generateClause(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+s+")")
	}
	return strings.Join(parts, sep), nil
}

// buildJSONBPath resolves a field path, preferring the indexed-columns
// cache's dotted identifier over JSONB path extraction.
func (g *Generator) buildJSONBPath(path []string) string {
	dotted := strings.Join(path, "__")
	if g.indexed != nil {
		if _, ok := g.indexed[dotted]; ok {
			return g.dialect.QuoteIdentifier(dotted)
		}
	}
	if len(path) == 1 {
		return "data->>'" + path[0] + "'"
	}
	var b strings.Builder
	b.WriteString("data")
	for i, p := range path {
		if i == len(path)-1 {
			b.WriteString("->>'" + p + "'")
		} else {
			b.WriteString("->'" + p + "'")
		}
	}
	return b.String()
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func isBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

func (g *Generator) generateField(c FieldClause) (string, error) {
	field := g.buildJSONBPath(c.Path)

	switch c.Op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return g.generateComparison(field, c.Op, c.Value)
	case OpIn, OpNin:
		return g.generateInNin(field, c.Op, c.Value)
	case OpContains, OpIContains:
		return g.generatePatternMatch(field, c.Op, c.Value, "%", "%")
	case OpStartsWith, OpIStartsWith:
		return g.generatePatternMatch(field, c.Op, c.Value, "", "%")
	case OpEndsWith, OpIEndsWith:
		return g.generatePatternMatch(field, c.Op, c.Value, "%", "")
	case OpLike:
		return field + " LIKE " + g.nextParam(c.Value), nil
	case OpILike:
		return field + " ILIKE " + g.nextParam(c.Value), nil
	case OpIsNull:
		if truthy(c.Value) {
			return field + " IS NULL", nil
		}
		return field + " IS NOT NULL", nil
	case OpArrayContains:
		return field + "::jsonb @> " + g.nextParam(c.Value) + "::jsonb", nil
	case OpArrayLength:
		return g.generateArrayLength(field, c.Value)
	case OpVectorL2Distance:
		return field + "::vector <-> " + g.nextParam(c.Value) + "::vector", nil
	case OpVectorCosineDistance:
		return field + "::vector <=> " + g.nextParam(c.Value) + "::vector", nil
	case OpVectorInnerProduct:
		return field + "::vector <#> " + g.nextParam(c.Value) + "::vector", nil
	case OpVectorL1Distance:
		return field + "::vector <+> " + g.nextParam(c.Value) + "::vector", nil
	case OpVectorJaccardDistance:
		return field + "::text[] <%> " + g.nextParam(c.Value) + "::text[]", nil
	case OpSearch:
		return "to_tsvector(" + field + ") @@ to_tsquery(" + g.nextParam(c.Value) + ")", nil
	case OpSearchPlain:
		return "to_tsvector(" + field + ") @@ plainto_tsquery(" + g.nextParam(c.Value) + ")", nil
	case OpSearchPhrase:
		return "to_tsvector(" + field + ") @@ phraseto_tsquery(" + g.nextParam(c.Value) + ")", nil
	case OpSearchWeb:
		return "to_tsvector(" + field + ") @@ websearch_to_tsquery(" + g.nextParam(c.Value) + ")", nil
	case OpInetFamily:
		return "family(" + field + "::inet) = " + g.nextParam(c.Value), nil
	case OpInetSubnet:
		return field + "::inet <<= " + g.nextParam(c.Value) + "::inet", nil
	case OpInetContainedBy:
		return field + "::inet << " + g.nextParam(c.Value) + "::inet", nil
	case OpInetContains:
		return field + "::inet >> " + g.nextParam(c.Value) + "::inet", nil
	case OpInetOverlaps:
		return field + "::inet && " + g.nextParam(c.Value) + "::inet", nil
	case OpLtreeAncestor:
		return field + "::ltree @> " + g.nextParam(c.Value) + "::ltree", nil
	case OpLtreeDescendant:
		return field + "::ltree <@ " + g.nextParam(c.Value) + "::ltree", nil
	case OpLtreeMatchesLquery:
		return field + "::ltree ~ " + g.nextParam(c.Value) + "::lquery", nil
	case OpLtreeMatchesLtxtquery:
		return field + "::ltree @ " + g.nextParam(c.Value) + "::ltxtquery", nil
	case OpLtreeMatchesAnyLquery:
		return g.generateMatchesAnyLquery(field, c.Value)
	case OpLtreeDepth:
		return "nlevel(" + field + "::ltree) " + comparatorFor(OpEq) + " " + g.nextParam(c.Value), nil
	case OpLtreeLCA:
		return g.generateLCA(field, c.Value)
	case OpJsonbContains:
		return field + "::jsonb @> " + g.nextParam(c.Value) + "::jsonb", nil
	case OpJsonbContainedBy:
		return field + "::jsonb <@ " + g.nextParam(c.Value) + "::jsonb", nil
	case OpJsonbOverlaps:
		return field + "::jsonb && " + g.nextParam(c.Value) + "::jsonb", nil
	default:
		return "", ferr.Validation("unknown operator %d", c.Op)
	}
}

func comparatorFor(op Operator) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// generateComparison emits numeric/boolean double-casts where the value's
// JSON kind calls for it. JSONB text comparison is lexicographic, so a raw
// text comparison on a numeric field would be silently wrong.
func (g *Generator) generateComparison(field string, op Operator, value interface{}) (string, error) {
	cmp := comparatorFor(op)
	switch {
	case isNumeric(value):
		return fmt.Sprintf("(%s)::numeric %s (%s::text)::numeric", field, cmp, g.nextParam(value)), nil
	case isBool(value):
		return fmt.Sprintf("(%s)::boolean %s %s::boolean", field, cmp, g.nextParam(value)), nil
	default:
		return fmt.Sprintf("%s %s %s", field, cmp, g.nextParam(value)), nil
	}
}

func (g *Generator) generateInNin(field string, op Operator, value interface{}) (string, error) {
	arr, ok := value.([]interface{})
	if !ok {
		return "", ferr.Validation("in/nin value must be an array")
	}
	if len(arr) == 0 {
		if op == OpIn {
			return "FALSE", nil
		}
		return "NOT (FALSE)", nil
	}
	placeholders := make([]string, 0, len(arr))
	for _, v := range arr {
		placeholders = append(placeholders, g.nextParam(v))
	}
	kw := "IN"
	if op == OpNin {
		kw = "NOT IN"
	}
	return field + " " + kw + " (" + strings.Join(placeholders, ",") + ")", nil
}

// generatePatternMatch builds '%'||$k||'%' (or a one-sided variant) so the
// literal '%' cannot be injected via the parameter value.
func (g *Generator) generatePatternMatch(field string, op Operator, value interface{}, prefix, suffix string) (string, error) {
	kw := "LIKE"
	if op == OpIContains || op == OpIStartsWith || op == OpIEndsWith {
		kw = "ILIKE"
	}
	p := g.nextParam(value)
	pattern := p
	if prefix != "" {
		pattern = "'" + prefix + "'||" + pattern
	}
	if suffix != "" {
		pattern = pattern + "||'" + suffix + "'"
	}
	return field + " " + kw + " " + pattern, nil
}

func (g *Generator) generateArrayLength(field string, value interface{}) (string, error) {
	return "jsonb_array_length(" + field + "::jsonb) = " + g.nextParam(value), nil
}

func (g *Generator) generateMatchesAnyLquery(field string, value interface{}) (string, error) {
	arr, ok := value.([]interface{})
	if !ok || len(arr) == 0 {
		return "", ferr.Validation("matches_any_lquery requires a non-empty array")
	}
	placeholders := make([]string, 0, len(arr))
	for _, v := range arr {
		placeholders = append(placeholders, g.nextParam(v)+"::lquery")
	}
	return field + "::ltree ? ARRAY[" + strings.Join(placeholders, ",") + "]", nil
}

func (g *Generator) generateLCA(field string, value interface{}) (string, error) {
	arr, ok := value.([]interface{})
	if !ok || len(arr) == 0 {
		return "", ferr.Validation("lca requires a non-empty array")
	}
	placeholders := make([]string, 0, len(arr))
	for _, v := range arr {
		placeholders = append(placeholders, g.nextParam(v)+"::ltree")
	}
	return "lca(" + field + "::ltree, " + strings.Join(placeholders, ",") + ")", nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		return true
	}
}
