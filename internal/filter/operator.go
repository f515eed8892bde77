// Package filter compiles a WHERE clause AST into parameterized JSONB SQL,
// matching the WHERE/filter compiler contract: generate(clause) →
// (sql_text, [param_values]) with positional $N placeholders in insertion
// order.
package filter

import "strings"

// Operator enumerates the full set of recognized WHERE operators.
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte

	OpIn
	OpNin

	OpContains
	OpIContains
	OpStartsWith
	OpIStartsWith
	OpEndsWith
	OpIEndsWith
	OpLike
	OpILike

	OpIsNull

	OpArrayContains
	OpArrayLength

	OpVectorL2Distance
	OpVectorCosineDistance
	OpVectorInnerProduct
	OpVectorL1Distance
	OpVectorJaccardDistance

	OpSearch
	OpSearchPlain
	OpSearchPhrase
	OpSearchWeb

	OpInetFamily
	OpInetSubnet
	OpInetContainedBy
	OpInetContains
	OpInetOverlaps

	OpLtreeAncestor
	OpLtreeDescendant
	OpLtreeMatchesLquery
	OpLtreeMatchesLtxtquery
	OpLtreeMatchesAnyLquery
	OpLtreeDepth
	OpLtreeLCA

	OpJsonbContains
	OpJsonbContainedBy
	OpJsonbOverlaps
)

var operatorNames = map[string]Operator{
	"eq": OpEq, "neq": OpNeq, "gt": OpGt, "gte": OpGte, "lt": OpLt, "lte": OpLte,
	"in": OpIn, "nin": OpNin,
	"contains": OpContains, "icontains": OpIContains,
	"startswith": OpStartsWith, "istartswith": OpIStartsWith,
	"endswith": OpEndsWith, "iendswith": OpIEndsWith,
	"like": OpLike, "ilike": OpILike,
	"is_null": OpIsNull,
	"array_contains": OpArrayContains, "array_length": OpArrayLength,
	"l2_distance": OpVectorL2Distance, "cosine_distance": OpVectorCosineDistance,
	"inner_product": OpVectorInnerProduct, "l1_distance": OpVectorL1Distance,
	"jaccard_distance": OpVectorJaccardDistance,
	"search": OpSearch, "search_plain": OpSearchPlain,
	"search_phrase": OpSearchPhrase, "search_web": OpSearchWeb,
	"inet_family": OpInetFamily, "inet_subnet": OpInetSubnet,
	"inet_contained_by": OpInetContainedBy, "inet_contains": OpInetContains,
	"inet_overlaps": OpInetOverlaps,
	"ltree_ancestor": OpLtreeAncestor, "ltree_descendant": OpLtreeDescendant,
	"matches_lquery": OpLtreeMatchesLquery, "matches_ltxtquery": OpLtreeMatchesLtxtquery,
	"matches_any_lquery": OpLtreeMatchesAnyLquery, "ltree_depth": OpLtreeDepth,
	"lca": OpLtreeLCA,
	"jsonb_contains": OpJsonbContains, "jsonb_contained_by": OpJsonbContainedBy,
	"jsonb_overlaps": OpJsonbOverlaps,
}

// ParseOperator resolves an operator name, recognized case-insensitively.
func ParseOperator(name string) (Operator, bool) {
	op, ok := operatorNames[strings.ToLower(name)]
	return op, ok
}
