package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// E1 (Filter, indexed fallback).
func TestGenerateIndexedFallback(t *testing.T) {
	idx := IndexedColumns{"items__product__category__code": struct{}{}}
	g := NewGenerator(idx)

	sql, params, err := g.Generate(FieldClause{
		Path: []string{"items", "product", "category", "code"}, Op: OpEq, Value: "ELEC",
	})
	require.NoError(t, err)
	assert.Equal(t, `"items__product__category__code" = $1`, sql)
	assert.Equal(t, []interface{}{"ELEC"}, params)
}

// E2 (Filter, numeric cast).
func TestGenerateNumericCast(t *testing.T) {
	g := NewGenerator(nil)
	sql, params, err := g.Generate(FieldClause{Path: []string{"age"}, Op: OpGt, Value: 30})
	require.NoError(t, err)
	assert.Equal(t, `(data->>'age')::numeric > ($1::text)::numeric`, sql)
	assert.Equal(t, []interface{}{30}, params)
}

func TestEmptyAndOr(t *testing.T) {
	g := NewGenerator(nil)

	sql, params, err := g.Generate(AndClause{})
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, params)

	sql, params, err = g.Generate(OrClause{})
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)
	assert.Empty(t, params)
}

func TestInEmptyArray(t *testing.T) {
	g := NewGenerator(nil)
	sql, _, err := g.Generate(FieldClause{Path: []string{"status"}, Op: OpIn, Value: []interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)

	sql, _, err = g.Generate(FieldClause{Path: []string{"status"}, Op: OpNin, Value: []interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, "NOT (FALSE)", sql)
}

func TestInNonEmptyArray(t *testing.T) {
	g := NewGenerator(nil)
	sql, params, err := g.Generate(FieldClause{
		Path: []string{"status"}, Op: OpIn, Value: []interface{}{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, `data->>'status' IN ($1,$2)`, sql)
	assert.Equal(t, []interface{}{"a", "b"}, params)
}

func TestInRejectsNonArray(t *testing.T) {
	g := NewGenerator(nil)
	_, _, err := g.Generate(FieldClause{Path: []string{"status"}, Op: OpIn, Value: "not-an-array"})
	require.Error(t, err)
}

func TestParamCounterResetsPerCall(t *testing.T) {
	g := NewGenerator(nil)
	_, p1, err := g.Generate(FieldClause{Path: []string{"x"}, Op: OpEq, Value: "a"})
	require.NoError(t, err)
	sql2, p2, err := g.Generate(FieldClause{Path: []string{"y"}, Op: OpEq, Value: "b"})
	require.NoError(t, err)
	assert.Len(t, p1, 1)
	assert.Len(t, p2, 1)
	assert.Contains(t, sql2, "$1")
}

func TestNotWrapsParens(t *testing.T) {
	g := NewGenerator(nil)
	sql, _, err := g.Generate(NotClause{Child: FieldClause{Path: []string{"x"}, Op: OpEq, Value: "a"}})
	require.NoError(t, err)
	assert.Equal(t, `NOT (data->>'x' = $1)`, sql)
}

func TestContainsBuildsPatternOutsideParam(t *testing.T) {
	g := NewGenerator(nil)
	sql, params, err := g.Generate(FieldClause{Path: []string{"name"}, Op: OpContains, Value: "bob"})
	require.NoError(t, err)
	assert.Equal(t, `data->>'name' LIKE '%'||$1||'%'`, sql)
	assert.Equal(t, []interface{}{"bob"}, params)
}

func TestIsNull(t *testing.T) {
	g := NewGenerator(nil)
	sql, _, err := g.Generate(FieldClause{Path: []string{"x"}, Op: OpIsNull, Value: true})
	require.NoError(t, err)
	assert.Equal(t, "data->>'x' IS NULL", sql)

	sql, _, err = g.Generate(FieldClause{Path: []string{"x"}, Op: OpIsNull, Value: false})
	require.NoError(t, err)
	assert.Equal(t, "data->>'x' IS NOT NULL", sql)
}

func TestMatchesAnyLqueryRejectsEmpty(t *testing.T) {
	g := NewGenerator(nil)
	_, _, err := g.Generate(FieldClause{Path: []string{"path"}, Op: OpLtreeMatchesAnyLquery, Value: []interface{}{}})
	require.Error(t, err)
}

func TestLCARejectsEmpty(t *testing.T) {
	g := NewGenerator(nil)
	_, _, err := g.Generate(FieldClause{Path: []string{"path"}, Op: OpLtreeLCA, Value: []interface{}{}})
	require.Error(t, err)
}

func TestUnknownOperatorParse(t *testing.T) {
	_, ok := ParseOperator("bogus_op")
	assert.False(t, ok)

	op, ok := ParseOperator("EQ")
	assert.True(t, ok)
	assert.Equal(t, OpEq, op)
}
