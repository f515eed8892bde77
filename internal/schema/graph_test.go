package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objField(name, typeName string) Field {
	return Field{Name: name, Type: FieldType{Kind: KindObject, Name: typeName}}
}

func TestBuildAndQuery(t *testing.T) {
	s := New()
	s.Objects["User"] = &ObjectType{Name: "User", Fields: []Field{
		{Name: "id", Type: FieldType{Kind: KindScalar, Scalar: ScalarID}},
		objField("profile", "Profile"),
	}}
	s.Objects["Profile"] = &ObjectType{Name: "Profile", Fields: []Field{
		{Name: "bio", Type: FieldType{Kind: KindScalar, Scalar: ScalarString}},
	}}
	s.Operations = append(s.Operations, Operation{Kind: OpQuery, Name: "user", ReturnType: "User"})

	g, err := Build(s)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Profile"}, g.DependenciesOf("User"))
	assert.ElementsMatch(t, []string{"User"}, g.DependentsOf("Profile"))
	assert.True(t, g.HasType("Query"))
	assert.False(t, g.HasType("Mutation"))
}

// E4 (Cycle detection). Schema with A.b: B, B.a: A → cycles = [{nodes:["A","B"], path:"A → B → A"}].
func TestFindCyclesE4(t *testing.T) {
	s := New()
	s.Objects["A"] = &ObjectType{Name: "A", Fields: []Field{objField("b", "B")}}
	s.Objects["B"] = &ObjectType{Name: "B", Fields: []Field{objField("a", "A")}}

	g, err := Build(s)
	require.NoError(t, err)

	cycles := g.FindCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B"}, cycles[0].Nodes)
	assert.Equal(t, "A → B → A", cycles[0].Path)
	assert.False(t, cycles[0].IsSelfRef)
}

func TestSelfCycle(t *testing.T) {
	s := New()
	s.Objects["Node"] = &ObjectType{Name: "Node", Fields: []Field{objField("parent", "Node")}}

	g, err := Build(s)
	require.NoError(t, err)

	cycles := g.FindCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"Node"}, cycles[0].Nodes)
	assert.Equal(t, "Node → Node", cycles[0].Path)
	assert.True(t, cycles[0].IsSelfRef)
}

func TestFindUnused(t *testing.T) {
	s := New()
	s.Objects["User"] = &ObjectType{Name: "User"}
	s.Objects["Orphan"] = &ObjectType{Name: "Orphan"}
	s.Operations = append(s.Operations, Operation{Kind: OpQuery, Name: "user", ReturnType: "User"})

	g, err := Build(s)
	require.NoError(t, err)

	unused := g.FindUnused()
	assert.Equal(t, []string{"Orphan"}, unused)
	assert.NotContains(t, unused, "Query")
}

func TestImpactOfDeletion(t *testing.T) {
	s := New()
	s.Objects["User"] = &ObjectType{Name: "User", Fields: []Field{objField("profile", "Profile")}}
	s.Objects["Profile"] = &ObjectType{Name: "Profile"}
	s.Objects["Settings"] = &ObjectType{Name: "Settings", Fields: []Field{objField("profile", "Profile")}}

	g, err := Build(s)
	require.NoError(t, err)

	impact, err := g.ImpactOfDeletion("Profile")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"User", "Settings"}, impact.AffectedTypes)
	assert.NotContains(t, impact.AffectedTypes, "Profile")
	assert.Len(t, impact.BreakingChanges, 2)
}

func TestSkipsUnresolvedEdge(t *testing.T) {
	s := New()
	s.Objects["User"] = &ObjectType{Name: "User", Fields: []Field{objField("ghost", "DoesNotExist")}}

	g, err := Build(s)
	require.NoError(t, err)
	assert.Empty(t, g.DependenciesOf("User"))
}
