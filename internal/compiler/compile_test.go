package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/planir"
	"github.com/roach88/cypherc/internal/semantic"
)

func TestCompileSimple(t *testing.T) {
	res, err := Compile("MATCH (a:Person) RETURN a.name AS name")
	require.NoError(t, err)
	require.NotNil(t, res.IR)
	assert.NotEmpty(t, res.Snapshot)
	assert.NotZero(t, res.Hash)
	require.NoError(t, planir.Validate(res.IR))
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("MATCH (a RETURN a")
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, PhaseSyntax, ce.Phase)
	require.NotNil(t, ce.Syntax)
	// Syntax errors stop at the first problem.
	assert.Nil(t, ce.Semantic)
}

func TestCompileSemanticErrorsAccumulate(t *testing.T) {
	_, err := Compile("MATCH (a) RETURN missing1.x AS x, missing2.y AS y")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, PhaseSemantic, ce.Phase)
	require.Len(t, ce.Semantic, 2)
	for _, se := range ce.Semantic {
		assert.Equal(t, semantic.CodeUnboundVariable, se.Code)
	}
}

func TestCompileUnionMismatchIsSemantic(t *testing.T) {
	_, err := Compile("MATCH (a) RETURN a.x AS x UNION MATCH (b) RETURN b.y AS y")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, PhaseSemantic, ce.Phase)
	require.Len(t, ce.Semantic, 1)
	assert.Equal(t, semantic.CodeColumnMismatch, ce.Semantic[0].Code)
}

// Unaliased literal columns carry no author-chosen name, so differing
// value types union by position.
func TestCompileUnionOfUnaliasedLiterals(t *testing.T) {
	res, err := Compile("RETURN 1 UNION RETURN 'x'")
	require.NoError(t, err)
	uq, ok := res.IR.(*planir.UnionQuery)
	require.True(t, ok)
	require.Len(t, uq.Branches, 2)
	require.NoError(t, planir.Validate(res.IR))
}

// Two formulations of the same filter normalize to identical IR and
// therefore identical hashes.
func TestEquivalentStatementsShareHash(t *testing.T) {
	a, err := Compile("MATCH (a:Person {age: 30}) RETURN a")
	require.NoError(t, err)
	b, err := Compile("MATCH (a:Person) WHERE a.age = 30 RETURN a")
	require.NoError(t, err)
	assert.Equal(t, string(a.Snapshot), string(b.Snapshot))
	assert.Equal(t, a.Hash, b.Hash)
}

func TestConjunctOrderDoesNotAffectHash(t *testing.T) {
	a, err := Compile("MATCH (n) WHERE n.x = 1 AND n.y = 2 RETURN n")
	require.NoError(t, err)
	b, err := Compile("MATCH (n) WHERE n.y = 2 AND n.x = 1 RETURN n")
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

type fakeCatalog struct {
	labels map[string]bool
}

func (c fakeCatalog) LabelExists(name string) bool  { return c.labels[name] }
func (c fakeCatalog) RelTypeExists(string) bool     { return true }
func (c fakeCatalog) PropertyKeyExists(string) bool { return true }

func TestCompileWithCatalogNotifications(t *testing.T) {
	cat := fakeCatalog{labels: map[string]bool{"Person": true}}
	res, err := Compile("MATCH (a:Person), (b:Ghost) RETURN a, b", WithCatalog(cat))
	require.NoError(t, err)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, semantic.NoteUnknownLabel, res.Notifications[0].Code)
	assert.Contains(t, res.Notifications[0].Msg, "Ghost")
}

func TestCompileWithParameters(t *testing.T) {
	res, err := Compile("MATCH (a) WHERE a.age > $min RETURN a",
		WithParameters(map[string]semantic.TypeCategory{"min": semantic.TypeScalar}))
	require.NoError(t, err)
	require.NotNil(t, res.IR)
}

func TestCompileDeterministic(t *testing.T) {
	const src = "MATCH (a:Person)-[r:KNOWS]->(b) WHERE a.age > 30 RETURN b.name AS name ORDER BY name LIMIT 5"
	first, err := Compile(src)
	require.NoError(t, err)
	second, err := Compile(src)
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.Equal(t, first.Hash, second.Hash)
}
