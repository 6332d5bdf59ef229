package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/parser"
	"github.com/roach88/cypherc/internal/planir"
	"github.com/roach88/cypherc/internal/rewrite"
	"github.com/roach88/cypherc/internal/semantic"
)

// build runs the front half of the pipeline and lowers the result.
func build(t *testing.T, src string) planir.Query {
	t.Helper()
	q, errs := tryBuild(t, src)
	require.Empty(t, errs)
	require.NoError(t, planir.Validate(q))
	return q
}

func tryBuild(t *testing.T, src string) (planir.Query, []semantic.Error) {
	t.Helper()
	stmt, err := parser.Parse(src)
	require.NoError(t, err)
	_, serrs := semantic.Analyze(stmt, nil, nil)
	require.Empty(t, serrs)
	return Build(rewrite.Normalize(stmt))
}

func segment(t *testing.T, q planir.Query) *planir.PlannerQuery {
	t.Helper()
	pq, ok := q.(*planir.PlannerQuery)
	require.True(t, ok)
	return pq
}

func TestBuildSimpleMatch(t *testing.T) {
	q := build(t, "MATCH (a:Person)-[r:KNOWS]->(b) WHERE a.age > 30 RETURN b.name AS name")
	pq := segment(t, q)
	require.Nil(t, pq.Next)

	g := pq.Graph
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "a", g.Nodes[0].Name)
	assert.Equal(t, []string{"Person"}, g.Nodes[0].Labels)
	assert.Equal(t, "b", g.Nodes[1].Name)

	require.Len(t, g.Relationships, 1)
	rel := g.Relationships[0]
	assert.Equal(t, "r", rel.Name)
	assert.Equal(t, "a", rel.Start)
	assert.Equal(t, "b", rel.End)
	assert.Equal(t, ast.DirOutgoing, rel.Direction)
	assert.Equal(t, []string{"KNOWS"}, rel.Types)

	require.Len(t, g.Predicates, 1)
	assert.Equal(t, "(a.age > 30)", ast.ExprString(g.Predicates[0].Expr))
	assert.Equal(t, []string{"a"}, g.Predicates[0].Dependencies)

	proj, ok := pq.Horizon.(*planir.Projection)
	require.True(t, ok)
	assert.True(t, proj.Final)
	assert.Equal(t, []string{"name"}, proj.Columns())
	assert.Equal(t, "b.name", ast.ExprString(proj.Items[0].Expr))
}

func TestHoistedPropertiesBecomePredicates(t *testing.T) {
	q := build(t, "MATCH (a:Person {name: 'Ada'}) RETURN a")
	g := segment(t, q).Graph
	require.Len(t, g.Predicates, 1)
	assert.Equal(t, `(a.name = "Ada")`, ast.ExprString(g.Predicates[0].Expr))
}

func TestOptionalMatchPredicateIsolation(t *testing.T) {
	q := build(t, "MATCH (a:Person) OPTIONAL MATCH (a)-[r:KNOWS]->(b) WHERE b.age > 30 RETURN a, b")
	g := segment(t, q).Graph

	// The required part carries only a; the optional predicate must not
	// leak into it.
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "a", g.Nodes[0].Name)
	assert.Empty(t, g.Predicates)

	require.Len(t, g.Optionals, 1)
	opt := g.Optionals[0]
	assert.Equal(t, []string{"a"}, opt.Arguments)
	require.Len(t, opt.Nodes, 1)
	assert.Equal(t, "b", opt.Nodes[0].Name)
	require.Len(t, opt.Relationships, 1)
	assert.Equal(t, "a", opt.Relationships[0].Start)
	require.Len(t, opt.Predicates, 1)
	assert.Equal(t, "(b.age > 30)", ast.ExprString(opt.Predicates[0].Expr))
	assert.Equal(t, []string{"b"}, opt.Predicates[0].Dependencies)
}

func TestMatchAfterOptionalMatchRejected(t *testing.T) {
	_, errs := tryBuild(t, "MATCH (a) OPTIONAL MATCH (a)-[:KNOWS]->(b) MATCH (b)-[:KNOWS]->(c) RETURN c")
	require.Len(t, errs, 1)
	assert.Equal(t, semantic.CodeInvalidClauseOrder, errs[0].Code)
}

func TestWithCutsSegments(t *testing.T) {
	q := build(t, "MATCH (a:Person) WITH a.age AS age WHERE age > 30 RETURN age")
	first := segment(t, q)

	proj, ok := first.Horizon.(*planir.Projection)
	require.True(t, ok)
	assert.False(t, proj.Final)
	assert.Equal(t, []string{"age"}, proj.Columns())

	second := first.Next
	require.NotNil(t, second)
	assert.Equal(t, []string{"age"}, second.Graph.Arguments)
	require.Len(t, second.Graph.Predicates, 1)
	assert.Equal(t, "(age > 30)", ast.ExprString(second.Graph.Predicates[0].Expr))
	require.NotNil(t, second.Horizon)
	assert.True(t, second.Horizon.(*planir.Projection).Final)
}

func TestAggregatingProjection(t *testing.T) {
	q := build(t, "MATCH (a:Person) RETURN a.city AS city, count(*) AS n")
	proj := segment(t, q).Horizon.(*planir.Projection)
	assert.True(t, proj.Aggregating)
	assert.Equal(t, []string{"city", "n"}, proj.Columns())
}

func TestReturnStarExpandsSorted(t *testing.T) {
	q := build(t, "MATCH (b:Person)-[r:KNOWS]->(a:Person) RETURN *")
	proj := segment(t, q).Horizon.(*planir.Projection)
	assert.Equal(t, []string{"a", "b", "r"}, proj.Columns())
}

func TestUnwindHorizon(t *testing.T) {
	q := build(t, "MATCH (a) UNWIND a.tags AS tag RETURN tag")
	first := segment(t, q)
	uw, ok := first.Horizon.(*planir.Unwind)
	require.True(t, ok)
	assert.Equal(t, "tag", uw.Alias)
	assert.Equal(t, "a.tags", ast.ExprString(uw.Expr))

	second := first.Next
	require.NotNil(t, second)
	assert.Equal(t, []string{"a", "tag"}, second.Graph.Arguments)
}

func TestUnionColumns(t *testing.T) {
	q := build(t, "MATCH (a:Person) RETURN a.name AS name UNION MATCH (c:Company) RETURN c.name AS name")
	uq, ok := q.(*planir.UnionQuery)
	require.True(t, ok)
	assert.False(t, uq.All)
	assert.Equal(t, []string{"name"}, uq.Columns)
	require.Len(t, uq.Branches, 2)
}

func TestUnionAutoNamedLiteralsAlignPositionally(t *testing.T) {
	q := build(t, "RETURN 1 UNION RETURN 'x'")
	uq, ok := q.(*planir.UnionQuery)
	require.True(t, ok)
	require.Len(t, uq.Branches, 2)
	assert.Equal(t, []string{"1"}, uq.Columns)
}

func TestUnionVariableColumnsStillMatchByName(t *testing.T) {
	_, errs := tryBuild(t, "MATCH (a) RETURN a UNION MATCH (b) RETURN b")
	require.Len(t, errs, 1)
	assert.Equal(t, semantic.CodeColumnMismatch, errs[0].Code)
}

func TestUnionAliasOverridesLiteralAlignment(t *testing.T) {
	_, errs := tryBuild(t, "RETURN 1 AS x UNION RETURN 2 AS y")
	require.Len(t, errs, 1)
	assert.Equal(t, semantic.CodeColumnMismatch, errs[0].Code)
	assert.Contains(t, errs[0].Msg, "x")
	assert.Contains(t, errs[0].Msg, "y")
}

func TestUnionColumnMismatch(t *testing.T) {
	_, errs := tryBuild(t, "MATCH (a) RETURN a.name AS name UNION MATCH (c) RETURN c.name AS title")
	require.Len(t, errs, 1)
	assert.Equal(t, semantic.CodeColumnMismatch, errs[0].Code)
	assert.Contains(t, errs[0].Msg, "name")
	assert.Contains(t, errs[0].Msg, "title")
}

func TestMixedUnionRejected(t *testing.T) {
	_, errs := tryBuild(t, "MATCH (a) RETURN a UNION MATCH (a) RETURN a UNION ALL MATCH (a) RETURN a")
	require.NotEmpty(t, errs)
	assert.Equal(t, semantic.CodeInvalidClauseOrder, errs[0].Code)
}

func TestCreateLowering(t *testing.T) {
	q := build(t, "CREATE (a:Person {name: 'Ada'})-[:KNOWS]->(b:Person)")
	pq := segment(t, q)
	require.Len(t, pq.Updates, 1)
	op, ok := pq.Updates[0].(*planir.CreateOp)
	require.True(t, ok)
	require.Len(t, op.Nodes, 2)
	assert.Equal(t, "a", op.Nodes[0].Name)
	require.NotNil(t, op.Nodes[0].Properties)
	require.Len(t, op.Relationships, 1)
	assert.Equal(t, "KNOWS", op.Relationships[0].Type)
	assert.Nil(t, pq.Horizon)
}

func TestCreateBoundNodeNotRedeclared(t *testing.T) {
	q := build(t, "MATCH (a:Person) CREATE (a)-[:KNOWS]->(b:Person) RETURN b")
	pq := segment(t, q)
	op := pq.Updates[0].(*planir.CreateOp)
	require.Len(t, op.Nodes, 1)
	assert.Equal(t, "b", op.Nodes[0].Name)
	assert.Equal(t, "a", op.Relationships[0].Start)
}

func TestMergeLowering(t *testing.T) {
	q := build(t, "MERGE (a:Person {id: 1}) ON CREATE SET a.created = true ON MATCH SET a.seen = true RETURN a")
	pq := segment(t, q)
	op, ok := pq.Updates[0].(*planir.MergeOp)
	require.True(t, ok)
	require.Len(t, op.Nodes, 1)
	require.Len(t, op.OnCreate, 1)
	assert.Equal(t, planir.SetProperty, op.OnCreate[0].Kind)
	assert.Equal(t, "a", op.OnCreate[0].Target)
	assert.Equal(t, "created", op.OnCreate[0].Property)
	require.Len(t, op.OnMatch, 1)
	assert.Equal(t, "seen", op.OnMatch[0].Property)
}

func TestSetRemoveDeleteLowering(t *testing.T) {
	q := build(t, "MATCH (a:Person) SET a.age = 1, a:Admin REMOVE a.old DETACH DELETE a")
	pq := segment(t, q)
	require.Len(t, pq.Updates, 3)

	set := pq.Updates[0].(*planir.SetOp)
	require.Len(t, set.Items, 2)
	assert.Equal(t, planir.SetProperty, set.Items[0].Kind)
	assert.Equal(t, planir.SetLabels, set.Items[1].Kind)
	assert.Equal(t, []string{"Admin"}, set.Items[1].Labels)

	rem := pq.Updates[1].(*planir.RemoveOp)
	assert.Equal(t, "old", rem.Items[0].Property)

	del := pq.Updates[2].(*planir.DeleteOp)
	assert.True(t, del.Detach)
	require.Len(t, del.Exprs, 1)
}

func TestProcedureCallHorizon(t *testing.T) {
	q := build(t, "CALL db.labels() YIELD label AS l RETURN l")
	first := segment(t, q)
	call, ok := first.Horizon.(*planir.ProcedureCall)
	require.True(t, ok)
	assert.Equal(t, []string{"db"}, call.Namespace)
	assert.Equal(t, "labels", call.Name)
	require.Len(t, call.Yield, 1)
	assert.Equal(t, "label", call.Yield[0].Name)
	assert.Equal(t, "l", call.Yield[0].Alias)
	require.NotNil(t, first.Next)
	assert.Equal(t, []string{"l"}, first.Next.Graph.Arguments)
}

func TestSubqueryHorizon(t *testing.T) {
	q := build(t, "MATCH (a) CALL { MATCH (b:Person) RETURN b } RETURN a, b")
	first := segment(t, q)
	sub, ok := first.Horizon.(*planir.Subquery)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, sub.Columns)
	inner := segment(t, sub.Inner)
	assert.Equal(t, []string{"a"}, inner.Graph.Arguments)
	require.NotNil(t, first.Next)
	assert.Equal(t, []string{"a", "b"}, first.Next.Graph.Arguments)
}

func TestAnonymousElementsCarryGeneratedNames(t *testing.T) {
	q := build(t, "MATCH (a)-[:KNOWS]->() RETURN a")
	g := segment(t, q).Graph
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Relationships, 1)
	assert.NotEmpty(t, g.Relationships[0].Name)
	for _, n := range g.Nodes {
		assert.NotEmpty(t, n.Name)
	}
}

func TestVarlengthRelationship(t *testing.T) {
	q := build(t, "MATCH (a)-[r:KNOWS*1..3]->(b) RETURN a")
	rel := segment(t, q).Graph.Relationships[0]
	require.True(t, rel.Varlength())
	require.NotNil(t, rel.MinHops)
	require.NotNil(t, rel.MaxHops)
	assert.EqualValues(t, 1, *rel.MinHops)
	assert.EqualValues(t, 3, *rel.MaxHops)
}

func TestSharedPredicateDeduplicated(t *testing.T) {
	// The same conjunct written twice survives normalization as one
	// predicate and lowers to one entry.
	q := build(t, "MATCH (a) WHERE a.x = 1 AND a.x = 1 RETURN a")
	g := segment(t, q).Graph
	require.Len(t, g.Predicates, 1)
}

func TestBuiltQueriesValidate(t *testing.T) {
	queries := []string{
		"MATCH (a) RETURN a",
		"MATCH (a)-[r]->(b) WHERE a.x = b.y RETURN r",
		"MATCH (a) OPTIONAL MATCH (a)-[:KNOWS]->(b) RETURN a, b",
		"MATCH (a) WITH DISTINCT a.dept AS dept RETURN dept ORDER BY dept SKIP 1 LIMIT 10",
		"UNWIND [1, 2, 3] AS x RETURN x",
		"MATCH (a) WHERE EXISTS { (a)-[:KNOWS]->(:Person) } RETURN a",
		"MERGE (a:Counter {id: 1}) ON MATCH SET a.n = a.n + 1 RETURN a.n AS n",
	}
	for _, src := range queries {
		t.Run(src, func(t *testing.T) {
			build(t, src)
		})
	}
}
