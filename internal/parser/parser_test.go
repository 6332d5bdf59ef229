package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/ast"
)

func parse(t *testing.T, src string) *ast.Statement {
	t.Helper()
	stmt, err := Parse(src)
	require.NoError(t, err)
	return stmt
}

func single(t *testing.T, src string) *ast.SingleQuery {
	t.Helper()
	q, ok := parse(t, src).Query.(*ast.SingleQuery)
	require.True(t, ok, "expected a single query")
	return q
}

// whereString parses a query with a WHERE and renders the predicate
// canonically, the concise way to pin operator precedence.
func whereString(t *testing.T, predicate string) string {
	t.Helper()
	q := single(t, "MATCH (a), (b), (c) WHERE "+predicate+" RETURN a")
	m := q.Clauses[0].(*ast.Match)
	require.NotNil(t, m.Where)
	return ast.ExprString(m.Where)
}

func TestParseMatchReturn(t *testing.T) {
	q := single(t, "MATCH (n:Person) RETURN n")
	require.Len(t, q.Clauses, 2)

	m, ok := q.Clauses[0].(*ast.Match)
	require.True(t, ok)
	assert.False(t, m.Optional)
	assert.Nil(t, m.Where)
	require.Len(t, m.Pattern.Parts, 1)

	node, ok := m.Pattern.Parts[0].Elements[0].(*ast.NodePattern)
	require.True(t, ok)
	assert.Equal(t, "n", node.Variable)
	assert.Equal(t, []string{"Person"}, node.Labels)

	r, ok := q.Clauses[1].(*ast.Return)
	require.True(t, ok)
	require.Len(t, r.Projection.Items, 1)
	assert.Equal(t, "n", ast.ExprString(r.Projection.Items[0].Expr))
}

func TestParseOptionalMatch(t *testing.T) {
	q := single(t, "MATCH (a) OPTIONAL MATCH (a)-[:KNOWS]->(b) WHERE b.age > 30 RETURN a, b")
	require.Len(t, q.Clauses, 3)

	opt, ok := q.Clauses[1].(*ast.Match)
	require.True(t, ok)
	assert.True(t, opt.Optional)
	assert.Equal(t, "(b.age > 30)", ast.ExprString(opt.Where))
}

func TestParseRelationshipForms(t *testing.T) {
	cases := []struct {
		src       string
		direction ast.Direction
		types     []string
	}{
		{"MATCH (a)-[:KNOWS]->(b) RETURN a", ast.DirOutgoing, []string{"KNOWS"}},
		{"MATCH (a)<-[:KNOWS]-(b) RETURN a", ast.DirIncoming, []string{"KNOWS"}},
		{"MATCH (a)-[:KNOWS|LIKES]-(b) RETURN a", ast.DirBoth, []string{"KNOWS", "LIKES"}},
		{"MATCH (a)-->(b) RETURN a", ast.DirOutgoing, nil},
		{"MATCH (a)<--(b) RETURN a", ast.DirIncoming, nil},
		{"MATCH (a)--(b) RETURN a", ast.DirBoth, nil},
	}
	for _, tc := range cases {
		q := single(t, tc.src)
		m := q.Clauses[0].(*ast.Match)
		rel, ok := m.Pattern.Parts[0].Elements[1].(*ast.RelationshipPattern)
		require.True(t, ok, tc.src)
		assert.Equal(t, tc.direction, rel.Direction, tc.src)
		assert.Equal(t, tc.types, rel.Types, tc.src)
	}
}

func TestParseVarlengthRelationship(t *testing.T) {
	q := single(t, "MATCH (a)-[r:KNOWS*1..3]->(b) RETURN r")
	rel := q.Clauses[0].(*ast.Match).Pattern.Parts[0].Elements[1].(*ast.RelationshipPattern)
	require.NotNil(t, rel.VarLength)
	assert.EqualValues(t, 1, *rel.VarLength.Min)
	assert.EqualValues(t, 3, *rel.VarLength.Max)

	q = single(t, "MATCH (a)-[*]->(b) RETURN a")
	rel = q.Clauses[0].(*ast.Match).Pattern.Parts[0].Elements[1].(*ast.RelationshipPattern)
	require.NotNil(t, rel.VarLength)
	assert.Nil(t, rel.VarLength.Min)
	assert.Nil(t, rel.VarLength.Max)
}

func TestParseInlinePatternPredicate(t *testing.T) {
	q := single(t, "MATCH (a:Person WHERE a.age > 18) RETURN a")
	node := q.Clauses[0].(*ast.Match).Pattern.Parts[0].Elements[0].(*ast.NodePattern)
	assert.Equal(t, "(a.age > 18)", ast.ExprString(node.Predicate))
}

func TestOperatorPrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3 = 7", "((1 + (2 * 3)) = 7)"},
		{"a.x OR b.x AND c.x", "(a.x OR (b.x AND c.x))"},
		{"a.x XOR b.x OR c.x", "((a.x XOR b.x) OR c.x)"},
		{"NOT a.x = b.x", "(NOT (a.x = b.x))"},
		{"a.x IS NULL AND b.x IS NOT NULL", "((a.x IS NULL) AND (b.x IS NOT NULL))"},
		{"1 - 2 - 3 > -10", "(((1 - 2) - 3) > (- 10))"},
		{"2 ^ 3 ^ 2 = 512", "((2 ^ (3 ^ 2)) = 512)"},
		{"a.name STARTS WITH 'A' AND a.name CONTAINS 'd'", `((a.name STARTS WITH "A") AND (a.name CONTAINS "d"))`},
		{"a.x IN [1, 2] OR b.x =~ 'A.*'", `((a.x IN [1, 2]) OR (b.x =~ "A.*"))`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, whereString(t, tc.src), tc.src)
	}
}

func TestParseProjectionModifiers(t *testing.T) {
	q := single(t, "MATCH (n) RETURN DISTINCT n.name AS name ORDER BY name DESC SKIP 5 LIMIT 10")
	r := q.Clauses[1].(*ast.Return)

	assert.True(t, r.Projection.Distinct)
	require.Len(t, r.Projection.Items, 1)
	assert.Equal(t, "name", r.Projection.Items[0].Alias)
	require.Len(t, r.Projection.OrderBy, 1)
	assert.True(t, r.Projection.OrderBy[0].Descending)
	assert.Equal(t, "5", ast.ExprString(r.Projection.Skip))
	assert.Equal(t, "10", ast.ExprString(r.Projection.Limit))
}

func TestParseWithWhere(t *testing.T) {
	q := single(t, "MATCH (n) WITH n.age AS age WHERE age > 21 RETURN age")
	w := q.Clauses[1].(*ast.With)
	assert.Equal(t, "age", w.Projection.Items[0].Alias)
	assert.Equal(t, "(age > 21)", ast.ExprString(w.Where))
}

func TestParseReturnStar(t *testing.T) {
	q := single(t, "MATCH (n) RETURN *")
	r := q.Clauses[1].(*ast.Return)
	assert.True(t, r.Projection.Star)
	assert.Empty(t, r.Projection.Items)
}

func TestParseUnwind(t *testing.T) {
	q := single(t, "UNWIND [1, 2, 3] AS x RETURN x")
	u := q.Clauses[0].(*ast.Unwind)
	assert.Equal(t, "x", u.Alias)
	assert.Equal(t, "[1, 2, 3]", ast.ExprString(u.Expr))
}

func TestParseWriteClauses(t *testing.T) {
	q := single(t, `CREATE (a:Person {name: 'Ada'})
MERGE (b:City {name: 'London'})
ON CREATE SET b.founded = 43
ON MATCH SET b.visits = b.visits + 1
SET a.city = b, a:Resident
REMOVE a.temp
DETACH DELETE a`)
	require.Len(t, q.Clauses, 5)

	_, ok := q.Clauses[0].(*ast.Create)
	require.True(t, ok)

	merge := q.Clauses[1].(*ast.Merge)
	require.Len(t, merge.OnCreate, 1)
	require.Len(t, merge.OnMatch, 1)
	assert.Equal(t, ast.SetProperty, merge.OnCreate[0].Op)

	set := q.Clauses[2].(*ast.Set)
	require.Len(t, set.Items, 2)
	assert.Equal(t, ast.SetProperty, set.Items[0].Op)
	assert.Equal(t, ast.SetLabels, set.Items[1].Op)
	assert.Equal(t, []string{"Resident"}, set.Items[1].Labels)

	remove := q.Clauses[3].(*ast.Remove)
	require.Len(t, remove.Items, 1)

	del := q.Clauses[4].(*ast.Delete)
	assert.True(t, del.Detach)
}

func TestParseProcedureCall(t *testing.T) {
	q := single(t, "CALL db.labels() YIELD label RETURN label")
	call := q.Clauses[0].(*ast.Call)
	assert.Equal(t, []string{"db"}, call.Namespace)
	assert.Equal(t, "labels", call.Name)
	require.Len(t, call.Yield, 1)
	assert.Equal(t, "label", call.Yield[0].Name)
}

func TestParseSubqueryCall(t *testing.T) {
	q := single(t, "MATCH (a) CALL { MATCH (a)-[:KNOWS]->(b) RETURN b } RETURN a, b")
	sub, ok := q.Clauses[1].(*ast.SubqueryCall)
	require.True(t, ok)
	inner, ok := sub.Query.(*ast.SingleQuery)
	require.True(t, ok)
	assert.Len(t, inner.Clauses, 2)
}

func TestParseUnion(t *testing.T) {
	stmt := parse(t, "MATCH (a:Person) RETURN a.name AS name UNION MATCH (b:Company) RETURN b.name AS name")
	u, ok := stmt.Query.(*ast.UnionQuery)
	require.True(t, ok)
	assert.False(t, u.All)

	_, ok = u.LHS.(*ast.SingleQuery)
	assert.True(t, ok)
	assert.Len(t, u.RHS.Clauses, 2)
}

func TestParseCaseAndComprehensions(t *testing.T) {
	q := single(t, "MATCH (n) RETURN CASE WHEN n.age > 17 THEN 'adult' ELSE 'minor' END AS bucket")
	r := q.Clauses[1].(*ast.Return)
	c, ok := r.Projection.Items[0].Expr.(*ast.Case)
	require.True(t, ok)
	assert.Nil(t, c.Test)
	require.Len(t, c.Alternatives, 1)
	require.NotNil(t, c.Else)

	q = single(t, "MATCH (n) RETURN [x IN n.scores WHERE x > 3 | x * 2] AS doubled")
	lc, ok := q.Clauses[1].(*ast.Return).Projection.Items[0].Expr.(*ast.ListComprehension)
	require.True(t, ok)
	assert.Equal(t, "x", lc.Variable)

	q = single(t, "MATCH (a) RETURN [(a)-[:KNOWS]->(b) | b.name] AS names")
	pc, ok := q.Clauses[1].(*ast.Return).Projection.Items[0].Expr.(*ast.PatternComprehension)
	require.True(t, ok)
	assert.Len(t, pc.Part.Elements, 3)
}

func TestParseExistsPredicate(t *testing.T) {
	s := whereString(t, "EXISTS { (a)-[:KNOWS]->(b) WHERE b.age > 30 }")
	assert.Equal(t, "EXISTS { (a)-[:KNOWS]->(b) WHERE (b.age > 30) }", s)
}

func TestSyntaxErrors(t *testing.T) {
	cases := []struct {
		src  string
		line int
		col  int
	}{
		{"MATCH (n RETURN n", 1, 10},
		{"MATCH (n)\nRETRUN n", 2, 1},
		{"RETURN", 1, 7},
	}
	for _, tc := range cases {
		_, err := Parse(tc.src)
		require.Error(t, err, tc.src)
		var serr *SyntaxError
		require.ErrorAs(t, err, &serr, tc.src)
		assert.Equal(t, tc.line, serr.Span.Line, tc.src)
		assert.Equal(t, tc.col, serr.Span.Column, tc.src)
	}
}

func TestStatementRejectsTrailingInput(t *testing.T) {
	_, err := Parse("MATCH (n) RETURN n MATCH")
	assert.Error(t, err)
}
