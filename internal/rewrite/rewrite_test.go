package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Statement {
	t.Helper()
	stmt, err := parser.Parse(src)
	require.NoError(t, err)
	return stmt
}

func firstMatch(t *testing.T, stmt *ast.Statement) *ast.Match {
	t.Helper()
	sq, ok := stmt.Query.(*ast.SingleQuery)
	require.True(t, ok)
	for _, c := range sq.Clauses {
		if m, ok := c.(*ast.Match); ok {
			return m
		}
	}
	t.Fatal("no MATCH clause")
	return nil
}

func TestNormalizeIdempotent(t *testing.T) {
	queries := []string{
		"MATCH (a)-[:KNOWS]->(b) WHERE a.age > 30 RETURN b.name AS name",
		"MATCH (a {name: 'Ada'}) RETURN a",
		"MATCH (a WHERE a.ok) RETURN a",
		"MATCH (a) WHERE NOT (a.x = 1 AND a.y = 2) RETURN a",
		"MATCH (a) WITH a RETURN a.name AS n",
		"CREATE (a:Person {name: 'Ada'}), (b:Person)",
		"MATCH (a) RETURN a UNION MATCH (b) RETURN b AS a",
		"MATCH (a) CALL { MATCH (b) RETURN b } RETURN a, b",
		"OPTIONAL MATCH (a)-->(b) WHERE b.ok OR (a.ok AND b.seen) RETURN a",
		"MERGE (a:Person {id: 1}) ON CREATE SET a.created = true RETURN a",
	}
	for _, src := range queries {
		t.Run(src, func(t *testing.T) {
			once := Normalize(mustParse(t, src))
			twice := Normalize(once)
			require.Equal(t, once.Query, twice.Query)
		})
	}
}

func TestAnonymousElementsNamed(t *testing.T) {
	stmt := Normalize(mustParse(t, "MATCH (a)-[]->() RETURN a"))
	part := firstMatch(t, stmt).Pattern.Parts[0]

	rel := part.Elements[1].(*ast.RelationshipPattern)
	end := part.Elements[2].(*ast.NodePattern)
	require.True(t, strings.HasPrefix(rel.Variable, " anon"))
	require.True(t, strings.HasPrefix(end.Variable, " anon"))
	require.NotEqual(t, rel.Variable, end.Variable)

	// User-written names stay untouched.
	require.Equal(t, "a", part.Elements[0].(*ast.NodePattern).Variable)
}

func TestGeneratedNamesAreStable(t *testing.T) {
	src := "MATCH (a)-[]->() RETURN a"
	first := Normalize(mustParse(t, src))
	second := Normalize(mustParse(t, src))
	a := firstMatch(t, first).Pattern.Parts[0].Elements[1].(*ast.RelationshipPattern)
	b := firstMatch(t, second).Pattern.Parts[0].Elements[1].(*ast.RelationshipPattern)
	require.Equal(t, a.Variable, b.Variable)
}

func TestHoistPatternPredicate(t *testing.T) {
	stmt := Normalize(mustParse(t, "MATCH (a WHERE a.age > 30) RETURN a"))
	m := firstMatch(t, stmt)

	node := m.Pattern.Parts[0].Elements[0].(*ast.NodePattern)
	require.Nil(t, node.Predicate)
	require.NotNil(t, m.Where)
	require.Equal(t, "(a.age > 30)", ast.ExprString(m.Where))
}

func TestHoistMatchProperties(t *testing.T) {
	stmt := Normalize(mustParse(t, "MATCH (a {name: 'Ada', age: 36}) RETURN a"))
	m := firstMatch(t, stmt)

	node := m.Pattern.Parts[0].Elements[0].(*ast.NodePattern)
	require.Nil(t, node.Properties)
	require.NotNil(t, m.Where)
	require.Equal(t, `((a.age = 36) AND (a.name = "Ada"))`, ast.ExprString(m.Where))
}

func TestCreateKeepsPropertyMaps(t *testing.T) {
	stmt := Normalize(mustParse(t, "CREATE (a:Person {name: 'Ada'})"))
	sq := stmt.Query.(*ast.SingleQuery)
	create := sq.Clauses[0].(*ast.Create)
	node := create.Pattern.Parts[0].Elements[0].(*ast.NodePattern)
	require.NotNil(t, node.Properties)
}

func TestSplitCreate(t *testing.T) {
	stmt := Normalize(mustParse(t, "CREATE (a:Person), (b:Person)"))
	sq := stmt.Query.(*ast.SingleQuery)
	require.Len(t, sq.Clauses, 2)
	for _, c := range sq.Clauses {
		create, ok := c.(*ast.Create)
		require.True(t, ok)
		require.Len(t, create.Pattern.Parts, 1)
	}
}

func TestPredicateCNF(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{
			// De Morgan pushes the negation onto the leaves.
			"MATCH (a) WHERE NOT (a.x = 1 AND a.y = 2) RETURN a",
			"((NOT (a.x = 1)) OR (NOT (a.y = 2)))",
		},
		{
			// Double negation cancels.
			"MATCH (a) WHERE NOT NOT a.ok RETURN a",
			"a.ok",
		},
		{
			// OR distributes over AND.
			"MATCH (a) WHERE a.x OR (a.y AND a.z) RETURN a",
			"((a.x OR a.y) AND (a.x OR a.z))",
		},
		{
			// Duplicate conjuncts collapse.
			"MATCH (a) WHERE a.x AND a.x AND a.y RETURN a",
			"(a.x AND a.y)",
		},
		{
			// Conjuncts are sorted canonically.
			"MATCH (a) WHERE a.y AND a.x RETURN a",
			"(a.x AND a.y)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			stmt := Normalize(mustParse(t, tc.src))
			m := firstMatch(t, stmt)
			require.Equal(t, tc.want, ast.ExprString(m.Where))
		})
	}
}

func TestHoistedAndExplicitPredicatesMerge(t *testing.T) {
	stmt := Normalize(mustParse(t, "MATCH (a {name: 'Ada'} WHERE a.age > 30) WHERE a.ok RETURN a"))
	m := firstMatch(t, stmt)

	conjuncts := Conjuncts(m.Where)
	require.Len(t, conjuncts, 3)
	texts := make([]string, len(conjuncts))
	for i, c := range conjuncts {
		texts[i] = ast.ExprString(c)
	}
	require.Equal(t, []string{"(a.age > 30)", `(a.name = "Ada")`, "a.ok"}, texts)
}

func TestFlattenPassthroughWith(t *testing.T) {
	stmt := Normalize(mustParse(t, "MATCH (a) WITH a RETURN a.name AS n"))
	sq := stmt.Query.(*ast.SingleQuery)
	require.Len(t, sq.Clauses, 2)
	_, ok := sq.Clauses[0].(*ast.Match)
	require.True(t, ok)
	_, ok = sq.Clauses[1].(*ast.Return)
	require.True(t, ok)
}

func TestWithSurvives(t *testing.T) {
	keep := []string{
		// DISTINCT changes cardinality.
		"MATCH (a) WITH DISTINCT a RETURN a",
		// A modifier makes the horizon observable.
		"MATCH (a) WITH a ORDER BY a.name RETURN a",
		"MATCH (a) WITH a LIMIT 10 RETURN a",
		// Renaming is a projection, not a passthrough.
		"MATCH (a) WITH a AS b RETURN b",
		// Dropping a binding is observable downstream.
		"MATCH (a), (b) WITH a RETURN a",
		// A filter must keep its horizon.
		"MATCH (a) WITH a WHERE a.ok RETURN a",
	}
	for _, src := range keep {
		t.Run(src, func(t *testing.T) {
			stmt := Normalize(mustParse(t, src))
			sq := stmt.Query.(*ast.SingleQuery)
			var withs int
			for _, c := range sq.Clauses {
				if _, ok := c.(*ast.With); ok {
					withs++
				}
			}
			require.Equal(t, 1, withs)
		})
	}
}

func TestNormalizeAppliesInsideSubqueriesAndUnions(t *testing.T) {
	stmt := Normalize(mustParse(t, "MATCH (a) CALL { MATCH (b {ok: true}) RETURN b } RETURN a, b"))
	sq := stmt.Query.(*ast.SingleQuery)
	sub := sq.Clauses[1].(*ast.SubqueryCall)
	inner := sub.Query.(*ast.SingleQuery)
	m := inner.Clauses[0].(*ast.Match)
	require.NotNil(t, m.Where)
	require.Equal(t, "(b.ok = true)", ast.ExprString(m.Where))

	stmt = Normalize(mustParse(t, "MATCH (a {x: 1}) RETURN a UNION MATCH (a {x: 2}) RETURN a"))
	uq := stmt.Query.(*ast.UnionQuery)
	lhs := uq.LHS.(*ast.SingleQuery)
	require.NotNil(t, lhs.Clauses[0].(*ast.Match).Where)
	require.NotNil(t, uq.RHS.Clauses[0].(*ast.Match).Where)
}

func TestBoundNames(t *testing.T) {
	stmt := mustParse(t, "MATCH (a)-[r:KNOWS]->(b) UNWIND a.tags AS tag RETURN a, tag")
	sq := stmt.Query.(*ast.SingleQuery)
	require.Equal(t, []string{"a", "tag"}, BoundNames(sq))
}
