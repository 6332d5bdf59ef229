package plancache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/compiler"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, 42, "MATCH (a) RETURN a", []byte(`{"kind":"segment"}`)))

	e, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), e.Hash)
	assert.Equal(t, "MATCH (a) RETURN a", e.Source)
	assert.JSONEq(t, `{"kind":"segment"}`, string(e.Snapshot))
	assert.Equal(t, c.SessionID(), e.SessionID)
	assert.EqualValues(t, 1, e.HitCount)
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)
	_, err := c.Get(context.Background(), 7)
	require.ErrorIs(t, err, ErrMiss)
}

func TestHitCountAccumulates(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, 1, "RETURN 1 AS x", []byte("{}")))

	for i := 1; i <= 3; i++ {
		e, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.EqualValues(t, i, e.HitCount)
	}
}

func TestRePutKeepsOriginal(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, 9, "first", []byte("{}")))
	require.NoError(t, c.Put(ctx, 9, "second", []byte("{}")))

	e, err := c.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "first", e.Source)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSessionIDIsUUIDv7(t *testing.T) {
	c := openTestCache(t)
	parsed, err := uuid.Parse(c.SessionID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

// Equivalent statements share a hash, so the second compile hits the
// row the first one wrote.
func TestEquivalentStatementsHitOneRow(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	first, err := compiler.Compile("MATCH (a:Person {age: 30}) RETURN a")
	require.NoError(t, err)
	second, err := compiler.Compile("MATCH (a:Person) WHERE a.age = 30 RETURN a")
	require.NoError(t, err)
	require.Equal(t, first.Hash, second.Hash)

	require.NoError(t, c.Put(ctx, first.Hash, "MATCH (a:Person {age: 30}) RETURN a", first.Snapshot))
	e, err := c.Get(ctx, second.Hash)
	require.NoError(t, err)
	assert.Equal(t, string(first.Snapshot), string(e.Snapshot))
}
