package vector

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, "vec")
}

func entryWith(id, ns string, vec []float64) Entry {
	payload, _ := json.Marshal(map[string]string{"id": id})
	return Entry{ID: id, Namespace: ns, Vector: vec, Payload: payload}
}

func TestInsertAndSearch(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, entryWith("a", "ns", []float64{1, 0, 0})))
	require.NoError(t, store.Insert(ctx, entryWith("b", "ns", []float64{0, 1, 0})))

	results, err := store.Search(ctx, "ns", []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "b", results[1].ID)
}

func TestSearchEmptyNamespace(t *testing.T) {
	_, store := newTestStore(t)

	results, err := store.Search(context.Background(), "missing", []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNamespacesAreIsolated(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, entryWith("a", "ns1", []float64{1, 0})))

	results, err := store.Search(ctx, "ns2", []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEntryTTLExpiresAndIndexIsSwept(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	e := entryWith("a", "ns", []float64{1, 0})
	e.TTLSeconds = 60
	require.NoError(t, store.Insert(ctx, e))

	mr.FastForward(2 * time.Minute)

	results, err := store.Search(ctx, "ns", []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	// The stale index member was removed during the read.
	assert.False(t, mr.Exists("vec:ns:a"))
}

func TestUpdatePayloadKeepsVector(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, entryWith("a", "ns", []float64{1, 0})))

	updated, _ := json.Marshal(map[string]string{"id": "a", "rev": "2"})
	require.NoError(t, store.UpdatePayload(ctx, "ns", "a", updated))

	results, err := store.Search(ctx, "ns", []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.JSONEq(t, string(updated), string(results[0].Payload))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestDeleteRemovesEntry(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, entryWith("a", "ns", []float64{1, 0})))
	require.NoError(t, store.Delete(ctx, "ns", "a"))

	results, err := store.Search(ctx, "ns", []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTieBreaksByCreatedAt(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	older := entryWith("older", "ns", []float64{1, 0})
	older.CreatedAt = 100
	newer := entryWith("newer", "ns", []float64{1, 0})
	newer.CreatedAt = 200
	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	results, err := store.Search(ctx, "ns", []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].ID)
}
