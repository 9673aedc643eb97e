package vector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 0}), "zero vector has no direction")
	assert.Zero(t, Cosine([]float64{1, 0}, []float64{1, 0, 0}), "dimension mismatch scores zero")
}

func TestInMemInsertSearchDelete(t *testing.T) {
	s := NewInMemStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, entryWith("a", "ns", []float64{1, 0})))
	require.NoError(t, s.Insert(ctx, entryWith("b", "ns", []float64{0, 1})))
	assert.Equal(t, 2, s.Len("ns"))

	results, err := s.Search(ctx, "ns", []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	require.NoError(t, s.Delete(ctx, "ns", "a"))
	assert.Equal(t, 1, s.Len("ns"))
}

func TestInMemTTLSweepOnRead(t *testing.T) {
	s := NewInMemStore()
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	e := entryWith("a", "ns", []float64{1, 0})
	e.TTLSeconds = 60
	require.NoError(t, s.Insert(ctx, e))

	s.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	results, err := s.Search(ctx, "ns", []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, s.Len("ns"), "expired entries are removed on read")
}

func TestInMemUpdatePayloadMissingEntry(t *testing.T) {
	s := NewInMemStore()

	err := s.UpdatePayload(context.Background(), "ns", "ghost", []byte(`{}`))
	assert.Error(t, err)
}
