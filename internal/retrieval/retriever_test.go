package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/embedding"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/vector"
)

func newTestIndex(t *testing.T) (*KBIndex, *embedding.StaticEmbedder) {
	t.Helper()
	emb := embedding.NewStaticEmbedder(3)
	return NewKBIndex(emb, vector.NewInMemStore(), "kb"), emb
}

func TestRetrieveRanksBysimilarity(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	emb.Register("redis persistence options", []float64{1, 0, 0})
	emb.Register("kubernetes networking", []float64{0, 1, 0})
	emb.Register("how is redis persisted", []float64{0.95, 0.3122, 0})

	require.NoError(t, idx.Add(ctx, "Redis persistence options", "doc-redis", 0))
	require.NoError(t, idx.Add(ctx, "Kubernetes networking", "doc-k8s", 0))

	chunks, err := idx.Retrieve(ctx, "How is Redis persisted", 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc-redis", chunks[0].SourceDocID)
	assert.Greater(t, chunks[0].Score, chunks[1].Score)
}

func TestRetrieveKeepsBestChunkPerDocument(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	emb.Register("chunk close", []float64{1, 0, 0})
	emb.Register("chunk closer", []float64{0.99, 0.141, 0})
	emb.Register("other doc", []float64{0, 1, 0})
	emb.Register("query", []float64{1, 0, 0})

	require.NoError(t, idx.Add(ctx, "chunk close", "doc-a", 0))
	require.NoError(t, idx.Add(ctx, "chunk closer", "doc-a", 1))
	require.NoError(t, idx.Add(ctx, "other doc", "doc-b", 0))

	chunks, err := idx.Retrieve(ctx, "query", 3)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "one document contributes at most one chunk")
	assert.Equal(t, "doc-a", chunks[0].SourceDocID)
	assert.Equal(t, "chunk close", chunks[0].Text, "the highest-scoring chunk of the document wins")
	assert.Equal(t, "doc-b", chunks[1].SourceDocID)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx, _ := newTestIndex(t)

	chunks, err := idx.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveCapsAtK(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	emb.Register("q", []float64{1, 0, 0})
	docs := []struct {
		text string
		vec  []float64
	}{
		{"a", []float64{1, 0, 0}},
		{"b", []float64{0.9, 0.4359, 0}},
		{"c", []float64{0.8, 0.6, 0}},
		{"d", []float64{0.7, 0.7141, 0}},
	}
	for i, d := range docs {
		emb.Register(d.text, d.vec)
		require.NoError(t, idx.Add(ctx, d.text, "doc-"+d.text, i))
	}

	chunks, err := idx.Retrieve(ctx, "q", 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
