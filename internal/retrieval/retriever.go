// Package retrieval exposes the knowledge-base retrieval contract consumed
// by the answer pipeline. Chunking and ingestion mechanics live outside the
// core; this package only indexes already-chunked text and returns top-k
// relevant chunks for a query.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/embedding"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/vector"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

// Retriever returns the top-k knowledge-base chunks relevant to a query.
// An empty result is valid and not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]types.RetrievedChunk, error)
}

// KBIndex is a Retriever over the vector store. Lookups overfetch and keep
// only the best chunk per source document so one document cannot crowd out
// the whole context window.
type KBIndex struct {
	embedder  embedding.Embedder
	store     vector.Store
	namespace string
}

// NewKBIndex creates a knowledge-base index.
func NewKBIndex(embedder embedding.Embedder, store vector.Store, namespace string) *KBIndex {
	if namespace == "" {
		namespace = "kb"
	}
	return &KBIndex{embedder: embedder, store: store, namespace: namespace}
}

type chunkPayload struct {
	Text        string `json:"text"`
	SourceDocID string `json:"source_doc_id"`
	ChunkIndex  int    `json:"chunk_index"`
}

// Add indexes one chunk of a source document.
func (i *KBIndex) Add(ctx context.Context, text, sourceDocID string, chunkIndex int) error {
	vec, err := i.embedder.Embed(ctx, embedding.Normalize(text))
	if err != nil {
		return err
	}
	payload, err := json.Marshal(chunkPayload{
		Text:        text,
		SourceDocID: sourceDocID,
		ChunkIndex:  chunkIndex,
	})
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}
	return i.store.Insert(ctx, vector.Entry{
		ID:        uuid.New().String(),
		Namespace: i.namespace,
		Vector:    vec,
		Payload:   payload,
	})
}

// Retrieve returns up to k chunks, closest first, at most one per source
// document.
func (i *KBIndex) Retrieve(ctx context.Context, query string, k int) ([]types.RetrievedChunk, error) {
	if k <= 0 {
		k = 3
	}
	vec, err := i.embedder.Embed(ctx, embedding.Normalize(query))
	if err != nil {
		return nil, err
	}

	// Overfetch, then dedupe by document.
	results, err := i.store.Search(ctx, i.namespace, vec, k*3)
	if err != nil {
		return nil, err
	}

	bestByDoc := make(map[string]types.RetrievedChunk)
	for _, res := range results {
		var p chunkPayload
		if err := json.Unmarshal(res.Payload, &p); err != nil {
			continue
		}
		chunk := types.RetrievedChunk{
			Text:        p.Text,
			SourceDocID: p.SourceDocID,
			ChunkIndex:  p.ChunkIndex,
			Score:       res.Score,
		}
		if prev, ok := bestByDoc[p.SourceDocID]; !ok || chunk.Score > prev.Score {
			bestByDoc[p.SourceDocID] = chunk
		}
	}

	out := make([]types.RetrievedChunk, 0, len(bestByDoc))
	for _, c := range bestByDoc {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].SourceDocID < out[b].SourceDocID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
