package embedding

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
)

// StaticEmbedder is a deterministic embedder for tests and local
// development. Known texts map to fixed vectors; unknown texts get a
// stable pseudo-random unit vector derived from their hash, so repeated
// calls always agree and distinct texts rarely collide.
type StaticEmbedder struct {
	mu        sync.RWMutex
	vectors   map[string][]float64
	dimension int
}

// NewStaticEmbedder creates a static embedder with the given dimension.
func NewStaticEmbedder(dimension int) *StaticEmbedder {
	if dimension <= 0 {
		dimension = 8
	}
	return &StaticEmbedder{
		vectors:   make(map[string][]float64),
		dimension: dimension,
	}
}

// Register pins a text to a fixed vector. The vector is normalized to unit
// length so cosine similarity behaves as in a real embedding space.
func (e *StaticEmbedder) Register(text string, vec []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = unit(vec)
}

// Embed returns the registered or derived vector for the text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	vec, ok := e.vectors[text]
	e.mu.RUnlock()
	if ok {
		out := make([]float64, len(vec))
		copy(out, vec)
		return out, nil
	}
	return e.derive(text), nil
}

// EmbedBatch embeds each text independently.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Model returns the model identifier.
func (e *StaticEmbedder) Model() string { return "static" }

// Dimension returns the embedding dimension.
func (e *StaticEmbedder) Dimension() int { return e.dimension }

func (e *StaticEmbedder) derive(text string) []float64 {
	vec := make([]float64, e.dimension)
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	for i := range vec {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], seed+uint64(i)*0x9e3779b97f4a7c15)
		g := fnv.New64a()
		_, _ = g.Write(buf[:])
		vec[i] = float64(int64(g.Sum64()))/math.MaxInt64 - 0.5
	}
	return unit(vec)
}

func unit(vec []float64) []float64 {
	var n float64
	for _, v := range vec {
		n += v * v
	}
	n = math.Sqrt(n)
	out := make([]float64, len(vec))
	if n == 0 {
		copy(out, vec)
		return out
	}
	for i, v := range vec {
		out[i] = v / n
	}
	return out
}
