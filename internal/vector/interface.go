// Package vector provides the similarity-search capability of the
// persistent store. The index structure is the store's concern; callers
// only specify the metric (cosine), their own thresholds, and tie-break
// policy over the returned candidates.
package vector

import (
	"context"

	"github.com/goccy/go-json"
)

// Entry is a vector with an opaque payload, stored under a namespace.
// Namespaces partition the search space: cache entries by route, knowledge
// base chunks under their own namespace.
type Entry struct {
	ID        string
	Namespace string
	Vector    []float64
	Payload   json.RawMessage
	CreatedAt int64

	// TTLSeconds expires the entry when positive. Zero means no expiry.
	TTLSeconds int64
}

// SearchResult is a scored candidate from a similarity search.
type SearchResult struct {
	ID        string
	Score     float64 // cosine similarity: 1 identical, 0 orthogonal
	CreatedAt int64
	Payload   json.RawMessage
}

// Store defines the similarity-search capability of the external store.
type Store interface {
	// Search returns up to topK entries from the namespace sorted by
	// descending similarity to the query vector. Threshold filtering is the
	// caller's responsibility.
	Search(ctx context.Context, namespace string, vector []float64, topK int) ([]SearchResult, error)

	// Insert stores an entry. The caller supplies the ID.
	Insert(ctx context.Context, entry Entry) error

	// UpdatePayload replaces the payload of an existing entry, keeping its
	// vector and expiry.
	UpdatePayload(ctx context.Context, namespace, id string, payload json.RawMessage) error

	// Delete removes an entry by ID.
	Delete(ctx context.Context, namespace, id string) error

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
