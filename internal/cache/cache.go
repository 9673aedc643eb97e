// Package cache implements the semantic answer cache. It stores generic
// (non-personalized) answers indexed by query embedding, partitioned by
// route, and answers similarity lookups so semantically similar questions
// reuse prior answers across users.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/metrics"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/vector"
)

// Entry is one cached generic answer. Entries are route-appropriate and
// content-neutral: no field may carry a user identity, because cache hits
// are reused across users and personalized downstream.
type Entry struct {
	ID      string `json:"id"`
	Prompt  string `json:"prompt"`
	Answer  string `json:"answer"`
	Route   string `json:"route"`
	HitCount int64 `json:"hit_count"`

	// ContextSignature binds the entry to stable non-identifying context
	// (persona, locale) so a hit is only served into a compatible context.
	ContextSignature string `json:"context_signature,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// Result is the lookup outcome: a hit carrying the entry and its
// similarity, or a miss. A miss is expected control flow, not an error.
type Result struct {
	hit        bool
	entry      Entry
	similarity float64
}

// Hit constructs a hit result.
func Hit(entry Entry, similarity float64) Result {
	return Result{hit: true, entry: entry, similarity: similarity}
}

// Miss constructs the miss result.
func Miss() Result { return Result{} }

// Hit reports whether the lookup matched.
func (r Result) Hit() bool { return r.hit }

// Entry returns the matched entry. Only valid when Hit reports true.
func (r Result) Entry() Entry { return r.entry }

// Similarity returns the cosine similarity of the match.
func (r Result) Similarity() float64 { return r.similarity }

// Config holds the cache thresholds. HitThreshold governs when a cached
// answer is reused; DuplicateThreshold governs cache growth on store. They
// are independently configurable and need not be equal.
type Config struct {
	HitThreshold       float64
	DuplicateThreshold float64

	// LookupCandidates is how many nearest entries a lookup inspects before
	// declaring a miss. Context-signature filtering discards candidates, so
	// a width of one could mask a compatible entry behind closer entries
	// bound to other signatures.
	LookupCandidates int

	TTL       time.Duration
	Namespace string
}

// Cache is the semantic answer cache over a vector store.
type Cache struct {
	store vector.Store
	cfg   Config

	hits   atomic.Int64
	misses atomic.Int64
	stores atomic.Int64
	merges atomic.Int64
}

// New creates a semantic cache.
func New(store vector.Store, cfg Config) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if cfg.HitThreshold <= 0 || cfg.HitThreshold > 1 {
		cfg.HitThreshold = 0.85
	}
	if cfg.DuplicateThreshold <= 0 || cfg.DuplicateThreshold > 1 {
		cfg.DuplicateThreshold = 0.95
	}
	if cfg.LookupCandidates <= 0 {
		cfg.LookupCandidates = 4
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "anscache"
	}
	return &Cache{store: store, cfg: cfg}, nil
}

// namespace partitions entries by route. Partitioning keeps lookups
// precise and lets each route carry its own answer population.
func (c *Cache) namespace(route string) string {
	return c.cfg.Namespace + ":" + route
}

// Lookup searches the route partition for the closest entry. The best
// candidate wins when its similarity reaches the hit threshold; similarity
// ties favor the most recently created entry. On a hit the entry's
// hit_count is bumped best-effort; the answer content is never modified.
func (c *Cache) Lookup(ctx context.Context, queryVec []float64, route, contextSignature string) (Result, error) {
	results, err := c.store.Search(ctx, c.namespace(route), queryVec, c.cfg.LookupCandidates)
	if err != nil {
		return Miss(), err
	}

	for _, res := range results {
		if res.Score < c.cfg.HitThreshold {
			break // sorted descending, nothing further can hit
		}
		var entry Entry
		if err := json.Unmarshal(res.Payload, &entry); err != nil {
			continue
		}
		if contextSignature != "" && entry.ContextSignature != contextSignature {
			continue
		}

		entry.HitCount++
		if data, err := json.Marshal(entry); err == nil {
			// Best-effort bookkeeping; a lost increment is not a failure.
			_ = c.store.UpdatePayload(ctx, c.namespace(route), entry.ID, data)
		}

		c.hits.Add(1)
		metrics.CacheLookups.WithLabelValues(route, "hit").Inc()
		return Hit(entry, res.Score), nil
	}

	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(route, "miss").Inc()
	return Miss(), nil
}

// Store inserts a generic answer under the route partition. It is
// idempotent under near-duplicates: when an existing entry is at least
// DuplicateThreshold similar, its hit_count is bumped instead of inserting
// a second copy. Duplicate detection is best-effort under concurrent
// stores; a rare duplicate entry is acceptable and preferable to a
// cross-request lock.
func (c *Cache) Store(ctx context.Context, queryVec []float64, route, prompt, answer, contextSignature string) error {
	if answer == "" {
		return nil
	}
	ns := c.namespace(route)

	existing, err := c.store.Search(ctx, ns, queryVec, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 && existing[0].Score >= c.cfg.DuplicateThreshold {
		var entry Entry
		if err := json.Unmarshal(existing[0].Payload, &entry); err == nil &&
			(contextSignature == "" || entry.ContextSignature == contextSignature) {
			entry.HitCount++
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal cache entry: %w", err)
			}
			if err := c.store.UpdatePayload(ctx, ns, entry.ID, data); err != nil {
				return err
			}
			c.merges.Add(1)
			metrics.CacheStores.WithLabelValues(route, "merged").Inc()
			return nil
		}
	}

	entry := Entry{
		ID:               uuid.New().String(),
		Prompt:           prompt,
		Answer:           answer,
		Route:            route,
		ContextSignature: contextSignature,
		CreatedAt:        time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	var ttlSeconds int64
	if c.cfg.TTL > 0 {
		ttlSeconds = int64(c.cfg.TTL / time.Second)
	}
	if err := c.store.Insert(ctx, vector.Entry{
		ID:         entry.ID,
		Namespace:  ns,
		Vector:     queryVec,
		Payload:    data,
		CreatedAt:  entry.CreatedAt,
		TTLSeconds: ttlSeconds,
	}); err != nil {
		return err
	}

	c.stores.Add(1)
	metrics.CacheStores.WithLabelValues(route, "inserted").Inc()
	return nil
}

// Stats holds cache counters since process start.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Stores int64 `json:"stores"`
	Merges int64 `json:"merges"`
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Stores: c.stores.Load(),
		Merges: c.merges.Load(),
	}
}
