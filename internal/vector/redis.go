package vector

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
)

// RedisStore implements Store on Redis. Entries live as JSON values under
// per-entry keys with native TTL; a set per namespace tracks membership.
// Search is brute-force client-side cosine scoring, which is exact and
// adequate for per-route partitions of cached answers and modest knowledge
// bases. Expired entries are swept from the membership set on read rather
// than by a background timer.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore creates a vector store on an existing Redis client.
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "vec"
	}
	return &RedisStore{client: client, prefix: prefix}
}

type redisEntry struct {
	ID        string          `json:"id"`
	Vector    []float64       `json:"vector"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

func (s *RedisStore) entryKey(namespace, id string) string {
	return s.prefix + ":" + namespace + ":" + id
}

func (s *RedisStore) indexKey(namespace string) string {
	return s.prefix + ":idx:" + namespace
}

// Insert stores the entry and registers it in the namespace index.
func (s *RedisStore) Insert(ctx context.Context, entry Entry) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	rec := redisEntry{
		ID:        entry.ID,
		Vector:    entry.Vector,
		Payload:   entry.Payload,
		CreatedAt: entry.CreatedAt,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.NewStoreError("vector.insert", entry.ID, err)
	}

	key := s.entryKey(entry.Namespace, entry.ID)
	var ttl time.Duration
	if entry.TTLSeconds > 0 {
		ttl = time.Duration(entry.TTLSeconds) * time.Second
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, s.indexKey(entry.Namespace), entry.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return pkgerrors.NewStoreError("vector.insert", key, err)
	}
	return nil
}

// Search loads the namespace partition, scores entries by cosine
// similarity, and returns the topK best, most similar first.
func (s *RedisStore) Search(ctx context.Context, namespace string, vector []float64, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 1
	}

	idxKey := s.indexKey(namespace)
	ids, err := s.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return nil, pkgerrors.NewStoreError("vector.search", idxKey, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(namespace, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, pkgerrors.NewStoreError("vector.search", idxKey, err)
	}

	var results []SearchResult
	var stale []interface{}
	for i, v := range values {
		if v == nil {
			// Entry expired; sweep it from the index.
			stale = append(stale, ids[i])
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec redisEntry
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		results = append(results, SearchResult{
			ID:        rec.ID,
			Score:     Cosine(vector, rec.Vector),
			CreatedAt: rec.CreatedAt,
			Payload:   rec.Payload,
		})
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, idxKey, stale...).Err()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt > results[j].CreatedAt
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// UpdatePayload rewrites an entry's payload in place, preserving its vector
// and remaining TTL.
func (s *RedisStore) UpdatePayload(ctx context.Context, namespace, id string, payload json.RawMessage) error {
	key := s.entryKey(namespace, id)
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.NewStoreError("vector.update", key, errors.New("entry not found"))
		}
		return pkgerrors.NewStoreError("vector.update", key, err)
	}

	var rec redisEntry
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return pkgerrors.NewStoreError("vector.update", key, err)
	}
	rec.Payload = payload
	data, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.NewStoreError("vector.update", key, err)
	}

	if err := s.client.Set(ctx, key, data, goredis.KeepTTL).Err(); err != nil {
		return pkgerrors.NewStoreError("vector.update", key, err)
	}
	return nil
}

// Delete removes the entry and its index membership.
func (s *RedisStore) Delete(ctx context.Context, namespace, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.entryKey(namespace, id))
	pipe.SRem(ctx, s.indexKey(namespace), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return pkgerrors.NewStoreError("vector.delete", id, err)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return pkgerrors.NewStoreError("vector.ping", "", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
