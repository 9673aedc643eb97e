package vector

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
)

// InMemStore is a thread-safe in-memory Store for tests and local
// development. TTL expiry is applied on read.
type InMemStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*inmemEntry
	now        func() time.Time
}

type inmemEntry struct {
	id        string
	vector    []float64
	payload   json.RawMessage
	createdAt int64
	expiresAt time.Time // zero means no expiry
}

// NewInMemStore creates an empty in-memory vector store.
func NewInMemStore() *InMemStore {
	return &InMemStore{
		namespaces: make(map[string]map[string]*inmemEntry),
		now:        time.Now,
	}
}

// SetClock overrides the time source, for TTL tests.
func (s *InMemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Insert stores an entry.
func (s *InMemStore) Insert(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[entry.Namespace]
	if !ok {
		ns = make(map[string]*inmemEntry)
		s.namespaces[entry.Namespace] = ns
	}

	createdAt := entry.CreatedAt
	if createdAt == 0 {
		createdAt = s.now().Unix()
	}
	e := &inmemEntry{
		id:        entry.ID,
		vector:    append([]float64(nil), entry.Vector...),
		payload:   append(json.RawMessage(nil), entry.Payload...),
		createdAt: createdAt,
	}
	if entry.TTLSeconds > 0 {
		e.expiresAt = s.now().Add(time.Duration(entry.TTLSeconds) * time.Second)
	}
	ns[entry.ID] = e
	return nil
}

// Search scores all live entries in the namespace and returns the topK.
func (s *InMemStore) Search(_ context.Context, namespace string, vector []float64, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}

	now := s.now()
	var results []SearchResult
	for id, e := range ns {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(ns, id)
			continue
		}
		results = append(results, SearchResult{
			ID:        e.id,
			Score:     Cosine(vector, e.vector),
			CreatedAt: e.createdAt,
			Payload:   append(json.RawMessage(nil), e.payload...),
		})
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

// UpdatePayload replaces an entry's payload.
func (s *InMemStore) UpdatePayload(_ context.Context, namespace, id string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.namespaces[namespace][id]
	if !ok {
		return pkgerrors.NewStoreError("vector.update", id, errors.New("entry not found"))
	}
	e.payload = append(json.RawMessage(nil), payload...)
	return nil
}

// Delete removes an entry.
func (s *InMemStore) Delete(_ context.Context, namespace, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces[namespace], id)
	return nil
}

// Ping always succeeds.
func (s *InMemStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *InMemStore) Close() error { return nil }

// Len reports live entries in a namespace, for tests.
func (s *InMemStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}
