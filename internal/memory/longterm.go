package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
)

// Fact is one durable piece of user-specific knowledge. Facts are
// append-only with dedupe by identity: the ID is derived from type and
// normalized value, so repeating the same statement bumps counters instead
// of creating a second fact.
type Fact struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	FirstSeen  int64   `json:"first_seen"`
	LastSeen   int64   `json:"last_seen"`
	Count      int64   `json:"count"`
}

// FactID derives the stable identity of a fact from its type and value.
func FactID(factType, value string) string {
	base := factType + "::" + strings.ToLower(strings.TrimSpace(value))
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])[:16]
}

// LongTerm stores per-user facts in a Redis hash keyed by fact ID. No TTL:
// long-term memory is durable until explicitly pruned at the cap.
type LongTerm struct {
	client goredis.UniversalClient
	cap    int
	now    func() time.Time
}

// NewLongTerm creates the long-term memory store. cap bounds the number of
// facts per user; the lowest-ranked facts are pruned past it.
func NewLongTerm(client goredis.UniversalClient, cap int) *LongTerm {
	if cap <= 0 {
		cap = 128
	}
	return &LongTerm{client: client, cap: cap, now: time.Now}
}

func ltmKey(userID string) string {
	return "user:" + userID + ":ltm"
}

// Upsert inserts the fact or, when a fact with the same identity exists,
// bumps its counters and recency. The stored value is never silently
// overwritten by an upsert.
func (l *LongTerm) Upsert(ctx context.Context, userID string, factType, value, source string, confidence float64) (Fact, error) {
	key := ltmKey(userID)
	id := FactID(factType, value)
	now := l.now().Unix()

	raw, err := l.client.HGet(ctx, key, id).Result()
	switch {
	case err == nil:
		var existing Fact
		if jsonErr := json.Unmarshal([]byte(raw), &existing); jsonErr == nil {
			existing.LastSeen = now
			existing.Count++
			existing.Confidence = math.Max(existing.Confidence, confidence)
			if source != "" {
				existing.Source = source
			}
			return existing, l.write(ctx, key, existing)
		}
		// Malformed record: fall through and rewrite it.
	case err != goredis.Nil:
		return Fact{}, pkgerrors.NewStoreError("ltm.upsert", key, err)
	}

	fact := Fact{
		ID:         id,
		Type:       factType,
		Value:      strings.TrimSpace(value),
		Source:     source,
		Confidence: confidence,
		FirstSeen:  now,
		LastSeen:   now,
		Count:      1,
	}
	if err := l.write(ctx, key, fact); err != nil {
		return Fact{}, err
	}
	if err := l.pruneIfNeeded(ctx, userID); err != nil {
		return Fact{}, err
	}
	return fact, nil
}

// ReplaceType enforces single-valued fact types (name, locale, location):
// facts of the same type with a different value are removed before the new
// value is upserted.
func (l *LongTerm) ReplaceType(ctx context.Context, userID, factType, value, source string, confidence float64) (Fact, error) {
	facts, err := l.Facts(ctx, userID)
	if err != nil {
		return Fact{}, err
	}
	for _, f := range facts {
		if f.Type == factType && !strings.EqualFold(f.Value, value) {
			if err := l.Delete(ctx, userID, f.ID); err != nil {
				return Fact{}, err
			}
		}
	}
	return l.Upsert(ctx, userID, factType, value, source, confidence)
}

// Facts returns all facts for a user, unordered.
func (l *LongTerm) Facts(ctx context.Context, userID string) ([]Fact, error) {
	key := ltmKey(userID)
	vals, err := l.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, pkgerrors.NewStoreError("ltm.facts", key, err)
	}

	out := make([]Fact, 0, len(vals))
	for _, raw := range vals {
		var f Fact
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			continue // skip malformed records
		}
		out = append(out, f)
	}
	return out, nil
}

// Rank returns up to limit facts ordered by a blend of observation count,
// recency, and confidence, most relevant first.
func (l *LongTerm) Rank(ctx context.Context, userID string, limit int) ([]Fact, error) {
	facts, err := l.Facts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}

	now := float64(l.now().Unix())
	const tau = 14 * 24 * 3600.0 // recency decay horizon, ~2 weeks
	score := func(f Fact) float64 {
		recency := math.Exp(-(now - float64(f.LastSeen)) / tau)
		return 0.6*math.Log1p(float64(f.Count)) + 0.3*recency + 0.1*f.Confidence
	}

	sort.Slice(facts, func(i, j int) bool {
		si, sj := score(facts[i]), score(facts[j])
		if si != sj {
			return si > sj
		}
		return facts[i].ID < facts[j].ID
	})
	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

// Delete removes a single fact.
func (l *LongTerm) Delete(ctx context.Context, userID, factID string) error {
	if err := l.client.HDel(ctx, ltmKey(userID), factID).Err(); err != nil {
		return pkgerrors.NewStoreError("ltm.delete", ltmKey(userID), err)
	}
	return nil
}

func (l *LongTerm) write(ctx context.Context, key string, fact Fact) error {
	data, err := json.Marshal(fact)
	if err != nil {
		return pkgerrors.NewStoreError("ltm.write", key, err)
	}
	if err := l.client.HSet(ctx, key, fact.ID, data).Err(); err != nil {
		return pkgerrors.NewStoreError("ltm.write", key, err)
	}
	return nil
}

func (l *LongTerm) pruneIfNeeded(ctx context.Context, userID string) error {
	key := ltmKey(userID)
	n, err := l.client.HLen(ctx, key).Result()
	if err != nil {
		return pkgerrors.NewStoreError("ltm.prune", key, err)
	}
	if int(n) <= l.cap {
		return nil
	}

	ranked, err := l.Rank(ctx, userID, 0)
	if err != nil {
		return err
	}
	for _, f := range ranked[l.cap:] {
		if err := l.Delete(ctx, userID, f.ID); err != nil {
			return err
		}
	}
	return nil
}
