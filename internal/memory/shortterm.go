package memory

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

// ShortTerm is the bounded, expiring log of recent turns per session,
// backed by a Redis list. The bound is enforced with LTRIM on every append
// and the whole list carries a TTL refreshed on append, so an idle session
// expires natively in the store without a background timer.
type ShortTerm struct {
	client   goredis.UniversalClient
	maxTurns int
	ttl      time.Duration
}

// NewShortTerm creates the short-term memory store.
func NewShortTerm(client goredis.UniversalClient, maxTurns int, ttl time.Duration) *ShortTerm {
	if maxTurns <= 0 {
		maxTurns = 24
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ShortTerm{client: client, maxTurns: maxTurns, ttl: ttl}
}

func historyKey(sessionID string) string {
	return "chat:" + sessionID + ":history"
}

// Append pushes a turn onto the session log, trims to the bound (oldest
// entries are evicted first), and refreshes the TTL.
func (s *ShortTerm) Append(ctx context.Context, sessionID, role, text string) error {
	entry := types.ChatMessage{
		Role:      role,
		Content:   text,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return pkgerrors.NewStoreError("stm.append", historyKey(sessionID), err)
	}

	key := historyKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return pkgerrors.NewStoreError("stm.append", key, err)
	}
	return nil
}

// Recent returns the last k turns in chronological order. An expired or
// unknown session yields an empty slice.
func (s *ShortTerm) Recent(ctx context.Context, sessionID string, k int) ([]types.ChatMessage, error) {
	if k <= 0 {
		k = s.maxTurns
	}
	key := historyKey(sessionID)
	raw, err := s.client.LRange(ctx, key, int64(-k), -1).Result()
	if err != nil {
		return nil, pkgerrors.NewStoreError("stm.recent", key, err)
	}

	out := make([]types.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg types.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue // skip malformed records
		}
		out = append(out, msg)
	}
	return out, nil
}

// Len reports the current number of stored turns for a session.
func (s *ShortTerm) Len(ctx context.Context, sessionID string) (int64, error) {
	n, err := s.client.LLen(ctx, historyKey(sessionID)).Result()
	if err != nil {
		return 0, pkgerrors.NewStoreError("stm.len", historyKey(sessionID), err)
	}
	return n, nil
}
