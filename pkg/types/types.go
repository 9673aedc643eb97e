// Package types contains the wire types shared between the HTTP surface and
// the answer pipeline.
package types

// Role values used in short-term history entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is a single conversational turn.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"t,omitempty"`
}

// Tier selects the generation model class. Cheap is used for
// personalization of an already-generic answer, premium for the full
// retrieval-grounded generation on a cache miss.
type Tier string

const (
	TierCheap   Tier = "cheap"
	TierPremium Tier = "premium"
)

// CacheStatus reports which branch the pipeline took.
type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
)

// AnswerRequest is the input to the answer pipeline.
type AnswerRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`

	// Preferences are merged into the user profile before answering.
	// Unknown or malformed fields are dropped, not rejected.
	Preferences map[string]string `json:"preferences,omitempty"`
}

// AnswerResponse is the output of the answer pipeline.
type AnswerResponse struct {
	Answer      string      `json:"answer"`
	Route       string      `json:"route"`
	CacheStatus CacheStatus `json:"cache_status"`
	Similarity  float64     `json:"similarity,omitempty"`
	RequestID   string      `json:"request_id,omitempty"`
}

// RetrievedChunk is a knowledge-base fragment returned by the retrieval
// index. Score is cosine similarity to the query (higher is closer).
type RetrievedChunk struct {
	Text        string  `json:"text"`
	SourceDocID string  `json:"source_doc_id"`
	ChunkIndex  int     `json:"chunk_index,omitempty"`
	Score       float64 `json:"score"`
}
