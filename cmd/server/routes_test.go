package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/cache"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/embedding"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/retrieval"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/vector"
)

func newTestHandler(t *testing.T) (*handler, *miniredis.Miniredis, *vector.InMemStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := vector.NewInMemStore()
	answerCache, err := cache.New(store, cache.Config{Namespace: "anscache"})
	require.NoError(t, err)
	kb := retrieval.NewKBIndex(embedding.NewStaticEmbedder(3), store, "kb")

	return newHandler(nil, kb, answerCache, client, slog.New(slog.DiscardHandler)), mr, store
}

func TestLivenessAlwaysOK(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessReflectsRedis(t *testing.T) {
	h, mr, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()
	rec = httptest.NewRecorder()
	h.readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAddDocumentIndexesChunks(t *testing.T) {
	h, _, store := newTestHandler(t)

	body := `{"source_doc_id":"doc-1","chunks":["first chunk","second chunk","  "]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/kb/documents", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.addDocument(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp addDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.SourceDocID)
	assert.Equal(t, 2, resp.Indexed, "blank chunks are skipped")
	assert.Equal(t, 2, store.Len("kb"))
}

func TestAddDocumentValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, body := range []string{
		"not json",
		`{"source_doc_id":"","chunks":["x"]}`,
		`{"source_doc_id":"doc-1","chunks":[]}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/kb/documents", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.addDocument(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestAnswerRejectsInvalidBody(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, body := range []string{
		"not json",
		`{"user_id":"","query":"hi"}`,
		`{"user_id":"u1","query":"  "}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/answers", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.answer(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.cacheStats(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.Hits)
}
