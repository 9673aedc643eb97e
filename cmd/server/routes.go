package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/cache"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/config"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/observability"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/orchestrator"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/retrieval"
	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

type handler struct {
	orch   *orchestrator.Orchestrator
	kb     *retrieval.KBIndex
	cache  *cache.Cache
	redis  goredis.UniversalClient
	logger *slog.Logger
}

func newHandler(orch *orchestrator.Orchestrator, kb *retrieval.KBIndex, answerCache *cache.Cache, redis goredis.UniversalClient, logger *slog.Logger) *handler {
	return &handler{orch: orch, kb: kb, cache: answerCache, redis: redis, logger: logger}
}

func buildMux(cfg *config.Config, h *handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", h.liveness)
	mux.HandleFunc("GET /health/ready", h.readiness)

	mux.HandleFunc("POST /v1/answers", h.answer)
	mux.HandleFunc("POST /v1/kb/documents", h.addDocument)
	mux.HandleFunc("GET /v1/cache/stats", h.cacheStats)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}
	return mux
}

func (h *handler) answer(w http.ResponseWriter, r *http.Request) {
	var req types.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "user_id and query are required")
		return
	}

	resp, err := h.orch.Answer(r.Context(), req)
	if err != nil {
		h.logger.Error("answer request failed",
			"request_id", observability.RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, statusFor(err), pkgerrors.ClientMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type addDocumentRequest struct {
	SourceDocID string   `json:"source_doc_id"`
	Chunks      []string `json:"chunks"`
}

type addDocumentResponse struct {
	SourceDocID string `json:"source_doc_id"`
	Indexed     int    `json:"indexed"`
}

func (h *handler) addDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SourceDocID == "" || len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "source_doc_id and chunks are required")
		return
	}

	indexed := 0
	for i, chunk := range req.Chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := h.kb.Add(r.Context(), chunk, req.SourceDocID, i); err != nil {
			writeError(w, statusFor(err), pkgerrors.ClientMessage(err))
			return
		}
		indexed++
	}
	writeJSON(w, http.StatusCreated, addDocumentResponse{SourceDocID: req.SourceDocID, Indexed: indexed})
}

func (h *handler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *handler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case pkgerrors.IsValidation(err):
		return http.StatusBadRequest
	case pkgerrors.IsService(err):
		return http.StatusBadGateway
	case pkgerrors.IsStore(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":"encoding failure"}`)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
