package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
)

// OpenAIEmbedder implements Embedder against an OpenAI-compatible
// embeddings endpoint. Repeated texts (route exemplars, retried queries)
// are memoized in-process so startup and hot paths do not re-pay the
// network call.
type OpenAIEmbedder struct {
	client    *http.Client
	apiKey    string
	apiBase   string
	model     string
	dimension int
	limiter   *rate.Limiter
	memo      *gocache.Cache
}

// OpenAIConfig holds configuration for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey    string
	APIBase   string
	Model     string
	Dimension int
	Timeout   time.Duration

	// MemoTTL enables in-process memoization of embeddings when positive.
	MemoTTL time.Duration

	// RequestsPerSecond rate-limits outbound calls. Zero means unlimited.
	RequestsPerSecond float64
}

// NewOpenAIEmbedder creates a new OpenAI-compatible embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api_key is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	e := &OpenAIEmbedder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:    cfg.APIKey,
		apiBase:   cfg.APIBase,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.MemoTTL > 0 {
		e.memo = gocache.New(cfg.MemoTTL, 2*cfg.MemoTTL)
	}
	return e, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "embed", "no embedding returned", nil)
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, serving memoized
// entries locally and fetching only the remainder.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if e.memo != nil {
			if v, found := e.memo.Get(t); found {
				if vec, ok := v.([]float64); ok {
					out[i] = vec
					continue
				}
			}
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := e.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range fetched {
		out[missingIdx[j]] = vec
		if e.memo != nil && vec != nil {
			e.memo.Set(missing[j], vec, gocache.DefaultExpiration)
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) fetch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "ratelimit", "rate limiter interrupted", err)
		}
	}

	reqBody := openAIEmbeddingRequest{
		Model: e.model,
		Input: texts,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "marshal", "marshal request", err)
	}

	url := fmt.Sprintf("%s/embeddings", e.apiBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "request", "create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.apiKey))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "call", "embedding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "call",
			fmt.Sprintf("embedding failed: status=%d, body=%s", resp.StatusCode, string(body)), nil)
	}

	var embResp openAIEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, pkgerrors.NewServiceError(pkgerrors.ServiceEmbedding, "decode", "decode response", err)
	}

	// Responses may arrive out of order; place by index.
	embeddings := make([][]float64, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Dimension returns the embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Object string                `json:"object"`
	Data   []openAIEmbeddingData `json:"data"`
	Model  string                `json:"model"`
}

type openAIEmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}
