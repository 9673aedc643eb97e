package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/metrics"
	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

// OpenAIGenerator implements Generator against an OpenAI-compatible chat
// completions endpoint. The cheap and premium tiers map to two configured
// model names.
type OpenAIGenerator struct {
	client       *http.Client
	apiKey       string
	apiBase      string
	cheapModel   string
	premiumModel string
	limiter      *rate.Limiter
}

// OpenAIConfig holds configuration for the generator.
type OpenAIConfig struct {
	APIKey       string
	APIBase      string
	CheapModel   string
	PremiumModel string
	Timeout      time.Duration

	// RequestsPerSecond rate-limits outbound calls. Zero means unlimited.
	RequestsPerSecond float64
}

// NewOpenAIGenerator creates a new OpenAI-compatible generator.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation api_key is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.CheapModel == "" {
		cfg.CheapModel = "gpt-4o-mini"
	}
	if cfg.PremiumModel == "" {
		cfg.PremiumModel = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	g := &OpenAIGenerator{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:       cfg.APIKey,
		apiBase:      cfg.APIBase,
		cheapModel:   cfg.CheapModel,
		premiumModel: cfg.PremiumModel,
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return g, nil
}

func (g *OpenAIGenerator) model(tier types.Tier) string {
	if tier == types.TierPremium {
		return g.premiumModel
	}
	return g.cheapModel
}

// Generate runs one chat completion at the requested tier.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "ratelimit", "rate limiter interrupted", err)
		}
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: types.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := chatRequest{
		Model:       g.model(req.Tier),
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "marshal", "marshal request", err)
	}

	url := fmt.Sprintf("%s/chat/completions", g.apiBase)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "request", "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.apiKey))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		metrics.GenerationCalls.WithLabelValues(string(req.Tier), "error").Inc()
		return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "call", "generation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		metrics.GenerationCalls.WithLabelValues(string(req.Tier), "error").Inc()
		return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "call",
			fmt.Sprintf("generation failed: status=%d, body=%s", resp.StatusCode, string(respBody)), nil)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		metrics.GenerationCalls.WithLabelValues(string(req.Tier), "error").Inc()
		return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "decode", "decode response", err)
	}
	if len(chatResp.Choices) == 0 {
		metrics.GenerationCalls.WithLabelValues(string(req.Tier), "error").Inc()
		return "", pkgerrors.NewServiceError(pkgerrors.ServiceGeneration, "decode", "no choices returned", nil)
	}

	metrics.GenerationCalls.WithLabelValues(string(req.Tier), "ok").Inc()
	return chatResp.Choices[0].Message.Content, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
