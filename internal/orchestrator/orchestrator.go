// Package orchestrator runs the answer pipeline: profile merge, semantic
// routing, cache lookup, retrieval-grounded generation, personalization,
// and memory updates. It owns the ordering and the hit/miss split; every
// external call is delegated to an injected component.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/cache"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/config"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/embedding"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/generation"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/memory"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/metrics"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/observability"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/profile"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/retrieval"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/routing"
	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

// Options bundles the tunables the orchestrator reads per request.
type Options struct {
	DefaultRoute    string
	RetrievalTopK   int
	ShortTermWindow int
	LongTermLimit   int
	MaxTokens       int
}

// OptionsFromConfig derives orchestrator options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultRoute:    cfg.Routing.DefaultRoute,
		RetrievalTopK:   cfg.Retrieval.TopK,
		ShortTermWindow: cfg.Memory.ShortTermWindow,
		LongTermLimit:   cfg.Memory.LongTermCap,
		MaxTokens:       cfg.Generation.MaxTokens,
	}
}

// Orchestrator drives a single answer request through the pipeline.
type Orchestrator struct {
	embedder  embedding.Embedder
	router    *routing.Router
	cache     *cache.Cache
	profiles  *profile.Store
	shortTerm *memory.ShortTerm
	longTerm  *memory.LongTerm
	promoter  *memory.Promoter
	retriever retrieval.Retriever
	generator generation.Generator
	logger    *slog.Logger
	tracer    trace.Tracer
	opts      Options
}

// New wires an orchestrator. promoter may be nil when fact promotion is
// disabled; every other component is required.
func New(
	embedder embedding.Embedder,
	router *routing.Router,
	answerCache *cache.Cache,
	profiles *profile.Store,
	shortTerm *memory.ShortTerm,
	longTerm *memory.LongTerm,
	promoter *memory.Promoter,
	retriever retrieval.Retriever,
	generator generation.Generator,
	logger *slog.Logger,
	opts Options,
) *Orchestrator {
	if opts.DefaultRoute == "" {
		opts.DefaultRoute = "general"
	}
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 3
	}
	if opts.ShortTermWindow <= 0 {
		opts.ShortTermWindow = 6
	}
	if opts.LongTermLimit <= 0 {
		opts.LongTermLimit = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		embedder:  embedder,
		router:    router,
		cache:     answerCache,
		profiles:  profiles,
		shortTerm: shortTerm,
		longTerm:  longTerm,
		promoter:  promoter,
		retriever: retriever,
		generator: generator,
		logger:    logger,
		tracer:    otel.Tracer(observability.TracerName),
		opts:      opts,
	}
}

// Answer processes one request end to end. On any embedding, generation,
// retrieval, or store failure the request aborts with a typed error; the
// caller decides how to surface it.
func (o *Orchestrator) Answer(ctx context.Context, req types.AnswerRequest) (*types.AnswerResponse, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, pkgerrors.NewValidationError("user_id", "is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, pkgerrors.NewValidationError("query", "is required")
	}
	if req.SessionID == "" {
		req.SessionID = req.UserID
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "orchestrator.answer")
	defer span.End()

	requestID := observability.RequestIDFromContext(ctx)
	log := o.logger.With("request_id", requestID, "user_id", req.UserID)

	// Preferences land in the profile before anything reads it, so the
	// current request already sees them.
	if len(req.Preferences) > 0 {
		if err := o.profiles.Merge(ctx, req.UserID, req.Preferences); err != nil {
			return nil, o.fail(log, span, err, "profile merge failed")
		}
	}

	prof, err := o.profiles.Get(ctx, req.UserID)
	if err != nil {
		return nil, o.fail(log, span, err, "profile load failed")
	}
	facts, err := o.longTerm.Rank(ctx, req.UserID, o.opts.LongTermLimit)
	if err != nil {
		return nil, o.fail(log, span, err, "long-term memory load failed")
	}
	identity := resolveIdentity(prof, facts)
	signature := contextSignature(identity)
	span.SetAttributes(attribute.String("user.persona", identity.Persona))

	queryVec, err := o.embedder.Embed(ctx, embedding.Normalize(req.Query))
	if err != nil {
		return nil, o.fail(log, span, err, "query embedding failed")
	}

	route := o.opts.DefaultRoute
	if decision := o.router.Route(queryVec); decision.Routed() {
		route = decision.Name()
		span.SetAttributes(attribute.Float64("route.confidence", decision.Confidence()))
	}
	metrics.RouterDecisions.WithLabelValues(route).Inc()
	span.SetAttributes(attribute.String("route.name", route))

	sensitive := isSensitiveQuery(req.Query)
	span.SetAttributes(attribute.Bool("query.sensitive", sensitive))

	var (
		result cache.Result
		status = types.CacheMiss
	)
	if !sensitive {
		result, err = o.cache.Lookup(ctx, queryVec, route, signature)
		if err != nil {
			return nil, o.fail(log, span, err, "cache lookup failed")
		}
		if result.Hit() {
			status = types.CacheHit
		}
	}

	recent, err := o.shortTerm.Recent(ctx, req.SessionID, o.opts.ShortTermWindow)
	if err != nil {
		return nil, o.fail(log, span, err, "short-term memory load failed")
	}

	chunks, err := o.retriever.Retrieve(ctx, req.Query, o.opts.RetrievalTopK)
	if err != nil {
		return nil, o.fail(log, span, err, "retrieval failed")
	}

	prompts := promptsFor(identity.Persona)

	var (
		generic    string
		similarity float64
	)
	if status == types.CacheHit {
		entry := result.Entry()
		generic = entry.Answer
		similarity = result.Similarity()
		log.Info("cache hit",
			"route", route,
			"similarity", similarity,
			"entry_id", entry.ID,
		)
	} else {
		// The premium call sees retrieval context only. The answer it
		// produces is cached and may be replayed to a different user, so
		// nothing user-specific can enter this prompt.
		generic, err = o.generator.Generate(ctx, generation.Request{
			Tier:        types.TierPremium,
			System:      prompts.premium,
			MaxTokens:   o.opts.MaxTokens,
			Temperature: prompts.premiumTemp,
			Messages: []types.ChatMessage{
				{Role: types.RoleUser, Content: buildGenericContext(chunks) + "\n[QUESTION]\n" + req.Query},
			},
		})
		if err != nil {
			return nil, o.fail(log, span, err, "premium generation failed")
		}
		if !sensitive {
			if err := o.cache.Store(ctx, queryVec, route, embedding.Normalize(req.Query), generic, signature); err != nil {
				return nil, o.fail(log, span, err, "cache store failed")
			}
		}
		log.Info("cache miss", "route", route, "sensitive", sensitive)
	}

	contextBlocks := buildContextBlocks(identity, facts, recent, route, chunks)
	answer, err := o.generator.Generate(ctx, generation.Request{
		Tier:        types.TierCheap,
		System:      prompts.personalizer,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: prompts.personalizerTemp,
		Messages: []types.ChatMessage{
			{Role: types.RoleUser, Content: contextBlocks +
				"\n[GENERIC ANSWER]\n" + generic +
				"\n[QUESTION]\n" + req.Query},
		},
	})
	if err != nil {
		return nil, o.fail(log, span, err, "personalization failed")
	}

	if err := o.shortTerm.Append(ctx, req.SessionID, types.RoleUser, req.Query); err != nil {
		return nil, o.fail(log, span, err, "short-term append failed")
	}
	if err := o.shortTerm.Append(ctx, req.SessionID, types.RoleAssistant, answer); err != nil {
		return nil, o.fail(log, span, err, "short-term append failed")
	}
	if o.promoter != nil {
		promoted, err := o.promoter.PromoteTurn(ctx, req.UserID, req.Query)
		if err != nil {
			return nil, o.fail(log, span, err, "fact promotion failed")
		}
		if promoted > 0 {
			metrics.PromotedFacts.Add(float64(promoted))
			log.Info("promoted facts", "count", promoted)
		}
	}

	elapsed := time.Since(start)
	metrics.RequestsTotal.WithLabelValues(route, string(status)).Inc()
	metrics.RequestLatency.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	log.Info("answer complete",
		"route", route,
		"cache_status", status,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return &types.AnswerResponse{
		Answer:      answer,
		Route:       route,
		CacheStatus: status,
		Similarity:  similarity,
		RequestID:   requestID,
	}, nil
}

// fail records the abort on the span and metrics, logs it once, and hands
// the original typed error back unchanged.
func (o *Orchestrator) fail(log *slog.Logger, span trace.Span, err error, msg string) error {
	span.RecordError(err)
	metrics.RequestErrors.WithLabelValues(errorCategory(err)).Inc()
	log.Error(msg, "error", err)
	return err
}

func errorCategory(err error) string {
	switch {
	case pkgerrors.IsConfig(err):
		return "config"
	case pkgerrors.IsService(err):
		return "service"
	case pkgerrors.IsStore(err):
		return "store"
	default:
		return "other"
	}
}
