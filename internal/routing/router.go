// Package routing classifies queries into topic routes by similarity
// against labeled exemplar embeddings. Routes partition the semantic cache,
// so routing must be deterministic: ties between routes are broken by
// declaration order, first-registered wins.
package routing

import (
	"context"
	"fmt"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/config"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/embedding"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/vector"
)

// Route is one topic bucket: a name, exemplar embeddings, and the minimum
// similarity for the bucket to claim a query. Read-only at query time.
type Route struct {
	Name      string
	Threshold float64
	Exemplars [][]float64
}

// Result is the routing outcome. Exactly one of the two arms holds: a
// matched route with its confidence, or no route at all. Callers must
// check Routed before reading Name.
type Result struct {
	routed     bool
	name       string
	confidence float64
}

// Routed constructs a matched result.
func Routed(name string, confidence float64) Result {
	return Result{routed: true, name: name, confidence: confidence}
}

// NoRoute constructs the unmatched result. It is expected control flow,
// not an error: callers fall through to their default route.
func NoRoute() Result { return Result{} }

// Routed reports whether a route matched.
func (r Result) Routed() bool { return r.routed }

// Name returns the matched route name, or "" when unrouted.
func (r Result) Name() string { return r.name }

// Confidence returns the cosine similarity to the best exemplar.
func (r Result) Confidence() float64 { return r.confidence }

// Router classifies query embeddings against registered routes.
type Router struct {
	routes []Route
}

// New creates a router over pre-embedded routes. Order is significant.
func New(routes []Route) *Router {
	return &Router{routes: routes}
}

// Build embeds each configured route's exemplars and constructs the
// router. Exemplar texts are normalized exactly like queries so both sides
// share the embedding space.
func Build(ctx context.Context, embedder embedding.Embedder, cfgs []config.RouteConfig) (*Router, error) {
	routes := make([]Route, 0, len(cfgs))
	for _, rc := range cfgs {
		texts := make([]string, len(rc.Exemplars))
		for i, ex := range rc.Exemplars {
			texts[i] = embedding.Normalize(ex)
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed exemplars for route %s: %w", rc.Name, err)
		}
		routes = append(routes, Route{
			Name:      rc.Name,
			Threshold: rc.Threshold,
			Exemplars: vecs,
		})
	}
	return New(routes), nil
}

// Route classifies a query embedding. It is a pure read: repeated calls
// with the same routes and query return the same result. With no routes
// configured it always returns NoRoute, which is a valid state.
func (r *Router) Route(queryVec []float64) Result {
	bestIdx := -1
	bestSim := 0.0
	for i, route := range r.routes {
		for _, ex := range route.Exemplars {
			sim := vector.Cosine(queryVec, ex)
			// Strict > keeps the first-declared route on ties.
			if bestIdx == -1 || sim > bestSim {
				bestIdx = i
				bestSim = sim
			}
		}
	}
	if bestIdx == -1 {
		return NoRoute()
	}
	best := r.routes[bestIdx]
	if bestSim < best.Threshold {
		return NoRoute()
	}
	return Routed(best.Name, bestSim)
}

// Routes returns the registered route names in declaration order.
func (r *Router) Routes() []string {
	names := make([]string, len(r.routes))
	for i, route := range r.routes {
		names[i] = route.Name
	}
	return names
}
