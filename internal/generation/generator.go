// Package generation wraps the opaque generation service. The pipeline
// only chooses a tier and supplies a prompt; model selection, retries, and
// quota handling belong to the adapter or the service itself, never to the
// orchestrator.
package generation

import (
	"context"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

// Request is one generation call.
type Request struct {
	Tier        types.Tier
	System      string
	Messages    []types.ChatMessage
	MaxTokens   int
	Temperature float64
}

// Generator produces text for a prompt at the requested tier. Failures are
// surfaced as ServiceError; the caller aborts the request without retrying.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
