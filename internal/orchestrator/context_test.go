package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/memory"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

func TestResolveIdentityOverlaysSingletonFacts(t *testing.T) {
	profile := map[string]string{"location": "Porto Alegre", "tone": "formal"}
	facts := []memory.Fact{
		{Type: "location", Value: "Lisbon"},
		{Type: "preference", Value: "concise answers"},
	}

	id := resolveIdentity(profile, facts)
	assert.Equal(t, "Lisbon", id.Profile["location"], "ranked facts override the stored profile")
	assert.Equal(t, "formal", id.Profile["tone"])
}

func TestResolveIdentityFirstRankedFactWins(t *testing.T) {
	facts := []memory.Fact{
		{Type: "location", Value: "Lisbon"},
		{Type: "location", Value: "Porto"},
	}

	id := resolveIdentity(nil, facts)
	assert.Equal(t, "Lisbon", id.Profile["location"])
}

func TestResolveIdentityPersonaFallsBackToMode(t *testing.T) {
	id := resolveIdentity(map[string]string{"mode": "Analyst"}, nil)
	assert.Equal(t, "analyst", id.Persona)
}

func TestContextSignatureStableAndDiscriminating(t *testing.T) {
	a := contextSignature(resolvedIdentity{Persona: "analyst", Locale: "pt-BR"})
	b := contextSignature(resolvedIdentity{Persona: "analyst", Locale: "pt-BR"})
	c := contextSignature(resolvedIdentity{Persona: "support_agent", Locale: "pt-BR"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 12)
}

func TestIsSensitiveQuery(t *testing.T) {
	sensitive := []string{
		"What's my name?",
		"what is my timezone",
		"where do i live",
		"Who am I to you?",
		"Do you remember anything about me?",
		"Actually, I moved to Lisbon",
		"I now live in Berlin",
	}
	for _, q := range sensitive {
		assert.True(t, isSensitiveQuery(q), "expected sensitive: %q", q)
	}

	neutral := []string{
		"How do index funds work?",
		"Who won the game last night?",
		"Explain redis persistence",
	}
	for _, q := range neutral {
		assert.False(t, isSensitiveQuery(q), "expected neutral: %q", q)
	}
}

func TestBuildContextBlocksLayout(t *testing.T) {
	id := resolvedIdentity{Profile: map[string]string{"tone": "formal"}}
	facts := []memory.Fact{{Type: "preference", Value: "concise answers", Count: 3}}
	recent := []types.ChatMessage{{Role: types.RoleUser, Content: "earlier question"}}
	chunks := []types.RetrievedChunk{{Text: "some knowledge", SourceDocID: "doc-1"}}

	out := buildContextBlocks(id, facts, recent, "finance", chunks)
	assert.Contains(t, out, "[USER PROFILE]\ntone: formal")
	assert.Contains(t, out, "- preference: concise answers (seen 3x)")
	assert.Contains(t, out, "user: earlier question")
	assert.Contains(t, out, "[SEMANTIC ROUTE]\nfinance")
	assert.Contains(t, out, "(doc-1#0) some knowledge")
}

func TestBuildGenericContextHasNoUserBlocks(t *testing.T) {
	out := buildGenericContext([]types.RetrievedChunk{{Text: "k", SourceDocID: "d"}})
	assert.Contains(t, out, "[KNOWLEDGE BASE]")
	assert.NotContains(t, out, "[USER PROFILE]")
	assert.NotContains(t, out, "[RECENT MESSAGES]")
}

func TestPromptsForUnknownPersonaFallsBack(t *testing.T) {
	p := promptsFor("nonexistent")
	assert.Equal(t, basePersonalizerPrompt, p.personalizer)

	strict := promptsFor("rag_strict")
	assert.NotEqual(t, p.premium, strict.personalizer)
	assert.Less(t, strict.premiumTemp, 0.2)
}
