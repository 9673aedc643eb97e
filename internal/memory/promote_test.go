package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicPolicyExtractsPreference(t *testing.T) {
	cands := HeuristicPolicy{}.Extract("I prefer concise answers")
	require.Len(t, cands, 1)
	assert.Equal(t, "preference", cands[0].Type)
	assert.Equal(t, "concise answers", cands[0].Value)
	assert.False(t, cands[0].Singleton)
}

func TestHeuristicPolicyExtractsSingletons(t *testing.T) {
	cands := HeuristicPolicy{}.Extract("my name is Ada Lovelace and I live in London")
	byType := map[string]Candidate{}
	for _, c := range cands {
		byType[c.Type] = c
	}

	name, ok := byType["name"]
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", name.Value)
	assert.True(t, name.Singleton)

	loc, ok := byType["location"]
	require.True(t, ok)
	assert.Equal(t, "London", loc.Value)
	assert.True(t, loc.Singleton)
}

func TestHeuristicPolicyIgnoresPlainQuestions(t *testing.T) {
	assert.Empty(t, HeuristicPolicy{}.Extract("how do index funds work?"))
	assert.Empty(t, HeuristicPolicy{}.Extract(""))
}

func TestPromoteTurnWritesFacts(t *testing.T) {
	_, client := newTestRedis(t)
	lt := NewLongTerm(client, 128)
	p := NewPromoter(HeuristicPolicy{}, lt)
	ctx := context.Background()

	n, err := p.PromoteTurn(ctx, "u1", "I prefer concise answers")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	facts, err := lt.Facts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "preference", facts[0].Type)
	assert.Equal(t, "concise answers", facts[0].Value)
}

func TestPromoteTurnRepeatDoesNotDuplicate(t *testing.T) {
	_, client := newTestRedis(t)
	lt := NewLongTerm(client, 128)
	p := NewPromoter(HeuristicPolicy{}, lt)
	ctx := context.Background()

	_, err := p.PromoteTurn(ctx, "u1", "I prefer concise answers")
	require.NoError(t, err)
	_, err = p.PromoteTurn(ctx, "u1", "I prefer concise answers")
	require.NoError(t, err)

	facts, err := lt.Facts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, int64(2), facts[0].Count)
}

func TestPromoteTurnSingletonReplacesOldValue(t *testing.T) {
	_, client := newTestRedis(t)
	lt := NewLongTerm(client, 128)
	p := NewPromoter(HeuristicPolicy{}, lt)
	ctx := context.Background()

	_, err := p.PromoteTurn(ctx, "u1", "I live in Porto Alegre")
	require.NoError(t, err)
	_, err = p.PromoteTurn(ctx, "u1", "I live in Lisbon")
	require.NoError(t, err)

	facts, err := lt.Facts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Lisbon", facts[0].Value)
}

func TestDisabledPolicyPromotesNothing(t *testing.T) {
	_, client := newTestRedis(t)
	p := NewPromoter(DisabledPolicy{}, NewLongTerm(client, 128))

	n, err := p.PromoteTurn(context.Background(), "u1", "I prefer concise answers")
	require.NoError(t, err)
	assert.Zero(t, n)
}
