package profile

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, slog.New(slog.DiscardHandler))
}

func TestGetMissingProfileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestMergeCreatesAndUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]string{"tone": "formal", "locale": "pt-BR"}))
	require.NoError(t, s.Merge(ctx, "u1", map[string]string{"tone": "casual"}))

	p, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "casual", p["tone"], "last write wins per field")
	assert.Equal(t, "pt-BR", p["locale"], "untouched fields survive")
}

func TestMergeDropsMalformedFieldsAndKeepsRest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]string{
		"tone":           "formal",
		"bad key!":       "x",
		"":               "y",
		"empty_value":    "",
		"too_long_value": strings.Repeat("x", 300),
	}))

	p, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Profile{"tone": "formal"}, p)
}

func TestMergeEmptyMapIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Merge(context.Background(), "u1", nil))
}

func TestPersonaFallsBackToMode(t *testing.T) {
	assert.Equal(t, "analyst", Profile{"persona": "Analyst"}.Persona())
	assert.Equal(t, "support_agent", Profile{"mode": " Support_Agent "}.Persona())
	assert.Equal(t, "", Profile{}.Persona())
}

func TestProfilesAreIsolatedPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]string{"tone": "formal"}))

	p, err := s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, p)
}
