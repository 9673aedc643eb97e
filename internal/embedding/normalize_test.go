package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello World  ", "hello world"},
		{"Itália", "italia"},
		{"CAFÉ com açúcar", "cafe com acucar"},
		{"", ""},
		{"   ", ""},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("Qual é a capital da Itália?")
	assert.Equal(t, once, Normalize(once))
}

func TestStaticEmbedderDeterministic(t *testing.T) {
	e := NewStaticEmbedder(8)

	a, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := e.Embed(context.Background(), "other text")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestStaticEmbedderRegisterPinsVector(t *testing.T) {
	e := NewStaticEmbedder(3)
	e.Register("pinned", []float64{2, 0, 0})

	vec, err := e.Embed(context.Background(), "pinned")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vec[0], 1e-9, "registered vectors are unit-normalized")
	assert.Len(t, vec, 3)
}
