package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient()
	a, err := c.Embed(context.Background(), "Does caffeine improve memory?")
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), "does CAFFEINE improve memory")
	require.NoError(t, err)

	assert.Len(t, a, Dimensions)
	assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
	assert.Len(t, c.Calls, 2)
}

func TestMockClient_SimilarTextsCloser(t *testing.T) {
	c := NewMockClient()
	q, _ := c.Embed(context.Background(), "caffeine memory effects")
	near, _ := c.Embed(context.Background(), "caffeine and memory")
	far, _ := c.Embed(context.Background(), "inflation and interest rates")

	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestMockClient_Error(t *testing.T) {
	c := NewMockClient()
	c.Err = errors.New("boom")
	_, err := c.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, "", "")
	assert.Error(t, err)

	client, err := NewClient(ProviderMock, "", "")
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, client)

	_, err = NewClient("acme", "k", "")
	assert.Error(t, err)
}
