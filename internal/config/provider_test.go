package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider(t *testing.T) {
	p := NewEnvProvider()

	assert.Equal(t, "env", p.Name())
	assert.True(t, p.IsAvailable(context.Background()))

	t.Setenv("JWT_SECRET", "from-env")
	value, err := p.GetSecret(context.Background(), "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	// Unset keys come back empty, which the chain treats as a miss.
	value, err = p.GetSecret(context.Background(), "NLQ_UNSET_TEST_KEY")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestChainProviderFallsThroughToEnv(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "env-password")

	// An empty secret mount misses, the environment is the last resort.
	chain := NewChainProvider(
		NewFileProvider(t.TempDir()),
		NewEnvProvider(),
	)

	value, err := chain.GetSecret(context.Background(), "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "env-password", value)
}
