package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	env, err := Resolve([]string{"u", "o"})
	require.NoError(t, err)

	i, ok := env.Index("u")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = env.Index("o")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = env.Index("x")
	assert.False(t, ok)

	assert.Equal(t, 2, env.Len())
	assert.Equal(t, []string{"u", "o"}, env.Names())
	assert.False(t, env.Implicit())
}

func TestResolveImplicit(t *testing.T) {
	env, err := Resolve(nil)
	require.NoError(t, err)

	assert.Equal(t, 1, env.Len())
	assert.True(t, env.Implicit())
	assert.Empty(t, env.Names())
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr string
	}{
		{"empty name", []string{"u", ""}, "binding 1: empty name"},
		{"duplicate", []string{"u", "o", "u"}, `binding "u" declared twice (sources 0 and 2)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.names)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvIsImmutable(t *testing.T) {
	names := []string{"u"}
	env, err := Resolve(names)
	require.NoError(t, err)

	names[0] = "changed"
	env.Names()[0] = "changed"

	assert.Equal(t, []string{"u"}, env.Names())
}
