package envist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolveEnv(raw map[string]string) *resolveEnv {
	return &resolveEnv{raw: raw, resolved: make(map[string]string)}
}

func TestExpandSimple(t *testing.T) {
	re := newResolveEnv(map[string]string{
		"HOST": "localhost",
		"PORT": "8080",
	})

	out, err := re.expand("${HOST}:${PORT}", make(map[string]struct{}))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", out)
}

func TestExpandRepeatedReference(t *testing.T) {
	re := newResolveEnv(map[string]string{"X": "a"})

	out, err := re.expand("${X}${X}-${X}", make(map[string]struct{}))
	require.NoError(t, err)
	assert.Equal(t, "aa-a", out)
}

func TestExpandNestedReferences(t *testing.T) {
	// BASE is only reachable through MID: forward and transitive
	// references resolve recursively.
	re := newResolveEnv(map[string]string{
		"URL":  "${MID}/v1",
		"MID":  "${BASE}/api",
		"BASE": "http://example.com",
	})

	out, err := re.resolve("URL", make(map[string]struct{}))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api/v1", out)
}

func TestExpandUnknownReference(t *testing.T) {
	re := newResolveEnv(map[string]string{})

	_, err := re.expand("${MISSING}", make(map[string]struct{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Contains(t, err.Error(), "MISSING")
}

func TestExpandCycle(t *testing.T) {
	t.Run("Direct", func(t *testing.T) {
		re := newResolveEnv(map[string]string{
			"A": "${B}",
			"B": "${A}",
		})
		_, err := re.resolve("A", make(map[string]struct{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParse)
		assert.Contains(t, err.Error(), "circular")
	})

	t.Run("Self", func(t *testing.T) {
		re := newResolveEnv(map[string]string{"A": "prefix-${A}"})
		_, err := re.resolve("A", make(map[string]struct{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("Transitive", func(t *testing.T) {
		re := newResolveEnv(map[string]string{
			"A": "${B}",
			"B": "${C}",
			"C": "${A}",
		})
		_, err := re.resolve("A", make(map[string]struct{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestExpandResolvedTakesPrecedence(t *testing.T) {
	re := &resolveEnv{
		raw:      map[string]string{},
		resolved: map[string]string{"NAME": "finalized"},
	}

	out, err := re.expand("hello ${NAME}", make(map[string]struct{}))
	require.NoError(t, err)
	assert.Equal(t, "hello finalized", out)
}

func TestExpandUnterminatedReference(t *testing.T) {
	re := newResolveEnv(map[string]string{})

	out, err := re.expand("price ${ incomplete", make(map[string]struct{}))
	require.NoError(t, err)
	assert.Equal(t, "price ${ incomplete", out)
}

func TestHasReference(t *testing.T) {
	assert.True(t, hasReference("${A}"))
	assert.True(t, hasReference("x${A}y"))
	assert.False(t, hasReference("plain"))
	assert.False(t, hasReference("${unclosed"))
	assert.False(t, hasReference("$A"))
}
