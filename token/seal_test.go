package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer(t *testing.T) {
	s, err := newSealer(testKey)
	require.NoError(t, err)

	sealed := s.seal("gho_secret", "octocat", 1_700_000_000)
	assert.NotContains(t, sealed, "gho_secret")

	t.Run("opens with matching binding", func(t *testing.T) {
		got, err := s.open(sealed, "octocat", 1_700_000_000)
		require.NoError(t, err)
		assert.Equal(t, "gho_secret", got)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, sealed, s.seal("gho_secret", "octocat", 1_700_000_000))
		assert.NotEqual(t, sealed, s.seal("gho_secret", "octocat", 1_700_000_001))
	})

	t.Run("wrong subject", func(t *testing.T) {
		_, err := s.open(sealed, "hubot", 1_700_000_000)
		assert.Error(t, err)
	})

	t.Run("wrong issue time", func(t *testing.T) {
		_, err := s.open(sealed, "octocat", 1_700_000_001)
		assert.Error(t, err)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := newSealer([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(t, err)
		_, err = other.open(sealed, "octocat", 1_700_000_000)
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := s.open(sealed[:10], "octocat", 1_700_000_000)
		assert.Error(t, err)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := s.open("***", "octocat", 1_700_000_000)
		assert.Error(t, err)
	})
}
