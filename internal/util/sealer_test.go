package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("test-key")
	require.NoError(t, err)

	sealed, err := s.Seal("gho_secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1."))
	assert.NotContains(t, sealed, "gho_secret")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "gho_secret", opened)
}

func TestSealerNonceIsRandom(t *testing.T) {
	s, err := NewSealer("test-key")
	require.NoError(t, err)

	a, err := s.Seal("same")
	require.NoError(t, err)
	b, err := s.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealerRejectsForeignKey(t *testing.T) {
	s1, err := NewSealer("key-one")
	require.NoError(t, err)
	s2, err := NewSealer("key-two")
	require.NoError(t, err)

	sealed, err := s1.Seal("token")
	require.NoError(t, err)

	_, err = s2.Open(sealed)
	assert.Error(t, err)
}

func TestSealerMalformed(t *testing.T) {
	s, err := NewSealer("test-key")
	require.NoError(t, err)

	for _, in := range []string{"", "plain", "v1.", "v1.!!!", "v1.AAAA"} {
		_, err := s.Open(in)
		assert.ErrorIs(t, err, ErrMalformedToken, in)
	}
}

func TestNewSealerEmptyKey(t *testing.T) {
	_, err := NewSealer("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
