package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenSealerRoundTrip(t *testing.T) {
	s, err := newTokenSealer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	sealed, err := s.seal("1//refresh", "google-sub-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, sealedTokenVersion))
	require.NotContains(t, sealed, "refresh")

	plain, err := s.open(sealed, "google-sub-1")
	require.NoError(t, err)
	require.Equal(t, "1//refresh", plain)

	_, err = s.open(sealed, "google-sub-2")
	require.Error(t, err)
}

func TestTokenSealerKeys(t *testing.T) {
	_, err := newTokenSealer("short")
	require.Error(t, err)

	encoded := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))
	_, err = newTokenSealer(encoded)
	require.NoError(t, err)
}

func TestTokenSealerEmptyAndMalformed(t *testing.T) {
	s, err := newTokenSealer("0123456789abcdef")
	require.NoError(t, err)

	sealed, err := s.seal("", "sub")
	require.NoError(t, err)
	require.Empty(t, sealed)

	_, err = s.open("plain-text", "sub")
	require.ErrorIs(t, err, errSealedToken)
	_, err = s.open(sealedTokenVersion+"AA", "sub")
	require.ErrorIs(t, err, errSealedToken)
}
