package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storeboost/storeboost-auth/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("hunter22")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := password.Verify("hunter22", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("hunter23", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := password.Hash("same password")
	require.NoError(t, err)
	second, err := password.Hash("same password")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestEmptyPasswordRejected(t *testing.T) {
	_, err := password.Hash("")
	require.ErrorIs(t, err, password.ErrEmptyPassword)

	_, err = password.Hash("   ")
	require.ErrorIs(t, err, password.ErrEmptyPassword)
}

func TestVerifyMalformedHash(t *testing.T) {
	_, err := password.Verify("anything", "not-a-phc-string")
	require.Error(t, err)
}
