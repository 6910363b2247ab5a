package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"example.com/microblog/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestToken_RoundTrip(t *testing.T) {
	tok, err := GenerateToken(42, PurposeSession, secret, time.Hour)
	require.NoError(t, err)

	id, err := ParseToken(tok, PurposeSession, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestToken_Rejections(t *testing.T) {
	session, err := GenerateToken(1, PurposeSession, secret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(1, PurposeSession, secret, -time.Minute)
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: 1, Purpose: PurposeSession})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		purpose string
		key     []byte
	}{
		{"wrong purpose", session, PurposeResetPassword, secret},
		{"wrong key", session, PurposeSession, []byte("other")},
		{"expired", expired, PurposeSession, secret},
		{"garbage", "not-a-token", PurposeSession, secret},
		{"alg none", unsigned, PurposeSession, secret},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.purpose, tc.key)
			assert.True(t, errors.Is(err, common.ErrInvalidToken), "got %v", err)
		})
	}
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=2$"))

	ok, err := CheckPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong horse")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")
}

func TestPassword_InvalidHash(t *testing.T) {
	for _, enc := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=19$m=x$a$b"} {
		_, err := CheckPassword(enc, "pw")
		assert.ErrorIs(t, err, ErrInvalidHash, enc)
	}
}
