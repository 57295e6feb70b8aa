package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	secret = []byte("super-secret")
	issued = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func TestNewTokenAndParse_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subject string
		email   string
	}{
		{"42", "alice@example.com"},
		{"user-123", "bob@mail.example.org"},
		{"1", ""},
	}

	for _, tt := range tests {
		tok, err := NewToken(tt.subject, tt.email, secret, DefaultTTL, issued)
		require.NoError(t, err)

		claims, err := ParseToken(tok, secret, issued.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, claims)

		assert.Equal(t, tt.subject, claims.Subject)
		assert.Equal(t, tt.email, claims.Email)
		assert.Equal(t, issued.Unix(), claims.IssuedAt.Unix())
		assert.Equal(t, issued.Add(DefaultTTL).Unix(), claims.ExpiresAt.Unix())
	}
}

func TestParseToken_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	tok, err := NewToken("42", "alice@example.com", secret, DefaultTTL, issued)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret, issued.Add(DefaultTTL-time.Second))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)

	claims, err = ParseToken(tok, secret, issued.Add(DefaultTTL))
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, claims)

	claims, err = ParseToken(tok, secret, issued.Add(DefaultTTL+time.Second))
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, claims)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewToken("42", "alice@example.com", []byte("right-secret"), time.Hour, issued)
	require.NoError(t, err)

	claims, err := ParseToken(tok, []byte("wrong-secret"), issued)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Nil(t, claims)
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		claims, err := ParseToken(tok, secret, issued)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
		assert.Nil(t, claims)
	}
}

func TestParseToken_SingleCharacterTamper(t *testing.T) {
	t.Parallel()

	tok, err := NewToken("42", "alice@example.com", secret, DefaultTTL, issued)
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		tampered := tok[:i] + string(replacement) + tok[i+1:]

		claims, err := ParseToken(tampered, secret, issued)
		assert.Error(t, err, "position %d", i)
		assert.Nil(t, claims, "position %d", i)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(hs512, secret, issued)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(none, secret, issued)
	assert.Error(t, err)
}

func TestParseToken_RequiresExpiryAndSubject(t *testing.T) {
	t.Parallel()

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(noExp, secret, issued)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))},
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(noSub, secret, issued)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewToken_CompactForm(t *testing.T) {
	t.Parallel()

	tok, err := NewToken("42", "alice@example.com", secret, time.Hour, issued)
	require.NoError(t, err)

	assert.Len(t, strings.Split(tok, "."), 3)
}
