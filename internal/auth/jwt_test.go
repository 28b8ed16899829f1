package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	const secret = "test-secret"

	t.Run("valid", func(t *testing.T) {
		tok, err := GenerateToken(secret, 42, "ana@example.com", "engineer", time.Hour)
		require.NoError(t, err)

		claims, err := ValidateToken(secret, tok)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "ana@example.com", claims.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := GenerateToken("other", 42, "", "", time.Hour)
		require.NoError(t, err)

		_, err = ValidateToken(secret, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := GenerateToken(secret, 42, "", "", -time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(secret, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		tok, err := GenerateToken(secret, 0, "", "", time.Hour)
		require.NoError(t, err)

		_, err = ValidateToken(secret, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: 1})
		s, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = ValidateToken(secret, s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken(secret, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
