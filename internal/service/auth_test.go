package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

func TestNewAuthService(t *testing.T) {
	_, err := NewAuthService("", time.Hour)

	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestAuthService_Token(t *testing.T) {
	t.Run("Generated token resolves to the same identity", func(t *testing.T) {
		// Given: an auth service
		auth, err := NewAuthService("secret", time.Hour)
		require.NoError(t, err)

		// When: a token is generated and parsed back
		token, err := auth.GenerateToken("p1")
		require.NoError(t, err)

		identity, err := auth.ParseToken(token)

		// Then: the identity is recovered
		require.NoError(t, err)
		assert.Equal(t, entity.Identity("p1"), identity)
	})

	t.Run("Token signed with another key is rejected", func(t *testing.T) {
		issuer, err := NewAuthService("secret", time.Hour)
		require.NoError(t, err)
		verifier, err := NewAuthService("other", time.Hour)
		require.NoError(t, err)

		token, err := issuer.GenerateToken("p1")
		require.NoError(t, err)

		_, err = verifier.ParseToken(token)

		require.ErrorIs(t, err, apperror.ErrInvalidToken)
	})

	t.Run("Expired token is rejected", func(t *testing.T) {
		// Given: a token issued two hours ago with a one hour ttl
		auth, err := NewAuthService("secret", time.Hour)
		require.NoError(t, err)

		impl := auth.(*authServiceImpl)
		impl.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := auth.GenerateToken("p1")
		require.NoError(t, err)

		// When: it is parsed now
		impl.now = time.Now
		_, err = auth.ParseToken(token)

		// Then: ErrInvalidToken is returned
		require.ErrorIs(t, err, apperror.ErrInvalidToken)
	})

	t.Run("Garbage is rejected", func(t *testing.T) {
		auth, err := NewAuthService("secret", time.Hour)
		require.NoError(t, err)

		_, err = auth.ParseToken("not-a-token")

		require.ErrorIs(t, err, apperror.ErrInvalidToken)
	})

	t.Run("Empty identity cannot be issued", func(t *testing.T) {
		auth, err := NewAuthService("secret", time.Hour)
		require.NoError(t, err)

		_, err = auth.GenerateToken("")

		require.ErrorIs(t, err, apperror.ErrInvalidToken)
	})
}
