package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

const bearerPrefix = "Bearer "

type authService interface {
	ParseToken(token string) (entity.Identity, error)
}

type identityKey struct{}

func withIdentity(ctx context.Context, identity entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller verified by the auth middleware.
func IdentityFrom(ctx context.Context) (entity.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(entity.Identity)
	return identity, ok && identity != ""
}

// authMiddleware - resolves the bearer token into an identity, the engine trusts it from here on.
func authMiddleware(logger *slog.Logger, auth authService) func(http.Handler) http.Handler {
	log := logger.With("method", "authMiddleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			identity, err := auth.ParseToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				log.Debug("rejected token", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}
