package middleware

import (
	"context"
	"net/http"
	"strings"

	"example.com/microblog/internal/i18n"
)

type contextKey string

const AccountCtxKey = contextKey("account_id")

// TokenVerifier resolves a session token to the account it was issued for.
type TokenVerifier interface {
	AccountFromToken(token string) (int64, error)
}

// JWTAuth rejects requests without a valid Bearer session token and stores
// the account id in the request context.
func JWTAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, r, http.StatusUnauthorized, i18n.MsgUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, r, http.StatusUnauthorized, i18n.MsgUnauthorized)
				return
			}

			accountID, err := v.AccountFromToken(parts[1])
			if err != nil {
				logg.Debug("http/auth", "Rejected token: "+err.Error())
				writeError(w, r, http.StatusUnauthorized, i18n.MsgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, AccountCtxKey, id)
}

// Extracting account_id in handler
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(AccountCtxKey).(int64)
	return id, ok
}
