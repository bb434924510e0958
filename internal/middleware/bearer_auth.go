package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/httputil"
	"github.com/taskhub/backend/internal/models"
)

type contextKey string

const (
	ctxAccountKey contextKey = "account"
	ctxTokenKey   contextKey = "token"
)

const unauthenticatedMessage = "Please authenticate."

// Authorizer resolves a bearer token to its account.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*models.Account, string, error)
}

// BearerAuth rejects requests without a registered session token. On success
// the account and the token are placed in the request context.
func BearerAuth(authz Authorizer, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				httputil.WriteErrorMessage(w, http.StatusUnauthorized, unauthenticatedMessage)
				return
			}

			acc, token, err := authz.Authorize(r.Context(), raw)
			if err != nil {
				if apperror.KindOf(err) == apperror.KindAuth {
					httputil.WriteErrorMessage(w, http.StatusUnauthorized, unauthenticatedMessage)
					return
				}
				httputil.WriteError(w, log, err)
				return
			}

			ctx := WithAccount(r.Context(), acc)
			ctx = WithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromCtx returns the authenticated account or nil.
func AccountFromCtx(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(ctxAccountKey).(*models.Account)
	return acc
}

// WithAccount returns a context carrying the given account.
func WithAccount(ctx context.Context, acc *models.Account) context.Context {
	return context.WithValue(ctx, ctxAccountKey, acc)
}

// TokenFromCtx returns the session token the request was authorized with.
func TokenFromCtx(ctx context.Context) string {
	tok, _ := ctx.Value(ctxTokenKey).(string)
	return tok
}

// WithToken returns a context carrying the given session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxTokenKey, token)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
