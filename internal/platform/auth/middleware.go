package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
)

// SecurityScheme is the OpenAPI security scheme name protected operations list.
const SecurityScheme = "bearerAuth"

type userContextKey struct{}

// NewAuthMiddleware verifies bearer tokens for operations that declare a
// Security requirement. The verified user is stored in the request context and
// its UID is added to the request logger as ownerId.
func NewAuthMiddleware(api huma.API, verifier Verifier) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if len(ctx.Operation().Security) == 0 {
			next(ctx)
			return
		}

		token, err := BearerToken(ctx.Header("Authorization"))
		if err != nil {
			applog.LogWarn(ctx.Context(), "auth failed: missing or invalid header",
				zap.String("reason", "no_token"))
			ctx.SetHeader("WWW-Authenticate", "Bearer")
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		user, err := verifier.Verify(ctx.Context(), token)
		if err != nil {
			applog.LogWarn(ctx.Context(), "auth failed: token verification failed",
				zap.String("reason", categorizeAuthError(err)))

			if errors.Is(err, ErrCertificateFetch) {
				ctx.SetHeader("Retry-After", "30")
				_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable,
					"authentication service temporarily unavailable")
				return
			}
			ctx.SetHeader("WWW-Authenticate", "Bearer")
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		goCtx := WithUser(ctx.Context(), user)
		goCtx = applog.WithFields(goCtx, zap.String("ownerId", user.UID))
		next(huma.WithContext(ctx, goCtx))
	}
}

func categorizeAuthError(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrUserDisabled):
		return "user_disabled"
	case errors.Is(err, ErrCertificateFetch):
		return "certificate_fetch_failed"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown"
	}
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// OwnerIDFromContext returns the UID of the authenticated user.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	user := UserFromContext(ctx)
	if user == nil || user.UID == "" {
		return "", false
	}
	return user.UID, true
}

// WithUser returns ctx carrying user. Handlers read it with UserFromContext.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}
