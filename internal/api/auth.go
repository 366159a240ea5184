package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the slice of the Firebase Auth client the
// middleware needs; *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type callerKey struct{}

// RequireAdmin verifies the bearer ID token and requires the admin
// custom claim. Every send endpoint sits behind it.
func RequireAdmin(verifier IDTokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "AuthMiddleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			idToken := strings.TrimPrefix(authHeader, bearerPrefix)
			decoded, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				logger.Warn("token verification failed", "err", err)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if isAdmin, _ := decoded.Claims["admin"].(bool); !isAdmin {
				logger.Info("access denied, no admin claim", "uid", decoded.UID)
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, decoded.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerUID returns the authenticated admin's uid, if any.
func CallerUID(ctx context.Context) string {
	uid, _ := ctx.Value(callerKey{}).(string)
	return uid
}
