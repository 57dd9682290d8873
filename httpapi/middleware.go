package httpapi

import (
	"context"
	"net/http"
	"strings"

	"agencycrm/activity"
	"agencycrm/auth"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the authenticated actor stored by AuthContext.
func ActorFromContext(ctx context.Context) (activity.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(activity.Actor)
	return actor, ok
}

// WithActor stores an actor on the context. Exposed for handler tests.
func WithActor(ctx context.Context, actor activity.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// TokenVerifier is the slice of auth.Service the middleware needs.
type TokenVerifier interface {
	VerifyToken(token string) (string, auth.Role, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

// AuthContext authenticates requests via Authorization: Bearer tokens and
// places the resolved actor on the request context. Requests without a valid
// token are rejected with 401.
func AuthContext(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, role, err := verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			user, err := verifier.GetUserByID(r.Context(), userID)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			}

			actor := activity.Actor{
				ID:        user.ID,
				Role:      role,
				FirstName: user.FirstName,
				LastName:  user.LastName,
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
