package middleware

import (
	"context"
	"net/http"

	"github.com/kozaktomas/securebase/internal/auth"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	userIDContextKey  contextKey = "user_id"
)

// TokenVerifier validates a bearer JWT and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth is middleware that requires a valid session or JWT.
// tokens may be nil to accept sessions only.
func RequireAuth(sm *SessionManager, tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if session := sm.GetSessionFromRequest(r); session != nil {
				ctx = SetSessionInContext(ctx, session)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if token, ok := bearerToken(r); ok && tokens != nil && auth.LooksLikeJWT(token) {
				if userID, err := tokens.Verify(token); err == nil && userID != "" {
					next.ServeHTTP(w, r.WithContext(SetUserIDInContext(ctx, userID)))
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}

// GetSessionFromContext retrieves the session from the request context.
// It is nil for JWT-authenticated requests.
func GetSessionFromContext(ctx context.Context) *Session {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserIDFromContext returns the authenticated user's ID, or "" if unauthenticated.
func GetUserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}

// SetSessionInContext adds a session and its user ID to the context.
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, session)
	return context.WithValue(ctx, userIDContextKey, session.UserID)
}

// SetUserIDInContext marks the context as authenticated for userID.
func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
