package middleware

import (
	"context"
	"net/http"
	"strings"

	"promptarchitect/internal/domain"
)

// SessionResolver turns a bearer token into a session. A nil session with a
// nil error means anonymous.
type SessionResolver interface {
	Current(token string) (*domain.Session, error)
}

type authKey string

const (
	sessionKey authKey = "session"
	tokenKey   authKey = "token"
)

// Session resolves the optional bearer token. Requests with a missing,
// expired or revoked token continue anonymously; handlers that need an
// identity reject them.
func Session(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), tokenKey, token)
			if s, err := resolver.Current(token); err == nil && s != nil {
				ctx = context.WithValue(ctx, sessionKey, s)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SessionFromContext returns the resolved session, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey).(*domain.Session)
	return s
}

// TokenFromContext returns the raw bearer token, valid or not.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}

// ContextWithSession is used by tests and internal callers to bind a session.
func ContextWithSession(ctx context.Context, s *domain.Session) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, s)
}
