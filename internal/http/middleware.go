package http

import (
	"context"
	"net/http"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

type contextKey string

const principalKey contextKey = "principal"

// SessionVerifier maps a bearer token to the caller it identifies.
type SessionVerifier interface {
	VerifySession(token string) (core.Principal, error)
}

// requireAuth rejects requests without a valid bearer token and stores the
// principal in the request context.
func requireAuth(sessions SessionVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := sessions.VerifySession(bearerToken(r))
		if err != nil {
			writeError(w, r, "authenticate", err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, p)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, p.UserID))
		next(w, r.WithContext(ctx))
	}
}

// principalFrom returns the caller stored by requireAuth.
func principalFrom(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey).(core.Principal)
	return p, ok
}

// chain applies middlewares so the first one listed runs outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
