package web

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Authenticate validates the bearer token and injects the user id into the request context.
// With allowQuery, a "token" query parameter is accepted too: browsers can't set
// headers on a websocket upgrade.
func Authenticate(log *slog.Logger, tokens *auth.TokenManager, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok && allowQuery {
				token = r.URL.Query().Get("token")
				ok = token != ""
			}
			if !ok {
				writeError(log, w, fmt.Errorf("%w: authorization token is missing", errors.ErrUnauthenticated))
				return
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				writeError(log, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
		})
	}
}

func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
