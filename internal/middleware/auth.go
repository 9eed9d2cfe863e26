package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/lifeos/internal/auth"
)

// Authenticate attaches a session to requests that carry a valid access
// token in the Authorization header or the access_token query parameter
// (browsers cannot set headers on websocket upgrades). Requests without a
// token run local-only unless defaultToken is set, in which case it is used.
// A token that fails verification is rejected with 401.
func Authenticate(verifier *auth.Verifier, defaultToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil || !verifier.Configured() {
				next.ServeHTTP(w, r)
				return
			}

			token := requestToken(r)
			if token == "" {
				token = defaultToken
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("rejected access token", "path", r.URL.Path, "remote", RealIP(r), "error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession rejects requests without a session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAuthenticated(r.Context()) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
