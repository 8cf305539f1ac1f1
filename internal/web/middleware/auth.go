package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// BearerToken guards a handler with a static bearer token, as used for the
// metrics endpoint. An empty token disables the check.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got == "" {
				slog.Warn("auth: missing bearer token", "path", r.URL.Path, "ip", ClientIP(r))
				w.Header().Set("WWW-Authenticate", `Bearer realm="metrics"`)
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				slog.Warn("auth: invalid bearer token", "path", r.URL.Path, "ip", ClientIP(r))
				http.Error(w, "invalid bearer token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
