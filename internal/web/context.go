package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/viewstate"
)

// session makes sure every request carries a session id. The id keys the
// view state store; it is refreshed on each response so it expires
// together with the stored state.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := s.cfg.ViewState.CookieName

		var id string
		if c, err := r.Cookie(name); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.cfg.ViewState.TTL.Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.Security.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(logging.WithSession(r.Context(), id)))
	})
}

// viewKey returns the view state key of the session in ctx for tableID.
func viewKey(ctx context.Context, tableID string) string {
	return viewstate.Key(logging.SessionFromContext(ctx), tableID)
}
