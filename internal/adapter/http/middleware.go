package adapthttp

import (
	"net/http"

	"earnlog/internal/app"
)

// requireSession rejects requests while no identity is signed in. The
// process holds at most one session; record operations are unavailable
// without it.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.sessions.Current(); err != nil {
			writeError(w, http.StatusUnauthorized, app.ErrNoActiveSession)
			return
		}
		next.ServeHTTP(w, r)
	})
}
