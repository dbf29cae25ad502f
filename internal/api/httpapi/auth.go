package httpapi

import "net/http"

// requireToken guards mutating routes with a bearer token. With no token
// configured every request passes, which is the single-user local setup.
func (s *Service) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r)
	}
}
