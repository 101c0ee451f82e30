package middleware

import "net/http"

// RequireRole gates a route to actors whose role is in the allow list.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				writeError(w, r, http.StatusForbidden, "forbidden", "Permission denied", map[string]string{"role": actor.Role})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
