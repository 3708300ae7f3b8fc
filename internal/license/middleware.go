package license

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Gate rejects API calls with 403 while enforce is set and the license is
// invalid. The license endpoints themselves stay reachable.
func Gate(cache *Cache, enforce bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enforce {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/api/license") || cache.Valid() {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "license_invalid"})
		})
	}
}
