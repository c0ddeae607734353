package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// CronAuth gates worker and admin routes behind a shared secret carried in
// the x-cron-secret header. An empty configured secret disables the check.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get("x-cron-secret")
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"ok":    false,
						"error": "unauthorized",
					})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
