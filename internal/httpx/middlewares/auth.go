// Package middlewares holds the HTTP middleware of the order service.
package middlewares

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RequireAuth resolves the caller's identity by forwarding the bearer token
// to the auth service. Token validation never happens locally — the auth
// service is the single authority on who the caller is.
//
// On success the identity and the raw token are stored on the request
// context; the token is what gets passed to every downstream gateway call.
func RequireAuth(authBaseURL string) func(http.Handler) http.Handler {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if header == "" || token == header {
				unauthorized(w, "missing bearer token")
				return
			}

			req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, authBaseURL+"/api/users/me", nil)
			if err != nil {
				unauthorized(w, "auth lookup failed")
				return
			}
			req.Header.Set("Authorization", header)

			resp, err := client.Do(req)
			if err != nil {
				slog.WarnContext(r.Context(), "auth service call failed", "error", err)
				unauthorized(w, "auth lookup failed")
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				unauthorized(w, "invalid token")
				return
			}

			var id Identity
			if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
				unauthorized(w, "invalid auth response")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id, token)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": msg})
}
