package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Middleware rejects requests without a valid bearer token and stores the
// verified claims on the request context. Paths in Public pass through.
type Middleware struct {
	Config Config
	Public map[string]bool
}

// NewMiddleware builds the middleware. Liveness and metrics probes are always
// public; extra paths may be added.
func NewMiddleware(cfg Config, publicPaths ...string) Middleware {
	public := map[string]bool{"/healthz": true, "/metrics": true}
	for _, p := range publicPaths {
		public[p] = true
	}
	return Middleware{Config: cfg, Public: public}
}

// Wrap guards next. CORS preflights are never challenged.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || m.Public[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := Parse(bearerToken(r.Header.Get("Authorization")), m.Config)
		if err != nil {
			challenge(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// bearerToken extracts the credential from an Authorization header value; any
// other scheme yields an empty string.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func challenge(w http.ResponseWriter, err error) {
	detail := "invalid bearer token"
	if errors.Is(err, ErrMissingToken) {
		detail = "missing bearer token"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="lazywalker"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "detail": detail})
}
