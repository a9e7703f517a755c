// ABOUTME: HTTP middleware enforcing the shared-secret API key check.
// ABOUTME: No configured secret means allow-all; this is the documented local-dev default.

package authgate

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// HeaderAPIKey is the request header carrying the shared secret.
const HeaderAPIKey = "X-API-Key"

// Gate holds the process-wide shared secret. The secret is read once at
// startup and constant for the process lifetime; there is no rotation and
// no multi-key support.
type Gate struct {
	secret string
	logger *slog.Logger
}

// New creates a Gate. An empty secret disables the check entirely — callers
// deploying publicly must configure one. Pass nil logger for default.
func New(secret string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		secret: secret,
		logger: logger.With("component", "authgate"),
	}
	if secret == "" {
		g.logger.Warn("api auth disabled: no shared secret configured, all requests allowed")
	}
	return g
}

// Enabled reports whether a shared secret is configured.
func (g *Gate) Enabled() bool {
	return g.secret != ""
}

// Authorize checks the presented key against the configured secret.
// With no secret configured every request is allowed.
func (g *Gate) Authorize(presented string) bool {
	if g.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(g.secret)) == 1
}

// Middleware wraps an HTTP handler with the shared-secret check. Denied
// requests get a 401 and never reach the wrapped handler.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Authorize(r.Header.Get(HeaderAPIKey)) {
			g.logger.Debug("request denied",
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
			)
			http.Error(w, `{"error":"invalid or missing api key"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
