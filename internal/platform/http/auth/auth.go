// Package auth provides basic authentication middleware for the status API.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/api"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/appctx"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

const realm = `Basic realm="pizzabot-go", charset="UTF-8"`

// BasicAuthConfig configures the basic auth gate.
type BasicAuthConfig struct {
	// Username is the single operator account.
	Username string

	// PasswordHash is the bcrypt hash of the operator password.
	PasswordHash string

	// RequireAuth returns true if the given path requires authentication.
	// Constructed by the server at router setup time using IsAuthRequired().
	RequireAuth func(path string) bool

	// Log is the base logger for auth-related warnings.
	Log *slog.Logger
}

// Enabled reports whether credentials are configured.
func (c BasicAuthConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// NewBasicAuth returns a middleware that enforces HTTP basic authentication.
// If RequireAuth returns false for the request path, the request passes
// through without inspecting credentials.
func NewBasicAuth(cfg BasicAuthConfig) func(http.Handler) http.Handler {
	cfg.Log = logutil.NoopIfNil(cfg.Log)
	wantUser := []byte(cfg.Username)
	hash := []byte(cfg.PasswordHash)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.RequireAuth == nil || !cfg.RequireAuth(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, "authentication required")
				return
			}

			// Both checks always run.
			userOK := subtle.ConstantTimeCompare([]byte(user), wantUser) == 1
			passErr := bcrypt.CompareHashAndPassword(hash, []byte(pass))
			if !userOK || passErr != nil {
				logger, ok := appctx.LoggerFromContext(r.Context())
				if !ok {
					logger = cfg.Log
				}
				logger.Warn("rejected status API credentials", "username", user)
				unauthorized(w, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(appctx.WithOperator(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", realm)
	api.WriteUnauthorized(w, api.ReasonUnauthenticated, message)
}
