package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/showlinehq/showline-backend/api/responses"
	"github.com/showlinehq/showline-backend/pkg/config"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

// RequireAdminToken gates operator routes on the shared admin token.
// Routes behind it are unavailable when the token is not configured.
func RequireAdminToken(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access not configured"))
				return
			}

			presented := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.Token)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin token invalid"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
