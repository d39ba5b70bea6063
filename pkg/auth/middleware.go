package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/autoflex-io/inventory/pkg/httpx"
	"github.com/autoflex-io/inventory/pkg/logger"
)

const (
	// APIKeyHeader carries the machine-client API key.
	APIKeyHeader     = "X-API-Key"
	apiKeyQueryParam = "apiKey"

	apiKeyOperator = "api-client"
)

// RequireAuth is a chi middleware that accepts either an API key (X-API-Key
// header or apiKey query parameter) or a login session cookie, and injects
// the resulting Operator into the request context.
// Returns 401 Unauthorized when neither is valid. An empty apiKey disables
// API key access.
//
// After this middleware, handlers can safely call auth.OperatorFromCtx(r.Context()).
func RequireAuth(apiKey string, store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := presentedKey(r); key != "" {
				if !validKey(apiKey, key) {
					log.WarnContext(r.Context(), "invalid api key", "remote_addr", r.RemoteAddr)
					unauthorized(w)
					return
				}
				ctx := WithOperator(r.Context(), Operator{Name: apiKeyOperator, Method: MethodAPIKey})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			op, err := SessionOperator(r, store)
			if err != nil {
				if !errors.Is(err, ErrNoSessionOperator) {
					log.WarnContext(r.Context(), "session lookup failed", "error", err)
				}
				unauthorized(w)
				return
			}

			ctx := WithOperator(r.Context(), op)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	return r.URL.Query().Get(apiKeyQueryParam)
}

func validKey(expected, presented string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

func unauthorized(w http.ResponseWriter) {
	httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
}
