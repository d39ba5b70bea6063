package auth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/autoflex-io/inventory/pkg/httpx"
	"github.com/autoflex-io/inventory/pkg/logger"
	pkgvalidator "github.com/autoflex-io/inventory/pkg/validator"
)

// Credentials are the operator login credentials configured for the service.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) match(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1
	return c.Username != "" && userOK && passOK
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100" example:"admin"`
	Password string `json:"password" validate:"required,max=200" example:"admin123"`
} // @name LoginRequest

// OperatorResponse describes the authenticated caller.
type OperatorResponse struct {
	Username   string     `json:"username"               example:"admin"`
	Method     string     `json:"method"                 example:"session"`
	LoggedInAt *time.Time `json:"logged_in_at,omitempty" example:"2024-05-01T08:00:00Z"`
} // @name OperatorResponse

func newOperatorResponse(op Operator) OperatorResponse {
	resp := OperatorResponse{Username: op.Name, Method: op.Method}
	if !op.Since.IsZero() {
		since := op.Since
		resp.LoggedInAt = &since
	}
	return resp
}

// LoginHandler handles POST /api/auth/login.
//
//	@Summary		Log in
//	@Description	Starts an operator session stored in Redis; the session cookie authenticates later calls
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	OperatorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		422		{object}	httpx.ErrorResponse
//	@Router			/auth/login [post]
func LoginHandler(store sessions.Store, creds Credentials, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := pkgvalidator.ValidateRequest[LoginRequest](w, r)
		if !ok {
			return
		}

		if !creds.match(req.Username, req.Password) {
			log.WarnContext(r.Context(), "login failed", "username", req.Username)
			httpx.JSONError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		op, err := StartSession(w, r, store, req.Username)
		if err != nil {
			log.ErrorContext(r.Context(), "save session failed", "error", err)
			httpx.JSONError(w, http.StatusInternalServerError, "could not start session")
			return
		}

		log.InfoContext(r.Context(), "operator logged in", "username", req.Username)
		httpx.JSON(w, http.StatusOK, newOperatorResponse(op))
	}
}

// LogoutHandler handles POST /api/auth/logout.
//
//	@Summary	Log out
//	@Tags		auth
//	@Success	204
//	@Router		/auth/logout [post]
func LogoutHandler(store sessions.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := EndSession(w, r, store); err != nil {
			log.ErrorContext(r.Context(), "delete session failed", "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler handles GET /api/auth/me. Must run behind RequireAuth.
//
//	@Summary	Current operator
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	OperatorResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/auth/me [get]
func MeHandler(w http.ResponseWriter, r *http.Request) {
	op, err := OperatorFromCtx(r.Context())
	if err != nil {
		unauthorized(w)
		return
	}
	httpx.JSON(w, http.StatusOK, newOperatorResponse(op))
}
