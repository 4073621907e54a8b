package handler

import (
	"errors"
	"net/http"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/apierr"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/middleware"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/request"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/response"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/metrics"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
)

// AuthHandler handles account, session and two-factor endpoints
type AuthHandler struct {
	authService *auth.Service
	metrics     *metrics.Metrics
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	userID, err := h.authService.Register(r.Context(), req.Username, req.Password, toRecoveryAnswers(req.SecurityQuestions))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RegisterResponse{Success: true, UserID: string(userID)})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.metrics.Login("invalid")
		apierr.WriteError(w, err)
		return
	case err != nil:
		h.metrics.Login("error")
		apierr.WriteError(w, err)
		return
	}
	h.metrics.Login("ok")

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, response.LoginResponseFromResult(result))
}

// Logout handles POST /api/v1/auth/logout. Every session of the caller is
// revoked, not only the current one.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.authService.Logout(r.Context(), identity.UserID); err != nil {
		apierr.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	response.JSON(w, http.StatusOK, response.OK)
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	response.JSON(w, http.StatusOK, response.SessionResponse{
		Success: true,
		User:    response.UserFromIdentity(identity),
	})
}

// EnableTOTP handles POST /api/v1/auth/totp/enable
func (h *AuthHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	enrollment, err := h.authService.EnableTOTP(r.Context(), identity.UserID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TOTPEnrollmentFromModel(enrollment))
}

// VerifyTOTP handles POST /api/v1/auth/totp/verify. A wrong code is a
// successful request with success=false.
func (h *AuthHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.VerifyTOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("code is required"))
		return
	}

	ok, err := h.authService.VerifyTOTP(r.Context(), identity.UserID, req.Code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Success{Success: ok})
}

// VerifyRecovery handles POST /api/v1/auth/recovery/verify
func (h *AuthHandler) VerifyRecovery(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyRecoveryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}

	ok, err := h.authService.VerifyRecoveryAnswers(r.Context(), req.Username, toRecoveryAnswers(req.Answers))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Success{Success: ok})
}

func toRecoveryAnswers(in []request.RecoveryAnswer) []auth.RecoveryAnswer {
	out := make([]auth.RecoveryAnswer, len(in))
	for i, a := range in {
		out[i] = auth.RecoveryAnswer{Question: a.Question, Answer: a.Answer}
	}
	return out
}
