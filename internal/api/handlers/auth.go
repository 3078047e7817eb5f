package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hugh/inkpress/internal/api/dto"
	"github.com/hugh/inkpress/internal/api/middleware"
	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/auth"
)

const maxBodyBytes = 1 << 20

type AuthHandler struct {
	authService  auth.Authenticator
	cookieSecure bool
	cookieMaxAge time.Duration
}

func NewAuthHandler(authService auth.Authenticator, cookieSecure bool, cookieMaxAge time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieSecure: cookieSecure,
		cookieMaxAge: cookieMaxAge,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req.Input())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	respond.JSON(w, http.StatusCreated, dto.RegisterResponse{
		JWT:     result.Token,
		User:    dto.NewUserView(result.User),
		Tenant:  dto.NewTenantView(result.Tenant),
		Message: result.Message,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Input())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	respond.JSON(w, http.StatusOK, dto.LoginResponse{
		JWT:  result.Token,
		User: dto.NewUserView(result.User),
		Role: dto.RoleName(result.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	respond.JSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// Me returns the caller regardless of role.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.NewUserView(user))
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookieMaxAge.Seconds()),
	})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, r, apperr.Validation("Invalid request body", nil))
		return false
	}
	return true
}
