package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/inkpress/internal/api/dto"
	"github.com/hugh/inkpress/internal/api/middleware"
	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/tenant"
)

type TenantHandler struct {
	tenantService *tenant.Service
}

func NewTenantHandler(tenantService *tenant.Service) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Me returns the Tenant Admin populated by RequireRole.
func (h *TenantHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		respond.Error(w, r, apperr.ErrUnauthorized)
		return
	}

	respond.JSON(w, http.StatusOK, dto.NewUserView(user))
}

func (h *TenantHandler) GetThemeSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	settings, err := h.tenantService.ThemeSettings(r.Context(), tenantID, middleware.GetUserID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.ThemeSettingsResponse{ThemeSettings: settings})
}

func (h *TenantHandler) UpdateThemeSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respond.Error(w, r, apperr.Validation("Invalid request body", nil))
		return
	}
	patch, err := dto.DecodeThemePatch(body)
	if err != nil {
		respond.Error(w, r, apperr.Validation("Theme settings must be a non-empty object", nil))
		return
	}

	settings, err := h.tenantService.UpdateThemeSettings(r.Context(), tenantID, middleware.GetUserID(r.Context()), patch)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.ThemeSettingsResponse{ThemeSettings: settings})
}

func (h *TenantHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	t, err := h.tenantService.UpdateProfile(r.Context(), tenantID, middleware.GetUserID(r.Context()), req.Input())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.NewTenantView(t))
}

// BySlug is public.
func (h *TenantHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tenantService.BySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, summary)
}

func tenantIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 0)
	if err != nil || id == 0 {
		respond.Error(w, r, apperr.Validation("Invalid tenant ID", map[string]string{"id": "Must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}
