package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediconsult/mediconsult/internal/domain/identity"
	"github.com/mediconsult/mediconsult/internal/platform/auth"
	"github.com/mediconsult/mediconsult/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListProfiles)
	api.POST("/patients", h.CompleteProfile)
	api.GET("/patients/:id", h.GetProfile)
	api.PUT("/patients/:id", h.UpdateProfile)
}

// canRead allows professionals and admins to read any profile and patients to
// read their own.
func canRead(p *auth.Principal, owner uuid.UUID) bool {
	if auth.HasPermission(p, "patients", "read") || auth.HasPermission(p, "users", "read") {
		return true
	}
	return p != nil && p.ID == owner && auth.HasPermission(p, "profile", "read")
}

// canWrite allows admins to edit any profile and patients to edit their own.
func canWrite(p *auth.Principal, owner uuid.UUID) bool {
	if auth.HasPermission(p, "users", "update") {
		return true
	}
	return p != nil && p.ID == owner && auth.HasPermission(p, "profile", "update")
}

// CompleteProfile creates the caller's own profile; an admin may pass an
// explicit user_id to complete a profile on a patient's behalf.
func (h *Handler) CompleteProfile(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}

	var in struct {
		UserID string `json:"user_id"`
		ProfileInput
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	target := p.ID
	if in.UserID != "" {
		parsed, err := uuid.Parse(in.UserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		target = parsed
	}
	if !canWrite(p, target) {
		return echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}

	profile, err := h.svc.CompleteProfile(c.Request().Context(), target, in.ProfileInput)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyExists):
			return echo.NewHTTPError(http.StatusConflict, "profile already completed")
		case errors.Is(err, ErrNotPatient):
			return echo.NewHTTPError(http.StatusBadRequest, "user is not a patient")
		case errors.Is(err, identity.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *Handler) GetProfile(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !canRead(p, id) {
		return echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}

	profile, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !canWrite(p, id) {
		return echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}

	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	profile, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) ListProfiles(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if !auth.HasPermission(p, "patients", "read") && !auth.HasPermission(p, "users", "read") {
		return echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}

	pg := pagination.FromContext(c)
	profiles, total, err := h.svc.ListProfiles(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(profiles, total, pg.Limit, pg.Offset))
}
