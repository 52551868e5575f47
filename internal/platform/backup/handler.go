package backup

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mediconsult/mediconsult/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/backup", auth.RequireRole(auth.RoleAdmin))
	grp.GET("/users", h.ExportUsers)
	grp.POST("/users", h.ImportUsers)
}

// ExportUsers streams the directory as a CSV attachment.
func (h *Handler) ExportUsers(c echo.Context) error {
	filename := fmt.Sprintf("users-%s.csv", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)

	if _, err := h.svc.Export(c.Request().Context(), c.Response()); err != nil {
		return err
	}
	return nil
}

// ImportUsers accepts a CSV body and reports the load counts.
func (h *Handler) ImportUsers(c echo.Context) error {
	res, err := h.svc.Import(c.Request().Context(), c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
