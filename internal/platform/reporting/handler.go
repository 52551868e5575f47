package reporting

import (
	"net/http"

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
	reports := api.Group("/reports", auth.RequirePermission("reports", "read"))
	reports.GET("/dashboard", h.DashboardSummary)
	reports.GET("/alerts", h.SystemAlerts)

	// Full aggregations need the generate action on top of read.
	gen := auth.RequirePermission("reports", "generate")
	reports.GET("/appointments-by-type", h.AppointmentsByType, gen)
	reports.GET("/risk-levels", h.ConsultationsByRiskLevel, gen)
	reports.GET("/by-program", h.ConsultationsByProgram, gen)
	reports.GET("/monthly-trend", h.MonthlyTrend, gen)
	reports.GET("/popular-hours", h.BusiestHours, gen)
	reports.GET("/professional-performance", h.ProfessionalPerformance, gen)
}

func (h *Handler) AppointmentsByType(c echo.Context) error {
	out, err := h.svc.AppointmentsByType(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ConsultationsByRiskLevel(c echo.Context) error {
	out, err := h.svc.ConsultationsByRiskLevel(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ConsultationsByProgram(c echo.Context) error {
	out, err := h.svc.ConsultationsByProgram(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) MonthlyTrend(c echo.Context) error {
	out, err := h.svc.MonthlyTrend(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) BusiestHours(c echo.Context) error {
	out, err := h.svc.BusiestHours(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ProfessionalPerformance(c echo.Context) error {
	out, err := h.svc.ProfessionalPerformance(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DashboardSummary(c echo.Context) error {
	out, err := h.svc.DashboardSummary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) SystemAlerts(c echo.Context) error {
	out, err := h.svc.SystemAlerts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}
