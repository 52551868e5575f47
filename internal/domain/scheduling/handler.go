package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	appts := api.Group("/appointments", auth.RequirePermission("appointments", "read"))
	appts.GET("", h.ListAppointments)
	appts.GET("/:id", h.GetAppointment)
	appts.POST("", h.CreateAppointment, auth.RequirePermission("appointments", "create"))
	appts.PATCH("/:id/status", h.UpdateAppointmentStatus, auth.RequireRole(auth.RoleAdmin))
	appts.POST("/:id/consultation", h.RecordConsultation, auth.RequirePermission("consultations", "create"))

	consults := api.Group("/consultations", auth.RequirePermission("consultations", "read"))
	consults.GET("", h.ListConsultations)
	consults.GET("/:id", h.GetConsultation)

	api.GET("/patients/:id/consultations", h.ListPatientConsultations,
		auth.RequirePermission("consultations", "read"))
}

type createAppointmentRequest struct {
	PatientID      string  `json:"patient_id"`
	ProfessionalID string  `json:"professional_id"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	Type           string  `json:"type"`
	Reason         *string `json:"reason"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	professionalID, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid professional_id")
	}

	a, err := h.svc.CreateAppointment(c.Request().Context(), CreateAppointmentInput{
		PatientID:      patientID,
		ProfessionalID: professionalID,
		Date:           req.Date,
		Time:           req.Time,
		Type:           req.Type,
		Reason:         req.Reason,
	})
	if err != nil {
		if errors.Is(err, ErrPastDate) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "appointment date is in the past")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

// ListAppointments scopes results to the caller: patients see their own,
// professionals their assigned ones, admins everything.
func (h *Handler) ListAppointments(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		appts []*Appointment
		total int
		err   error
	)
	switch p.Role {
	case auth.RolePatient:
		appts, total, err = h.svc.ListAppointmentsByPatient(ctx, p.ID, pg.Limit, pg.Offset)
	case auth.RoleProfessional:
		appts, total, err = h.svc.ListAppointmentsByProfessional(ctx, p.ID, pg.Limit, pg.Offset)
	default:
		appts, total, err = h.svc.ListAppointments(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

// canSeeAppointment restricts non-admin callers to appointments they are a
// participant of.
func canSeeAppointment(p *auth.Principal, a *Appointment) bool {
	switch p.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleProfessional:
		return a.ProfessionalID == p.ID
	default:
		return a.PatientID == p.ID
	}
}

func (h *Handler) GetAppointment(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !canSeeAppointment(p, a) {
		return echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}
	return c.JSON(http.StatusOK, a)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateAppointmentStatus handles the administrative cancel. COMPLETED is not
// accepted here; it is reachable only through consultation recording.
func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status != StatusCancelled {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			"only CANCELLED can be set directly")
	}

	a, err := h.svc.CancelAppointment(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrInvalidState):
			return echo.NewHTTPError(http.StatusConflict, "appointment is not SCHEDULED")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, a)
}

type recordConsultationRequest struct {
	Diagnosis string  `json:"diagnosis"`
	Treatment *string `json:"treatment"`
	Notes     *string `json:"notes"`
	RiskLevel string  `json:"risk_level"`
}

// RecordConsultation is restricted to the professional assigned to the
// appointment; the service re-checks the lifecycle guard inside the
// transaction.
func (h *Handler) RecordConsultation(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if a.ProfessionalID != p.ID {
		return echo.NewHTTPError(http.StatusForbidden,
			"only the assigned professional can record the consultation")
	}

	var req recordConsultationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	consult, err := h.svc.RecordConsultation(c.Request().Context(), RecordConsultationInput{
		AppointmentID: id,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Notes:         req.Notes,
		RiskLevel:     req.RiskLevel,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidState):
			return echo.NewHTTPError(http.StatusConflict,
				"appointment already has a consultation or is not SCHEDULED")
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, consult)
}

// ListConsultations scopes like ListAppointments; professionals and admins
// may pass ?high_risk=true to filter.
func (h *Handler) ListConsultations(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		items []*Consultation
		total int
		err   error
	)
	switch {
	case p.Role == auth.RolePatient:
		items, total, err = h.svc.ListConsultationsByPatient(ctx, p.ID, pg.Limit, pg.Offset)
	case c.QueryParam("high_risk") == "true":
		items, total, err = h.svc.ListHighRiskConsultations(ctx, pg.Limit, pg.Offset)
	case p.Role == auth.RoleProfessional:
		items, total, err = h.svc.ListConsultationsByProfessional(ctx, p.ID, pg.Limit, pg.Offset)
	default:
		items, total, err = h.svc.ListConsultations(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetConsultation(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	consult, err := h.svc.GetConsultation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if p.Role != auth.RoleAdmin {
		a, err := h.svc.GetAppointment(c.Request().Context(), consult.AppointmentID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if !canSeeAppointment(p, a) {
			return echo.NewHTTPError(http.StatusForbidden, "permission denied")
		}
	}
	return c.JSON(http.StatusOK, consult)
}

// ListPatientConsultations returns a patient's consultation history. Patients
// may only request their own.
func (h *Handler) ListPatientConsultations(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if p.Role == auth.RolePatient && p.ID != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "permission denied")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListConsultationsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
