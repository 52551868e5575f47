package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediconsult/mediconsult/internal/platform/auth"
	"github.com/mediconsult/mediconsult/pkg/pagination"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterRoutes wires the identity endpoints. public carries no session
// middleware; api requires an authenticated principal.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	public.POST("/auth/login", h.Login)
	public.POST("/auth/register", h.Register)

	api.GET("/auth/me", h.Me)
	api.GET("/professionals", h.ListProfessionals)

	users := api.Group("/users", auth.RequirePermission("users", "read"))
	users.GET("", h.ListUsers)
	users.GET("/:id", h.GetUser)
	users.POST("", h.CreateUser, auth.RequirePermission("users", "create"))
	users.PATCH("/:id/active", h.SetActive, auth.RequirePermission("users", "update"))
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := h.svc.Authenticate(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	token, err := h.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

// Register is the public self-service signup. Only patient accounts can be
// created here; professionals and admins are provisioned through /users.
func (h *Handler) Register(c echo.Context) error {
	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.Role == "" {
		in.Role = RolePatient
	}
	if in.Role != RolePatient {
		return echo.NewHTTPError(http.StatusForbidden, "only patient accounts can self-register")
	}

	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			return echo.NewHTTPError(http.StatusConflict, "identifier already registered")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Me(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	u, err := h.svc.GetUser(c.Request().Context(), p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			return echo.NewHTTPError(http.StatusConflict, "identifier already registered")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListProfessionals(c echo.Context) error {
	pg := pagination.FromContext(c)
	pros, total, err := h.svc.ListProfessionals(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pros, total, pg.Limit, pg.Offset))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetActive(c.Request().Context(), id, req.Active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
