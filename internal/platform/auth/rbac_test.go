package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func activePrincipal(role string) *Principal {
	return &Principal{ID: uuid.New(), Name: "Test User", Role: role, Active: true}
}

func TestHasPermission_AdminCreatesAppointments(t *testing.T) {
	if !HasPermission(activePrincipal(RoleAdmin), "appointments", "create") {
		t.Error("expected admin to create appointments")
	}
}

func TestHasPermission_PatientCannotCreateAppointments(t *testing.T) {
	if HasPermission(activePrincipal(RolePatient), "appointments", "create") {
		t.Error("expected patient to be denied appointment creation")
	}
}

func TestHasPermission_ProfessionalCreatesConsultations(t *testing.T) {
	if !HasPermission(activePrincipal(RoleProfessional), "consultations", "create") {
		t.Error("expected professional to create consultations")
	}
}

func TestHasPermission_NilPrincipal(t *testing.T) {
	if HasPermission(nil, "appointments", "read") {
		t.Error("expected nil principal to be denied")
	}
}

func TestHasPermission_InactivePrincipal(t *testing.T) {
	p := activePrincipal(RoleAdmin)
	p.Active = false
	if HasPermission(p, "users", "read") {
		t.Error("expected inactive principal to be denied")
	}
}

func TestHasPermission_UnknownRoleAndResource(t *testing.T) {
	if HasPermission(activePrincipal("JANITOR"), "appointments", "read") {
		t.Error("expected unknown role to be denied")
	}
	if HasPermission(activePrincipal(RoleAdmin), "invoices", "read") {
		t.Error("expected unknown resource to be denied")
	}
}

func TestHasPermission_PatientProfile(t *testing.T) {
	p := activePrincipal(RolePatient)
	if !HasPermission(p, "profile", "update") {
		t.Error("expected patient to update own profile")
	}
	if HasPermission(p, "patients", "read") {
		t.Error("expected patient to be denied patient listing")
	}
}

func requestWithPrincipal(t *testing.T, p *Principal) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequirePermission_Allows(t *testing.T) {
	c, _ := requestWithPrincipal(t, activePrincipal(RoleAdmin))
	h := RequirePermission("reports", "generate")(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequirePermission_Denies(t *testing.T) {
	c, _ := requestWithPrincipal(t, activePrincipal(RolePatient))
	h := RequirePermission("reports", "generate")(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	if err == nil {
		t.Fatal("expected permission denied")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireRole_MatchesAny(t *testing.T) {
	c, _ := requestWithPrincipal(t, activePrincipal(RoleProfessional))
	h := RequireRole(RoleAdmin, RoleProfessional)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_DeniesMissingPrincipal(t *testing.T) {
	c, _ := requestWithPrincipal(t, nil)
	h := RequireRole(RoleAdmin)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err == nil {
		t.Fatal("expected permission denied")
	}
}
