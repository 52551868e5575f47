package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mediconsult/mediconsult/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service) {
	svc, _ := newTestService()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewHandler(svc, issuer), svc
}

func postJSON(t *testing.T, h echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestLogin_Success(t *testing.T) {
	h, svc := newTestHandler()
	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Name: "Administrator", NationalID: "12345678", Role: RoleAdmin, Password: "admin123",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rec := postJSON(t, h.Login, "/api/v1/auth/login",
		`{"identifier":"12345678","password":"admin123"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.User == nil || resp.User.Role != RoleAdmin {
		t.Error("expected the admin user in the response")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	h, _ := newTestHandler()
	rec := postJSON(t, h.Login, "/api/v1/auth/login",
		`{"identifier":"12345678","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRegister_PatientSelfService(t *testing.T) {
	h, _ := newTestHandler()
	rec := postJSON(t, h.Register, "/api/v1/auth/register",
		`{"name":"Ana Torres","enrollment_code":"A0001","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var u User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if u.Role != RolePatient {
		t.Errorf("expected default role PATIENT, got %s", u.Role)
	}
}

func TestRegister_RejectsNonPatientRole(t *testing.T) {
	h, _ := newTestHandler()
	rec := postJSON(t, h.Register, "/api/v1/auth/register",
		`{"name":"Eve","national_id":"99999999","role":"ADMIN","password":"x"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRegister_DuplicateConflict(t *testing.T) {
	h, _ := newTestHandler()
	body := `{"name":"Ana Torres","enrollment_code":"A0001","password":"secret1"}`
	if rec := postJSON(t, h.Register, "/api/v1/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register failed: %d", rec.Code)
	}
	rec := postJSON(t, h.Register, "/api/v1/auth/register", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestMe_ReturnsCurrentUser(t *testing.T) {
	h, svc := newTestHandler()
	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Name: "Dr. Vega", NationalID: "55555555", Role: RoleProfessional, Password: "secret1",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{
		ID: u.ID, Name: u.Name, Role: u.Role, Active: true,
	}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.ID != u.ID {
		t.Error("expected the authenticated user")
	}
}

func TestSetActive_UnknownUser(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"active":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("6a6f9f7e-1b7c-4a8e-9f2d-3c4b5a697a00")

	err := h.SetActive(c)
	if err == nil {
		t.Fatal("expected error for unknown user")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
