package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediconsult/mediconsult/internal/platform/auth"
)

func requestAs(t *testing.T, p *auth.Principal, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func principal(id uuid.UUID, role string) *auth.Principal {
	return &auth.Principal{ID: id, Name: "Test", Role: role, Active: true}
}

func book(t *testing.T, env *testEnv) *Appointment {
	t.Helper()
	a, err := env.svc.CreateAppointment(context.Background(), env.bookInput(today()))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	return a
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return httpErr.Code
}

func TestCreateAppointmentHandler(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)

	body := `{"patient_id":"` + env.patient.ID.String() + `","professional_id":"` +
		env.pro.ID.String() + `","date":"` + today() + `","time":"09:00","type":"MEDICAL"}`
	c, rec := requestAs(t, principal(uuid.New(), auth.RoleAdmin),
		http.MethodPost, "/api/v1/appointments", body)

	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", a.Status)
	}
}

func TestCreateAppointmentHandler_PastDate(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)

	body := `{"patient_id":"` + env.patient.ID.String() + `","professional_id":"` +
		env.pro.ID.String() + `","date":"2020-01-01","time":"09:00","type":"MEDICAL"}`
	c, _ := requestAs(t, principal(uuid.New(), auth.RoleAdmin),
		http.MethodPost, "/api/v1/appointments", body)

	if code := httpCode(t, h.CreateAppointment(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestListAppointmentsHandler_ScopedToCaller(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	book(t, env)

	otherPatient := env.users.addUser(auth.RolePatient, true)

	cases := []struct {
		name string
		p    *auth.Principal
		want int
	}{
		{"own patient", principal(env.patient.ID, auth.RolePatient), 1},
		{"other patient", principal(otherPatient.ID, auth.RolePatient), 0},
		{"assigned professional", principal(env.pro.ID, auth.RoleProfessional), 1},
		{"admin", principal(uuid.New(), auth.RoleAdmin), 1},
	}
	for _, tc := range cases {
		c, rec := requestAs(t, tc.p, http.MethodGet, "/api/v1/appointments", "")
		if err := h.ListAppointments(c); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		var resp struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", tc.name, err)
		}
		if resp.Total != tc.want {
			t.Errorf("%s: expected %d appointments, got %d", tc.name, tc.want, resp.Total)
		}
	}
}

func TestGetAppointmentHandler_NonParticipantForbidden(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)

	stranger := env.users.addUser(auth.RoleProfessional, true)
	c, _ := requestAs(t, principal(stranger.ID, auth.RoleProfessional),
		http.MethodGet, "/api/v1/appointments/"+a.ID.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpCode(t, h.GetAppointment(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestUpdateAppointmentStatusHandler_Cancel(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)

	c, rec := requestAs(t, principal(uuid.New(), auth.RoleAdmin),
		http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/status",
		`{"status":"CANCELLED"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.UpdateAppointmentStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got, _ := env.svc.GetAppointment(context.Background(), a.ID)
	if got.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", got.Status)
	}
}

func TestUpdateAppointmentStatusHandler_RejectsCompleted(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)

	c, _ := requestAs(t, principal(uuid.New(), auth.RoleAdmin),
		http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/status",
		`{"status":"COMPLETED"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpCode(t, h.UpdateAppointmentStatus(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestUpdateAppointmentStatusHandler_AlreadyCancelled(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)
	if _, err := env.svc.CancelAppointment(context.Background(), a.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	c, _ := requestAs(t, principal(uuid.New(), auth.RoleAdmin),
		http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/status",
		`{"status":"CANCELLED"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpCode(t, h.UpdateAppointmentStatus(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestRecordConsultationHandler_AssignedProfessional(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)

	c, rec := requestAs(t, principal(env.pro.ID, auth.RoleProfessional),
		http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/consultation",
		`{"diagnosis":"Migraine","risk_level":"MEDIUM"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.RecordConsultation(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var consult Consultation
	if err := json.Unmarshal(rec.Body.Bytes(), &consult); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if consult.RiskLevel != RiskMedium {
		t.Errorf("expected MEDIUM risk, got %s", consult.RiskLevel)
	}
}

func TestRecordConsultationHandler_WrongProfessional(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)

	other := env.users.addUser(auth.RoleProfessional, true)
	c, _ := requestAs(t, principal(other.ID, auth.RoleProfessional),
		http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/consultation",
		`{"diagnosis":"Migraine"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpCode(t, h.RecordConsultation(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestRecordConsultationHandler_Duplicate(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	a := book(t, env)

	if _, err := env.svc.RecordConsultation(context.Background(), RecordConsultationInput{
		AppointmentID: a.ID, Diagnosis: "First",
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	c, _ := requestAs(t, principal(env.pro.ID, auth.RoleProfessional),
		http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/consultation",
		`{"diagnosis":"Second"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpCode(t, h.RecordConsultation(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestListPatientConsultationsHandler_PatientOwnOnly(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)

	other := env.users.addUser(auth.RolePatient, true)
	c, _ := requestAs(t, principal(env.patient.ID, auth.RolePatient),
		http.MethodGet, "/api/v1/patients/"+other.ID.String()+"/consultations", "")
	c.SetParamNames("id")
	c.SetParamValues(other.ID.String())

	if code := httpCode(t, h.ListPatientConsultations(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}
