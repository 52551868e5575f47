package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type stubLoader struct {
	principals map[uuid.UUID]*Principal
}

func (s *stubLoader) LoadPrincipal(_ context.Context, id uuid.UUID) (*Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func runMiddleware(t *testing.T, issuer *TokenIssuer, loader PrincipalLoader, authz string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(issuer, loader)(func(c echo.Context) error {
		p := PrincipalFromContext(c.Request().Context())
		if p == nil {
			t.Error("expected principal in request context")
		}
		return c.String(http.StatusOK, "ok")
	})
	return rec, h(c)
}

func TestMiddleware_ValidToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	id := uuid.New()
	loader := &stubLoader{principals: map[uuid.UUID]*Principal{
		id: {ID: id, Name: "Dr. Test", Role: RoleProfessional, Active: true},
	}}

	token, err := issuer.Issue(id, RoleProfessional)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := runMiddleware(t, issuer, loader, "Bearer "+token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	_, err := runMiddleware(t, issuer, &stubLoader{}, "")
	assertUnauthorized(t, err)
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	_, err := runMiddleware(t, issuer, &stubLoader{}, "Token abc")
	assertUnauthorized(t, err)
}

func TestMiddleware_BadToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	_, err := runMiddleware(t, issuer, &stubLoader{}, "Bearer garbage")
	assertUnauthorized(t, err)
}

func TestMiddleware_UnknownUser(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(uuid.New(), RoleAdmin)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	_, err = runMiddleware(t, issuer, &stubLoader{}, "Bearer "+token)
	assertUnauthorized(t, err)
}

func TestMiddleware_InactiveUser(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	id := uuid.New()
	loader := &stubLoader{principals: map[uuid.UUID]*Principal{
		id: {ID: id, Name: "Gone", Role: RolePatient, Active: false},
	}}
	token, err := issuer.Issue(id, RolePatient)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	_, err = runMiddleware(t, issuer, loader, "Bearer "+token)
	assertUnauthorized(t, err)
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
