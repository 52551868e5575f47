package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated user attached to a request.
type Principal struct {
	ID     uuid.UUID
	Name   string
	Role   string
	Active bool
}

// PrincipalLoader fetches the current state of a user by ID. Loading on every
// request means a deactivated account loses access immediately, not at token
// expiry.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error)
}

// Middleware validates the bearer session token and attaches the principal to
// the request context. Requests without a valid token for an active user are
// rejected with 401.
func Middleware(issuer *TokenIssuer, loader PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			userID, _, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}

			p, err := loader.LoadPrincipal(c.Request().Context(), userID)
			if err != nil || p == nil || !p.Active {
				return echo.NewHTTPError(http.StatusUnauthorized, "account unavailable")
			}

			ctx := context.WithValue(c.Request().Context(), principalKey, p)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// PrincipalFromContext retrieves the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithPrincipal returns a context carrying p. Used by tests and by the CLI
// paths that act on behalf of an operator.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
