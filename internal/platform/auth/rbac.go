package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Role names as stored on users and carried in session tokens.
const (
	RoleAdmin        = "ADMIN"
	RoleProfessional = "PROFESSIONAL"
	RolePatient      = "PATIENT"
)

// permissions maps role -> resource -> allowed actions. It is the single
// authorization table for the whole API: adding a role or resource is a data
// change, not a code change.
var permissions = map[string]map[string][]string{
	RoleAdmin: {
		"users":         {"create", "read", "update", "delete"},
		"appointments":  {"create", "read", "update", "delete"},
		"consultations": {"create", "read", "update", "delete"},
		"reports":       {"read", "generate"},
	},
	RoleProfessional: {
		"appointments":  {"read", "update"},
		"consultations": {"create", "read", "update"},
		"patients":      {"read"},
	},
	RolePatient: {
		"appointments":  {"read"},
		"consultations": {"read"},
		"profile":       {"read", "update"},
	},
}

// HasPermission reports whether the principal may perform action on resource.
// A nil or inactive principal never has permission.
func HasPermission(p *Principal, resource, action string) bool {
	if p == nil || !p.Active {
		return false
	}

	resources, ok := permissions[p.Role]
	if !ok {
		return false
	}
	actions, ok := resources[resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// RequirePermission returns middleware that rejects requests whose principal
// may not perform action on resource.
func RequirePermission(resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if !HasPermission(p, resource, action) {
				return echo.NewHTTPError(http.StatusForbidden, "permission denied")
			}
			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects requests whose principal has
// none of the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil || !p.Active {
				return echo.NewHTTPError(http.StatusForbidden, "permission denied")
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "permission denied")
		}
	}
}
