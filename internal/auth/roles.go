package auth

import (
	"net/http"
	"slices"

	"github.com/gofiber/fiber/v2"
)

// Role is the caller role carried in the token.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
)

// Known reports whether r is a recognised role.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// StaffRoles are the roles allowed on back-office endpoints.
var StaffRoles = []Role{RoleAdmin, RoleStaff}

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowed) > 0 && !slices.Contains(allowed, principal.Role) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff ensures an ADMIN or STAFF caller.
func RequireStaff() fiber.Handler {
	return RequireRole(StaffRoles...)
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return RequireRole()
}
