package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"hms/internal/rbac"
)

// RequireAnyPermission passes when the caller's resolved permission set
// contains at least one of the required names. Resolution runs against the
// live catalog on every request, so role or permission edits take effect
// immediately. Resolution failures deny.
func RequireAnyPermission(resolver *rbac.Resolver, required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := GetIdentity(c)
			if ident == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			set := resolver.ResolveRoles(c.Request().Context(), ident.User.RoleIDs)
			if !set.HasAny(required...) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("Requires one of: %s", strings.Join(required, ", ")))
			}
			return next(c)
		}
	}
}

// RequireAnyRole passes when the caller holds at least one of the named
// roles. A caller with no resolvable roles is always refused.
func RequireAnyRole(names ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles := GetRoles(c)
			if len(roles) == 0 {
				return echo.NewHTTPError(http.StatusForbidden, "No roles assigned")
			}
			for _, role := range roles {
				if _, ok := allowed[role.Name]; ok {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("Requires one of roles: %s", strings.Join(names, ", ")))
		}
	}
}
