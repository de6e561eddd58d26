package routes

import (
	"github.com/labstack/echo/v4"

	"hms/internal/api/middleware"
	"hms/internal/handlers"
)

// Roles live in the main store but are managed by hospital admins (and the
// platform). No tenant gate: the catalog is shared.
func setupRoleRoutes(api *echo.Group, deps Deps, auth *middleware.AuthMiddleware, tenant *middleware.TenantMiddleware) {
	h := handlers.NewRoleHandler(deps.MainDB, deps.Catalog)

	group := api.Group("/roles", auth.Middleware())
	group.POST("", h.Create, middleware.RequireAnyPermission(deps.Resolver, "ROLE:CREATE"))
	group.GET("", h.List, middleware.RequireAnyPermission(deps.Resolver, "ROLE:READ"))
	group.GET("/permissions", h.ListPermissions, middleware.RequireAnyPermission(deps.Resolver, "ROLE:READ"))
	group.GET("/:id", h.Get, middleware.RequireAnyPermission(deps.Resolver, "ROLE:READ"))
	group.PUT("/:id", h.Update, middleware.RequireAnyPermission(deps.Resolver, "ROLE:UPDATE"))
	group.DELETE("/:id", h.Delete, middleware.RequireAnyPermission(deps.Resolver, "ROLE:DELETE"))
}
