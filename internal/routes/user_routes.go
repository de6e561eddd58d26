package routes

import (
	"github.com/labstack/echo/v4"

	"hms/internal/api/middleware"
	"hms/internal/handlers"
	"hms/internal/models"
)

func setupUserRoutes(api *echo.Group, deps Deps, auth *middleware.AuthMiddleware, tenant *middleware.TenantMiddleware) {
	h := handlers.NewUserHandler(deps.Catalog, deps.Mailer)

	me := api.Group("/me", auth.Middleware())
	me.GET("", h.Me)

	group := api.Group("/users", auth.Middleware(), tenant.Middleware(), middleware.RequireTenant())
	group.POST("", h.Create, middleware.RequireAnyPermission(deps.Resolver, "USER:CREATE"))
	group.GET("", h.List, middleware.RequireAnyPermission(deps.Resolver, "USER:READ"))
	group.GET("/doctors", h.ListByRole(models.RoleDoctor), middleware.RequireAnyPermission(deps.Resolver, "USER:READ"))
	group.GET("/nurses", h.ListByRole(models.RoleNurse), middleware.RequireAnyPermission(deps.Resolver, "USER:READ"))
	group.GET("/dashboard", h.DashboardStats(deps.MainDB), middleware.RequireAnyPermission(deps.Resolver, "DASHBOARD:VIEW"))
	group.GET("/:id", h.Get, middleware.RequireAnyPermission(deps.Resolver, "USER:READ"))
	group.PUT("/:id", h.Update, middleware.RequireAnyPermission(deps.Resolver, "USER:UPDATE"))
	group.DELETE("/:id", h.Delete, middleware.RequireAnyPermission(deps.Resolver, "USER:DELETE"))
}
