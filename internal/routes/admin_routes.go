package routes

import (
	"github.com/labstack/echo/v4"

	"hms/internal/api/middleware"
	"hms/internal/handlers"
	"hms/internal/models"
)

// Platform operator routes. Gated on role, not permission: only the seeded
// SUPER_ADMIN role may touch tenant lifecycles.
func setupAdminRoutes(api *echo.Group, deps Deps, auth *middleware.AuthMiddleware) {
	h := handlers.NewAdminHandler(deps.MainDB, deps.Tasks)

	group := api.Group("/admin", auth.Middleware(), middleware.RequireAnyRole(models.RoleSuperAdmin))
	group.GET("/hospitals", h.ListHospitals)
	group.GET("/hospitals/:id", h.GetHospital)
	group.PATCH("/hospitals/:id/status", h.UpdateHospitalStatus)
	group.GET("/stats", h.PlatformStats)
}
