package routes

import (
	"github.com/labstack/echo/v4"

	"hms/internal/handlers"
)

// Hospital self-service routes are public: registration happens before any
// account exists, and verification links arrive over mail.
func setupHospitalRoutes(api *echo.Group, deps Deps) {
	h := handlers.NewHospitalHandler(deps.MainDB, deps.Registry, deps.Catalog, deps.Mailer)

	group := api.Group("/hospitals")
	group.POST("/register", h.Register)
	group.GET("/verify/:tenantId/:token", h.Verify)
}
