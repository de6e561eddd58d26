package routes

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/db"
	"hms/internal/identity"
	"hms/internal/rbac"
	"hms/internal/services"
	"hms/internal/tasks"
	"hms/internal/utils"
)

// Deps carries everything the route tree needs. Handlers receive only the
// slices of this they use.
type Deps struct {
	MainDB   *gorm.DB
	Registry *db.Registry
	Catalog  *rbac.GormCatalog
	Resolver *rbac.Resolver
	Identity *identity.Resolver
	Issuer   *utils.TokenIssuer
	Mailer   services.Mailer
	Tasks    *tasks.TaskClient
}

// Setup wires the full API surface under /api/v1. Protected groups stack
// token auth, the tenant gate, a permission or role gate, and on clinical
// reads the attribute scope, in that order.
func Setup(e *echo.Echo, deps Deps) {
	api := e.Group("/api/v1")

	auth := middleware.NewAuthMiddleware(deps.Issuer, deps.Identity)
	tenant := middleware.NewTenantMiddleware(deps.MainDB, deps.Registry)

	setupAuthRoutes(api, deps, auth)
	setupHospitalRoutes(api, deps)
	setupAdminRoutes(api, deps, auth)
	setupUserRoutes(api, deps, auth, tenant)
	setupRoleRoutes(api, deps, auth, tenant)
	setupClinicalRoutes(api, deps, auth, tenant)
}
