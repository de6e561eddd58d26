package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"hms/internal/db"
	"hms/internal/models"
)

// TenantMiddleware gates tenant-scoped routes on the caller's hospital
// being operable and attaches the tenant store to the request context.
// Global accounts pass through without a store.
type TenantMiddleware struct {
	main     *gorm.DB
	registry *db.Registry
}

func NewTenantMiddleware(main *gorm.DB, registry *db.Registry) *TenantMiddleware {
	return &TenantMiddleware{main: main, registry: registry}
}

func (m *TenantMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hospitalID := GetHospitalID(c)
			if hospitalID == "" {
				return next(c)
			}

			var hospital models.Hospital
			err := m.main.WithContext(c.Request().Context()).First(&hospital, "id = ?", hospitalID).Error
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Hospital not found")
			}
			if !hospital.Operable() {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("Hospital is %s and cannot be accessed", hospital.Status))
			}

			store, err := m.registry.Store(c.Request().Context(), hospital.TenantID)
			if err != nil {
				return log.Error("Tenant store unavailable", err)
			}

			c.Set("hospital", &hospital)
			c.Set("tenantStore", store)
			c.Set("tenantID", hospital.TenantID)
			return next(c)
		}
	}
}

// RequireTenant refuses global accounts on routes that only make sense
// inside a hospital.
func RequireTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetTenantStore(c) == nil {
				return echo.NewHTTPError(http.StatusForbidden, "This route requires a hospital account")
			}
			return next(c)
		}
	}
}

func GetHospital(c echo.Context) *models.Hospital {
	if h, ok := c.Get("hospital").(*models.Hospital); ok {
		return h
	}
	return nil
}

func GetTenantStore(c echo.Context) *gorm.DB {
	if store, ok := c.Get("tenantStore").(*gorm.DB); ok {
		return store
	}
	return nil
}

func GetTenantID(c echo.Context) string {
	if id, ok := c.Get("tenantID").(string); ok {
		return id
	}
	return ""
}
