package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"hms/internal/identity"
	"hms/internal/models"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

var log = logger.New("auth_middleware")

// AuthMiddleware authenticates Bearer tokens and resolves the caller's
// record across stores. Role IDs from the token are discarded; the hydrated
// roles on the resolved identity are what downstream gates consult.
type AuthMiddleware struct {
	issuer   *utils.TokenIssuer
	resolver *identity.Resolver
}

func NewAuthMiddleware(issuer *utils.TokenIssuer, resolver *identity.Resolver) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer, resolver: resolver}
}

func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := m.issuer.ParseAccessToken(tokenParts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			ident, err := m.resolver.FindByID(c.Request().Context(), claims.UserID, claims.HospitalID)
			if err != nil {
				if errors.Is(err, identity.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
				}
				return log.Error("Identity resolution failed", err)
			}

			if !ident.User.CanLogin() {
				return echo.NewHTTPError(http.StatusForbidden, "Account is not active")
			}

			c.Set("identity", ident)
			c.Set("userID", ident.User.ID)
			c.Set("hospitalID", ident.HospitalID)
			c.Set("roles", ident.Roles)

			return next(c)
		}
	}
}

// GetIdentity returns the resolved caller, or nil outside the auth chain.
func GetIdentity(c echo.Context) *identity.Identity {
	if ident, ok := c.Get("identity").(*identity.Identity); ok {
		return ident
	}
	return nil
}

func GetUserID(c echo.Context) string {
	if id, ok := c.Get("userID").(string); ok {
		return id
	}
	return ""
}

func GetHospitalID(c echo.Context) string {
	if id, ok := c.Get("hospitalID").(string); ok {
		return id
	}
	return ""
}

func GetRoles(c echo.Context) []models.RoleRef {
	if roles, ok := c.Get("roles").([]models.RoleRef); ok {
		return roles
	}
	return nil
}
