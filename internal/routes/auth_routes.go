package routes

import (
	"github.com/labstack/echo/v4"

	"hms/internal/api/middleware"
	"hms/internal/handlers"
)

func setupAuthRoutes(api *echo.Group, deps Deps, auth *middleware.AuthMiddleware) {
	h := handlers.NewAuthHandler(deps.Identity, deps.Issuer, deps.Mailer)

	group := api.Group("/auth")
	group.POST("/login", h.Login)
	group.GET("/refresh", h.Refresh)
	group.POST("/logout", h.Logout)
	group.POST("/forgot-password", h.ForgotPassword)
	group.POST("/reset-password", h.ResetPassword)
	group.POST("/change-password", h.ChangePassword, auth.Middleware())
}
