package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/identity"
	"hms/internal/models"
	"hms/internal/services"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

const (
	refreshCookieName = "refreshToken"
	resetTokenTTL     = 10 * time.Minute
)

type AuthHandler struct {
	resolver *identity.Resolver
	issuer   *utils.TokenIssuer
	mailer   services.Mailer
	log      *logger.Logger
}

func NewAuthHandler(resolver *identity.Resolver, issuer *utils.TokenIssuer, mailer services.Mailer) *AuthHandler {
	return &AuthHandler{
		resolver: resolver,
		issuer:   issuer,
		mailer:   mailer,
		log:      logger.New("AuthHandler"),
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Login authenticates against the main store first and falls back to the
// caller's hospital store. Accounts in hospitals that are not operable are
// invisible here, so suspending a hospital locks out its staff immediately.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	ident, err := h.resolver.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			if hospital, blocked := h.resolver.BlockedByHospital(ctx, req.Email); blocked {
				return fail(c, http.StatusForbidden, fmt.Sprintf("Hospital is %s", hospital.Status))
			}
			return fail(c, http.StatusNotFound, "User not found")
		}
		return h.log.Error("Login lookup failed", err)
	}

	user := ident.User
	if !utils.CheckPassword(req.Password, user.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	if !user.CanLogin() {
		return fail(c, http.StatusForbidden, fmt.Sprintf("Account is %s", user.Status))
	}

	accessToken, err := h.issuer.GenerateAccessToken(user.ID, ident.HospitalID, user.RoleIDs)
	if err != nil {
		return h.log.Error("Failed to generate access token", err)
	}
	refreshToken, err := h.issuer.GenerateRefreshToken(user.ID, ident.HospitalID)
	if err != nil {
		return h.log.Error("Failed to generate refresh token", err)
	}

	if store, err := h.resolver.Store(ctx, ident); err == nil {
		now := time.Now()
		store.WithContext(ctx).Model(user).Updates(map[string]interface{}{"last_login": now})
	}

	h.setRefreshCookie(c, refreshToken)
	return ok(c, http.StatusOK, "Login successful", map[string]interface{}{
		"accessToken":         accessToken,
		"user":                user,
		"roles":               ident.Roles,
		"forcePasswordChange": user.ForcePasswordChange,
	})
}

// Refresh mints a new access token from the refresh cookie. Identity is
// re-resolved so deactivated accounts and suspended hospitals cannot
// refresh their way back in.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Missing refresh token")
	}

	claims, err := h.issuer.ParseRefreshToken(cookie.Value)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	ctx := c.Request().Context()
	ident, err := h.resolver.FindByID(ctx, claims.UserID, claims.HospitalID)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "User not found")
	}
	if !ident.User.CanLogin() {
		return fail(c, http.StatusForbidden, fmt.Sprintf("Account is %s", ident.User.Status))
	}

	accessToken, err := h.issuer.GenerateAccessToken(ident.User.ID, ident.HospitalID, ident.User.RoleIDs)
	if err != nil {
		return h.log.Error("Failed to generate access token", err)
	}
	return ok(c, http.StatusOK, "Token refreshed", map[string]interface{}{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return ok(c, http.StatusOK, "Logged out", nil)
}

// ForgotPassword always reports success so the endpoint cannot be used to
// probe which emails exist.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	ident, err := h.resolver.FindByEmail(ctx, req.Email)
	if err == nil {
		token, tokenErr := utils.GenerateToken()
		if tokenErr == nil {
			expiry := time.Now().Add(resetTokenTTL)
			if store, storeErr := h.resolver.Store(ctx, ident); storeErr == nil {
				updateErr := store.WithContext(ctx).Model(ident.User).Updates(map[string]interface{}{
					"reset_token":  token,
					"reset_expiry": expiry,
				}).Error
				if updateErr == nil {
					if mailErr := h.mailer.SendPasswordResetMail(req.Email, token); mailErr != nil {
						h.log.Warn("reset mail for %s: %v", req.Email, mailErr)
					}
				}
			}
		}
	} else if !errors.Is(err, identity.ErrNotFound) {
		h.log.Warn("forgot password lookup for %s: %v", req.Email, err)
	}

	return ok(c, http.StatusOK, "If the email exists, a reset link has been sent", nil)
}

// ResetPassword consumes a reset token. The new password must satisfy the
// policy and must differ from the last three passwords.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	ident, store, err := h.resolver.FindByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "Invalid or expired reset token")
		}
		return h.log.Error("Reset token lookup failed", err)
	}

	user := ident.User
	if user.ResetExpiry == nil || user.ResetExpiry.Before(time.Now()) {
		return fail(c, http.StatusBadRequest, "Invalid or expired reset token")
	}

	return h.applyNewPassword(c, store, user, req.Password, "Password reset successful")
}

// ChangePassword rotates the authenticated caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ident := middleware.GetIdentity(c)
	ctx := c.Request().Context()
	if !utils.CheckPassword(req.CurrentPassword, ident.User.Password) {
		return fail(c, http.StatusUnauthorized, "Current password is incorrect")
	}

	store, err := h.resolver.Store(ctx, ident)
	if err != nil {
		return h.log.Error("Resolving user store failed", err)
	}
	return h.applyNewPassword(c, store, ident.User, req.NewPassword, "Password changed successfully")
}

func (h *AuthHandler) applyNewPassword(c echo.Context, store *gorm.DB, user *models.User, password, message string) error {
	if violations := utils.ValidatePasswordPolicy(password); len(violations) > 0 {
		return failWith(c, http.StatusBadRequest, "Password does not meet policy", violations)
	}
	if utils.PasswordRecentlyUsed(password, user.Password, user.PasswordHistory) {
		return fail(c, http.StatusBadRequest, "Password was used recently, choose a different one")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return h.log.Error("Failed to hash password", err)
	}

	now := time.Now()
	history := utils.RotatePasswordHistory(user.PasswordHistory, user.Password)
	updates := map[string]interface{}{
		"password":              hash,
		"password_history":      datatypes.JSONSlice[models.PasswordStamp](history),
		"password_changed_at":   now,
		"force_password_change": false,
		"reset_token":           "",
		"reset_expiry":          nil,
	}
	if user.Status == models.UserStatusPasswordExpired {
		updates["status"] = models.UserStatusActive
	}
	err = store.WithContext(c.Request().Context()).Model(user).Updates(updates).Error
	if err != nil {
		return h.log.Error("Failed to update password", err)
	}
	return ok(c, http.StatusOK, message, nil)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.issuer.RefreshTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
