package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hms/internal/db"
	"hms/internal/models"
	"hms/internal/rbac"
	"hms/internal/services"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

const (
	verificationTokenTTL = 24 * time.Hour
	defaultAdminPassword = "admin@1234"
)

type HospitalHandler struct {
	db       *gorm.DB
	registry *db.Registry
	catalog  *rbac.GormCatalog
	mailer   services.Mailer
	log      *logger.Logger
}

func NewHospitalHandler(mainDB *gorm.DB, registry *db.Registry, catalog *rbac.GormCatalog, mailer services.Mailer) *HospitalHandler {
	return &HospitalHandler{
		db:       mainDB,
		registry: registry,
		catalog:  catalog,
		mailer:   mailer,
		log:      logger.New("HospitalHandler"),
	}
}

type RegisterHospitalRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// Register creates a hospital in PENDING and mails a verification link.
// No credentials exist until the link is followed.
func (h *HospitalHandler) Register(c echo.Context) error {
	var req RegisterHospitalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var existing models.Hospital
	err := h.db.WithContext(ctx).
		Where("license_number = ? OR email = ?", req.LicenseNumber, req.Email).
		First(&existing).Error
	if err == nil {
		return fail(c, http.StatusBadRequest, "A hospital with this license number or email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return h.log.Error("Hospital duplicate check failed", err)
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return h.log.Error("Failed to generate verification token", err)
	}
	expiry := time.Now().Add(verificationTokenTTL)

	hospital := models.Hospital{
		Name:              req.Name,
		LicenseNumber:     req.LicenseNumber,
		Address:           req.Address,
		Phone:             req.Phone,
		Email:             req.Email,
		TenantID:          newTenantID(),
		Status:            models.HospitalStatusPending,
		VerificationToken: token,
		TokenExpiry:       &expiry,
	}
	if err := h.db.WithContext(ctx).Create(&hospital).Error; err != nil {
		return h.log.Error("Failed to create hospital", err)
	}

	store, err := h.registry.Provision(ctx, h.db, hospital.TenantID)
	if err != nil {
		return h.log.Error("Failed to provision tenant store", err)
	}
	// the account exists from day one; its credentials leave the system only
	// in the post-verification mail
	if _, err := h.createAdminAccount(c, store, &hospital); err != nil {
		return h.log.Error("Failed to create administrator account", err)
	}

	if err := h.mailer.SendVerificationMail(hospital.Email, hospital.Name, hospital.TenantID, token); err != nil {
		h.log.Warn("verification mail for %s: %v", hospital.Email, err)
	}

	return ok(c, http.StatusCreated, "Hospital registered, check your email to verify", hospital)
}

// Verify consumes a verification token: the hospital moves to VERIFIED and
// the administrator credentials created at registration are mailed exactly
// once. Re-visiting the link is harmless.
func (h *HospitalHandler) Verify(c echo.Context) error {
	tenantID := c.Param("tenantId")
	token := c.Param("token")
	ctx := c.Request().Context()

	var hospital models.Hospital
	err := h.db.WithContext(ctx).First(&hospital, "tenant_id = ?", tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Hospital not found")
		}
		return h.log.Error("Verification lookup failed", err)
	}

	if hospital.Status != models.HospitalStatusPending {
		return ok(c, http.StatusOK, "Hospital is already verified", nil)
	}
	if hospital.VerificationToken == "" || hospital.VerificationToken != token {
		return fail(c, http.StatusBadRequest, "Invalid verification link")
	}
	if hospital.TokenExpiry == nil || hospital.TokenExpiry.Before(time.Now()) {
		return fail(c, http.StatusBadRequest, "Verification link has expired, register again")
	}

	if err := hospital.Transition(models.HospitalStatusVerified); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	hospital.VerificationToken = ""
	hospital.TokenExpiry = nil
	err = h.db.WithContext(ctx).Model(&hospital).Updates(map[string]interface{}{
		"status":             hospital.Status,
		"verification_token": "",
		"token_expiry":       nil,
	}).Error
	if err != nil {
		return h.log.Error("Failed to update hospital status", err)
	}

	adminEmail := fmt.Sprintf("admin@%s", emailDomain(hospital.Email))
	if err := h.mailer.SendCredentialsMail(hospital.Email, hospital.Name, adminEmail, defaultAdminPassword); err != nil {
		// credentials only exist in this mail, so surface the failure
		return h.log.Error("Failed to deliver administrator credentials", err)
	}

	return ok(c, http.StatusOK, "Hospital verified, administrator credentials have been sent", nil)
}

func (h *HospitalHandler) createAdminAccount(c echo.Context, store *gorm.DB, hospital *models.Hospital) (string, error) {
	ctx := c.Request().Context()

	adminRole, err := h.catalog.RoleByName(ctx, models.RoleHospitalAdmin)
	if err != nil {
		return "", fmt.Errorf("loading %s role: %w", models.RoleHospitalAdmin, err)
	}

	domain := emailDomain(hospital.Email)
	adminEmail := fmt.Sprintf("admin@%s", domain)
	hash, err := utils.HashPassword(defaultAdminPassword)
	if err != nil {
		return "", err
	}

	admin := models.User{
		HospitalID:          &hospital.ID,
		FirstName:           "Hospital",
		LastName:            "Admin",
		Email:               adminEmail,
		Password:            hash,
		RoleIDs:             datatypes.JSONSlice[string]{adminRole.ID},
		Status:              models.UserStatusActive,
		ForcePasswordChange: true,
	}
	if err := store.WithContext(ctx).Create(&admin).Error; err != nil {
		return "", err
	}

	entry := models.DirectoryEntry{
		Email:      adminEmail,
		UserID:     admin.ID,
		HospitalID: hospital.ID,
		TenantID:   hospital.TenantID,
	}
	if err := h.db.WithContext(ctx).Create(&entry).Error; err != nil {
		h.log.Warn("directory entry for %s: %v", adminEmail, err)
	}

	return adminEmail, nil
}

// newTenantID doubles as the tenant's database name, so it must be a
// valid identifier.
func newTenantID() string {
	return "hms_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return email
}
