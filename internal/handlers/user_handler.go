package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/models"
	"hms/internal/rbac"
	"hms/internal/services"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

// UserHandler manages staff accounts inside the caller's hospital. All
// queries run against the tenant store from the request context.
type UserHandler struct {
	catalog *rbac.GormCatalog
	mailer  services.Mailer
	log     *logger.Logger
}

func NewUserHandler(catalog *rbac.GormCatalog, mailer services.Mailer) *UserHandler {
	return &UserHandler{
		catalog: catalog,
		mailer:  mailer,
		log:     logger.New("UserHandler"),
	}
}

type CreateUserRequest struct {
	FirstName      string   `json:"firstName" validate:"required"`
	LastName       string   `json:"lastName" validate:"required"`
	Email          string   `json:"email" validate:"required,email"`
	Phone          string   `json:"phone"`
	Password       string   `json:"password" validate:"required"`
	RoleIDs        []string `json:"roleIds" validate:"required,min=1,dive,uuid"`
	Department     string   `json:"department"`
	Specialization string   `json:"specialization"`
	Shift          string   `json:"shift"`
}

type UpdateUserRequest struct {
	FirstName      *string  `json:"firstName,omitempty"`
	LastName       *string  `json:"lastName,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	RoleIDs        []string `json:"roleIds,omitempty" validate:"omitempty,min=1,dive,uuid"`
	Department     *string  `json:"department,omitempty"`
	Specialization *string  `json:"specialization,omitempty"`
	Shift          *string  `json:"shift,omitempty"`
	Status         *string  `json:"status,omitempty" validate:"omitempty,user_status"`
}

// Create provisions a staff account. The username is derived from the name
// and the hospital mail domain, and the welcome mail is awaited so the
// admin learns immediately when credentials could not be delivered.
func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	store := middleware.GetTenantStore(c)
	hospital := middleware.GetHospital(c)

	if violations := utils.ValidatePasswordPolicy(req.Password); len(violations) > 0 {
		return failWith(c, http.StatusBadRequest, "Password does not meet policy", violations)
	}

	roles, err := h.catalog.RolesByIDs(ctx, req.RoleIDs)
	if err != nil {
		return h.log.Error("Role lookup failed", err)
	}
	if len(roles) != len(req.RoleIDs) {
		return fail(c, http.StatusBadRequest, "One or more roles do not exist")
	}

	var existing models.User
	err = store.WithContext(ctx).First(&existing, "email = ?", req.Email).Error
	if err == nil {
		return fail(c, http.StatusBadRequest, "A user with this email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return h.log.Error("User duplicate check failed", err)
	}

	username, err := utils.GenerateUsername(ctx, store, req.FirstName, req.LastName, emailDomain(hospital.Email))
	if err != nil {
		return h.log.Error("Username generation failed", err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return h.log.Error("Failed to hash password", err)
	}

	user := models.User{
		HospitalID:          &hospital.ID,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		Username:            &username,
		Phone:               req.Phone,
		Password:            hash,
		RoleIDs:             datatypes.JSONSlice[string](req.RoleIDs),
		Department:          req.Department,
		Specialization:      req.Specialization,
		Shift:               req.Shift,
		Status:              models.UserStatusActive,
		ForcePasswordChange: true,
	}
	if err := store.WithContext(ctx).Create(&user).Error; err != nil {
		return h.log.Error("Failed to create user", err)
	}

	if err := h.mailer.SendWelcomeMail(user.Email, user.FirstName, username, req.Password); err != nil {
		h.log.Warn("welcome mail for %s: %v", user.Email, err)
		return ok(c, http.StatusCreated, "User created, but the welcome mail could not be delivered", user)
	}
	return ok(c, http.StatusCreated, "User created", user)
}

func (h *UserHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	store := middleware.GetTenantStore(c)
	query := store.WithContext(c.Request().Context()).Model(&models.User{})

	if department := c.QueryParam("department"); department != "" {
		query = query.Where("department = ?", department)
	}
	if status := c.QueryParam("status"); status != "" {
		if !models.IsValidUserStatus(models.UserStatus(status)) {
			return fail(c, http.StatusBadRequest, "Invalid status filter")
		}
		query = query.Where("status = ?", status)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count users", err)
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return h.log.Error("Failed to list users", err)
	}
	return ok(c, http.StatusOK, "Users retrieved", paginate(users, total, page, pageSize))
}

func (h *UserHandler) Get(c echo.Context) error {
	store := middleware.GetTenantStore(c)
	var user models.User
	err := store.WithContext(c.Request().Context()).First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return h.log.Error("Failed to load user", err)
	}
	return ok(c, http.StatusOK, "User retrieved", user)
}

// Me returns the authenticated caller with hydrated roles.
func (h *UserHandler) Me(c echo.Context) error {
	ident := middleware.GetIdentity(c)
	return ok(c, http.StatusOK, "Profile retrieved", map[string]interface{}{
		"user":  ident.User,
		"roles": ident.Roles,
	})
}

func (h *UserHandler) Update(c echo.Context) error {
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	store := middleware.GetTenantStore(c)

	var user models.User
	err := store.WithContext(ctx).First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return h.log.Error("Failed to load user", err)
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.Specialization != nil {
		updates["specialization"] = *req.Specialization
	}
	if req.Shift != nil {
		updates["shift"] = *req.Shift
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(req.RoleIDs) > 0 {
		roles, err := h.catalog.RolesByIDs(ctx, req.RoleIDs)
		if err != nil {
			return h.log.Error("Role lookup failed", err)
		}
		if len(roles) != len(req.RoleIDs) {
			return fail(c, http.StatusBadRequest, "One or more roles do not exist")
		}
		updates["role_ids"] = datatypes.JSONSlice[string](req.RoleIDs)
	}
	if len(updates) == 0 {
		return fail(c, http.StatusBadRequest, "Nothing to update")
	}

	if err := store.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return h.log.Error("Failed to update user", err)
	}
	return ok(c, http.StatusOK, "User updated", user)
}

// Delete removes a staff account. Callers cannot delete themselves.
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == middleware.GetUserID(c) {
		return fail(c, http.StatusBadRequest, "You cannot delete your own account")
	}

	store := middleware.GetTenantStore(c)
	result := store.WithContext(c.Request().Context()).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return h.log.Error("Failed to delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "User not found")
	}
	return ok(c, http.StatusOK, "User deleted", nil)
}

// ListByRole backs the /doctors and /nurses convenience endpoints. Role
// membership lives in a JSON column, so the filter runs on hydrated rows.
func (h *UserHandler) ListByRole(roleName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		store := middleware.GetTenantStore(c)

		role, err := h.catalog.RoleByName(ctx, roleName)
		if err != nil {
			return h.log.Error(fmt.Sprintf("Loading %s role", roleName), err)
		}

		var users []models.User
		err = store.WithContext(ctx).
			Where("role_ids::jsonb @> ?", fmt.Sprintf(`["%s"]`, role.ID)).
			Where("status = ?", models.UserStatusActive).
			Order("first_name").
			Find(&users).Error
		if err != nil {
			return h.log.Error("Failed to list users by role", err)
		}
		return ok(c, http.StatusOK, "Users retrieved", users)
	}
}

// DashboardStats summarizes the hospital for its admin landing page.
func (h *UserHandler) DashboardStats(main *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		store := middleware.GetTenantStore(c)
		hospital := middleware.GetHospital(c)

		var staff int64
		if err := store.WithContext(ctx).Model(&models.User{}).Count(&staff).Error; err != nil {
			return h.log.Error("Failed to count staff", err)
		}

		var patients, prescriptions, appointments int64
		if err := main.WithContext(ctx).Model(&models.Patient{}).
			Where("hospital_id = ?", hospital.ID).Count(&patients).Error; err != nil {
			return h.log.Error("Failed to count patients", err)
		}
		if err := main.WithContext(ctx).Model(&models.Prescription{}).
			Where("hospital_id = ?", hospital.ID).Count(&prescriptions).Error; err != nil {
			return h.log.Error("Failed to count prescriptions", err)
		}
		if err := main.WithContext(ctx).Model(&models.Appointment{}).
			Where("hospital_id = ? AND status = ?", hospital.ID, models.AppointmentStatusPending).
			Count(&appointments).Error; err != nil {
			return h.log.Error("Failed to count appointments", err)
		}

		return ok(c, http.StatusOK, "Stats retrieved", map[string]interface{}{
			"staff":               staff,
			"patients":            patients,
			"prescriptions":       prescriptions,
			"pendingAppointments": appointments,
		})
	}
}
