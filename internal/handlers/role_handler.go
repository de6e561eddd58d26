package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"hms/internal/models"
	"hms/internal/rbac"
	"hms/internal/utils/logger"
)

// RoleHandler manages the main-store role catalog. Changes here take
// effect on the next request of every affected user, because permission
// gates resolve against the catalog live.
type RoleHandler struct {
	db      *gorm.DB
	catalog *rbac.GormCatalog
	log     *logger.Logger
}

func NewRoleHandler(mainDB *gorm.DB, catalog *rbac.GormCatalog) *RoleHandler {
	return &RoleHandler{
		db:      mainDB,
		catalog: catalog,
		log:     logger.New("RoleHandler"),
	}
}

type CreateRoleRequest struct {
	Name          string   `json:"name" validate:"required,min=2"`
	Description   string   `json:"description"`
	Level         int      `json:"level" validate:"required,min=1"`
	PermissionIDs []string `json:"permissionIds" validate:"omitempty,dive,uuid"`
	ParentRoleID  *string  `json:"parentRoleId,omitempty" validate:"omitempty,uuid"`
}

type UpdateRoleRequest struct {
	Description   *string  `json:"description,omitempty"`
	Level         *int     `json:"level,omitempty" validate:"omitempty,min=1"`
	PermissionIDs []string `json:"permissionIds,omitempty" validate:"omitempty,dive,uuid"`
	ParentRoleID  *string  `json:"parentRoleId,omitempty" validate:"omitempty,uuid"`
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req CreateRoleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	name := strings.ToUpper(strings.TrimSpace(req.Name))

	var existing models.Role
	err := h.db.WithContext(ctx).First(&existing, "name = ?", name).Error
	if err == nil {
		return fail(c, http.StatusBadRequest, "A role with this name already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return h.log.Error("Role duplicate check failed", err)
	}

	role := models.Role{
		Name:        name,
		Description: req.Description,
		Level:       req.Level,
	}
	if req.ParentRoleID != nil {
		// the new role has no ID yet, so only self-reference by the
		// parent chain needs checking
		if err := rbac.ValidateParent(ctx, h.catalog, "", *req.ParentRoleID); err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		role.ParentRoleID = req.ParentRoleID
	}

	permissions, err := h.loadPermissions(ctx, req.PermissionIDs)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	role.Permissions = permissions

	if err := h.db.WithContext(ctx).Create(&role).Error; err != nil {
		return h.log.Error("Failed to create role", err)
	}
	return ok(c, http.StatusCreated, "Role created", role)
}

func (h *RoleHandler) List(c echo.Context) error {
	var roles []models.Role
	err := h.db.WithContext(c.Request().Context()).
		Preload("Permissions").
		Order("level, name").
		Find(&roles).Error
	if err != nil {
		return h.log.Error("Failed to list roles", err)
	}
	return ok(c, http.StatusOK, "Roles retrieved", roles)
}

func (h *RoleHandler) Get(c echo.Context) error {
	role, err := h.catalog.RoleByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			return fail(c, http.StatusNotFound, "Role not found")
		}
		return h.log.Error("Failed to load role", err)
	}
	return ok(c, http.StatusOK, "Role retrieved", role)
}

func (h *RoleHandler) Update(c echo.Context) error {
	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var role models.Role
	err := h.db.WithContext(ctx).First(&role, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Role not found")
		}
		return h.log.Error("Failed to load role", err)
	}

	if req.ParentRoleID != nil {
		if err := rbac.ValidateParent(ctx, h.catalog, role.ID, *req.ParentRoleID); err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		role.ParentRoleID = req.ParentRoleID
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Level != nil {
		role.Level = *req.Level
	}

	if err := h.db.WithContext(ctx).Save(&role).Error; err != nil {
		return h.log.Error("Failed to update role", err)
	}

	if req.PermissionIDs != nil {
		permissions, err := h.loadPermissions(ctx, req.PermissionIDs)
		if err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		if err := h.db.WithContext(ctx).Model(&role).Association("Permissions").Replace(permissions); err != nil {
			return h.log.Error("Failed to update role permissions", err)
		}
		role.Permissions = permissions
	}

	return ok(c, http.StatusOK, "Role updated", role)
}

// Delete refuses while any other role inherits from this one.
func (h *RoleHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var children int64
	err := h.db.WithContext(ctx).Model(&models.Role{}).
		Where("parent_role_id = ?", id).Count(&children).Error
	if err != nil {
		return h.log.Error("Failed to check role children", err)
	}
	if children > 0 {
		return fail(c, http.StatusBadRequest, "Role has child roles and cannot be deleted")
	}

	result := h.db.WithContext(ctx).Delete(&models.Role{}, "id = ?", id)
	if result.Error != nil {
		return h.log.Error("Failed to delete role", result.Error)
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "Role not found")
	}
	return ok(c, http.StatusOK, "Role deleted", nil)
}

func (h *RoleHandler) ListPermissions(c echo.Context) error {
	var permissions []models.Permission
	err := h.db.WithContext(c.Request().Context()).Order("name").Find(&permissions).Error
	if err != nil {
		return h.log.Error("Failed to list permissions", err)
	}
	return ok(c, http.StatusOK, "Permissions retrieved", permissions)
}

func (h *RoleHandler) loadPermissions(ctx context.Context, ids []string) ([]models.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var permissions []models.Permission
	if err := h.db.WithContext(ctx).Find(&permissions, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	if len(permissions) != len(ids) {
		return nil, errors.New("one or more permissions do not exist")
	}
	return permissions, nil
}
