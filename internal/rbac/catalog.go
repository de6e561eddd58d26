package rbac

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"hms/internal/models"
)

// ErrRoleNotFound is returned by Catalog implementations for unknown role IDs.
var ErrRoleNotFound = errors.New("role not found")

// Catalog reads roles from the main-store role catalog. Tenant stores never
// hold role documents, so every lookup goes through here.
type Catalog interface {
	// RoleByID loads a role with its direct permissions.
	RoleByID(ctx context.Context, id string) (*models.Role, error)
	// RolesByIDs loads the subset of ids that exist, preserving nothing about
	// order. Missing ids are skipped, not errors.
	RolesByIDs(ctx context.Context, ids []string) ([]models.Role, error)
}

// GormCatalog is the production Catalog over the main store.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) RoleByID(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	err := c.db.WithContext(ctx).Preload("Permissions").First(&role, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (c *GormCatalog) RolesByIDs(ctx context.Context, ids []string) ([]models.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var roles []models.Role
	if err := c.db.WithContext(ctx).Preload("Permissions").
		Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *GormCatalog) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := c.db.WithContext(ctx).Preload("Permissions").First(&role, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}
