package models

// PermissionAll is the super-admin escape hatch. A role carrying it passes
// every permission gate and stops its own resolution walk.
const PermissionAll = "ALL:ALL"

// Permission is one entry of the immutable RESOURCE:ACTION catalog, seeded at
// startup. Examples: PATIENT:READ, PRESCRIPTION:DISPENSE.
type Permission struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}

// Role lives only in the main store; tenant users reference roles by ID.
// ParentRole forms an inheritance chain: a role grants its direct permissions
// plus everything its ancestors grant.
type Role struct {
	Base
	Name         string       `gorm:"uniqueIndex;not null" json:"name" validate:"required,min=2"`
	Description  string       `json:"description"`
	Level        int          `gorm:"not null" json:"level" validate:"required,min=1"`
	Permissions  []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	ParentRoleID *string      `gorm:"type:uuid" json:"parentRoleId,omitempty"`
	ParentRole   *Role        `json:"parentRole,omitempty"`
}

// RoleRef is the hydrated {id, name} pair the auth middleware attaches to the
// request. Role gates evaluate against these, never against raw IDs.
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Well-known role names seeded at startup.
const (
	RoleSuperAdmin    = "SUPER_ADMIN"
	RoleHospitalAdmin = "HOSPITAL_ADMIN"
	RoleDoctor        = "DOCTOR"
	RoleNurse         = "NURSE"
	RolePharmacist    = "PHARMACIST"
	RoleReceptionist  = "RECEPTIONIST"
)
