package models

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"hms/internal/config"
	console "hms/internal/utils/logger"
)

var log = console.New("SEEDER")

// permissionCatalog is the immutable RESOURCE:ACTION catalog.
var permissionCatalog = []Permission{
	{Name: PermissionAll, Description: "All system operations"},

	{Name: "DASHBOARD:VIEW", Description: "View dashboard"},

	{Name: "PATIENT:CREATE", Description: "Create new patient"},
	{Name: "PATIENT:READ", Description: "View patient information"},
	{Name: "PATIENT:UPDATE", Description: "Update patient information"},
	{Name: "PATIENT:DELETE", Description: "Delete patient"},

	{Name: "PRESCRIPTION:CREATE", Description: "Create prescription"},
	{Name: "PRESCRIPTION:READ", Description: "View prescription"},
	{Name: "PRESCRIPTION:UPDATE", Description: "Update prescription"},
	{Name: "PRESCRIPTION:DELETE", Description: "Delete prescription"},
	{Name: "PRESCRIPTION:DISPENSE", Description: "Dispense medication"},

	{Name: "APPOINTMENT:CREATE", Description: "Create appointment"},
	{Name: "APPOINTMENT:READ", Description: "View appointment"},
	{Name: "APPOINTMENT:UPDATE", Description: "Update appointment"},
	{Name: "APPOINTMENT:DELETE", Description: "Cancel appointment"},

	{Name: "USER:CREATE", Description: "Create user"},
	{Name: "USER:READ", Description: "View user"},
	{Name: "USER:UPDATE", Description: "Update user"},
	{Name: "USER:DELETE", Description: "Delete user"},

	{Name: "MEDICAL_RECORD:CREATE", Description: "Create medical record"},
	{Name: "MEDICAL_RECORD:READ", Description: "View medical record"},
	{Name: "MEDICAL_RECORD:UPDATE", Description: "Update medical record"},
	{Name: "MEDICAL_RECORD:DELETE", Description: "Delete medical record"},

	{Name: "ROLE:CREATE", Description: "Create custom role"},
	{Name: "ROLE:READ", Description: "View roles"},
	{Name: "ROLE:UPDATE", Description: "Update role"},
	{Name: "ROLE:DELETE", Description: "Delete role"},

	{Name: "HOSPITAL:CONFIGURE", Description: "Configure hospital settings"},
	{Name: "HOSPITAL:MANAGE_USERS", Description: "Manage hospital users"},

	{Name: "VITALS:CREATE", Description: "Record patient vitals"},
	{Name: "VITALS:READ", Description: "View patient vitals"},
	{Name: "VITALS:UPDATE", Description: "Update patient vitals"},
}

type roleSeed struct {
	name        string
	description string
	level       int
	permissions []string
	parent      string
}

// roleCatalog is the seeded hierarchy. DOCTOR/NURSE inherit from
// HOSPITAL_ADMIN via the parent chain; SUPER_ADMIN short-circuits on ALL:ALL.
var roleCatalog = []roleSeed{
	{
		name:        RoleSuperAdmin,
		description: "Platform administrator",
		level:       1,
		permissions: []string{PermissionAll},
	},
	{
		name:        RoleHospitalAdmin,
		description: "Hospital administrator - tenant configuration, user management",
		level:       2,
		permissions: []string{
			"DASHBOARD:VIEW",
			"PATIENT:READ", "PATIENT:UPDATE", "PATIENT:DELETE",
			"PRESCRIPTION:READ",
			"APPOINTMENT:CREATE", "APPOINTMENT:READ", "APPOINTMENT:UPDATE", "APPOINTMENT:DELETE",
			"USER:CREATE", "USER:READ", "USER:UPDATE", "USER:DELETE",
			"ROLE:CREATE", "ROLE:READ", "ROLE:UPDATE", "ROLE:DELETE",
			"HOSPITAL:CONFIGURE", "HOSPITAL:MANAGE_USERS",
		},
	},
	{
		name:        RoleDoctor,
		description: "Medical practitioner - patient management, prescriptions",
		level:       3,
		permissions: []string{
			"DASHBOARD:VIEW",
			"PATIENT:READ", "PATIENT:UPDATE",
			"PRESCRIPTION:CREATE", "PRESCRIPTION:READ", "PRESCRIPTION:UPDATE",
			"APPOINTMENT:CREATE", "APPOINTMENT:READ", "APPOINTMENT:UPDATE",
			"VITALS:CREATE", "VITALS:READ", "VITALS:UPDATE",
			"MEDICAL_RECORD:CREATE", "MEDICAL_RECORD:READ", "MEDICAL_RECORD:UPDATE",
		},
		parent: RoleHospitalAdmin,
	},
	{
		name:        RoleNurse,
		description: "Nursing staff - patient care, vitals",
		level:       4,
		permissions: []string{
			"DASHBOARD:VIEW",
			"PATIENT:READ",
			"PRESCRIPTION:READ",
			"APPOINTMENT:READ",
			"VITALS:CREATE", "VITALS:READ", "VITALS:UPDATE",
			"MEDICAL_RECORD:CREATE", "MEDICAL_RECORD:READ",
		},
		parent: RoleHospitalAdmin,
	},
	{
		name:        RolePharmacist,
		description: "Pharmacy staff - prescription view, dispensing, patient creation",
		level:       4,
		permissions: []string{
			"DASHBOARD:VIEW",
			"PATIENT:CREATE", "PATIENT:READ",
			"PRESCRIPTION:READ", "PRESCRIPTION:DISPENSE",
		},
		parent: RoleHospitalAdmin,
	},
	{
		name:        RoleReceptionist,
		description: "Front desk - patient registration, appointments",
		level:       4,
		permissions: []string{
			"DASHBOARD:VIEW",
			"PATIENT:CREATE", "PATIENT:READ", "PATIENT:UPDATE",
			"APPOINTMENT:CREATE", "APPOINTMENT:READ", "APPOINTMENT:UPDATE",
		},
		parent: RoleHospitalAdmin,
	},
}

// SeedRoles creates the permission catalog and the default role hierarchy.
// Idempotent: existing rows are updated to match the catalog.
func SeedRoles(db *gorm.DB) error {
	permByName := make(map[string]Permission, len(permissionCatalog))
	for _, p := range permissionCatalog {
		perm := p
		if err := db.Where(Permission{Name: p.Name}).
			Attrs(Permission{Description: p.Description}).
			FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seeding permission %s: %w", p.Name, err)
		}
		permByName[perm.Name] = perm
	}

	created := make(map[string]*Role, len(roleCatalog))
	for _, seed := range roleCatalog {
		perms := make([]Permission, 0, len(seed.permissions))
		for _, name := range seed.permissions {
			perm, ok := permByName[name]
			if !ok {
				return fmt.Errorf("role %s references unknown permission %s", seed.name, name)
			}
			perms = append(perms, perm)
		}

		role := Role{Name: seed.name}
		if err := db.Where(Role{Name: seed.name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seeding role %s: %w", seed.name, err)
		}

		role.Description = seed.description
		role.Level = seed.level
		if seed.parent != "" {
			parent, ok := created[seed.parent]
			if !ok {
				return fmt.Errorf("role %s references unseeded parent %s", seed.name, seed.parent)
			}
			role.ParentRoleID = &parent.ID
		}
		if err := db.Save(&role).Error; err != nil {
			return fmt.Errorf("updating role %s: %w", seed.name, err)
		}
		if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("assigning permissions to role %s: %w", seed.name, err)
		}

		created[seed.name] = &role
	}

	log.Success("Seeded %d permissions and %d roles", len(permissionCatalog), len(roleCatalog))
	return nil
}

// CreateSuperAdminFromEnv creates the platform operator account in the main
// store when none exists. Credentials come from SUPERADMIN_* env vars.
func CreateSuperAdminFromEnv(db *gorm.DB, cfg *config.Config) error {
	var role Role
	if err := db.Where("name = ?", RoleSuperAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("super admin role not seeded: %w", err)
	}

	var count int64
	if err := db.Model(&User{}).
		Where("role_ids::jsonb @> ?", fmt.Sprintf("%q", role.ID)).
		Count(&count).Error; err != nil {
		return fmt.Errorf("counting super admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if cfg.Seed.SuperAdminEmail == "" || cfg.Seed.SuperAdminPassword == "" {
		return fmt.Errorf("SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD must be set")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.SuperAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing super admin password: %w", err)
	}

	user := User{
		FirstName: cfg.Seed.SuperAdminName,
		LastName:  "",
		Email:     cfg.Seed.SuperAdminEmail,
		Password:  string(hashed),
		RoleIDs:   []string{role.ID},
		Status:    UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("creating super admin: %w", err)
	}

	log.Success("Created super admin %s", user.Email)
	return nil
}
