package models

import (
	"time"

	"gorm.io/datatypes"
)

// PasswordStamp is one rotated password hash. The history is capped at the
// last three entries (see utils/password).
type PasswordStamp struct {
	Hash      string    `json:"hash"`
	ChangedAt time.Time `json:"changedAt"`
}

// User describes both physically separate populations with identical shape:
// platform operators in the main store (HospitalID null) and hospital staff in
// per-tenant stores. RoleIDs always reference the main-store role catalog;
// roles are never tenant-local, so tenant stores hold bare IDs only.
type User struct {
	Base
	HospitalID     *string `gorm:"type:uuid;index" json:"hospitalId,omitempty"`
	FirstName      string  `gorm:"not null" json:"firstName" validate:"required"`
	LastName       string  `gorm:"not null" json:"lastName" validate:"required"`
	Email          string  `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Username       *string `gorm:"uniqueIndex" json:"username,omitempty"`
	Phone          string  `json:"phone"`
	Password       string  `gorm:"not null" json:"-"`
	RoleIDs        datatypes.JSONSlice[string] `json:"roles"`
	Department     string  `json:"department"`
	Specialization string  `json:"specialization"`
	Shift          string  `json:"shift"`
	Status         UserStatus `gorm:"not null;default:'ACTIVE'" json:"status"`

	PasswordHistory     datatypes.JSONSlice[PasswordStamp] `json:"-"`
	PasswordChangedAt   *time.Time                         `json:"passwordChangedAt,omitempty"`
	ForcePasswordChange bool                               `gorm:"default:false" json:"forcePasswordChange"`

	ResetToken  string     `gorm:"index" json:"-"`
	ResetExpiry *time.Time `json:"-"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// CanLogin reports whether the account status permits authentication.
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive || u.Status == UserStatusPasswordExpired
}

func IsValidUserStatus(s UserStatus) bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusLocked, UserStatusPasswordExpired:
		return true
	default:
		return false
	}
}

// DirectoryEntry is the main-store reverse index from a user's email to the
// tenant that holds their record. It is maintained as a side effect of every
// successful identity resolution so lookups can skip the tenant scan.
type DirectoryEntry struct {
	Base
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	UserID     string `gorm:"index;not null" json:"userId"`
	HospitalID string `gorm:"type:uuid;not null" json:"hospitalId"`
	TenantID   string `gorm:"not null" json:"tenantId"`
}
