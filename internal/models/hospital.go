package models

import (
	"fmt"
	"time"
)

// Hospital is a tenant. Each hospital owns an isolated identity store,
// addressed by TenantID for the hospital's lifetime.
type Hospital struct {
	Base
	Name              string         `gorm:"not null" json:"name" validate:"required,min=2"`
	LicenseNumber     string         `gorm:"uniqueIndex;not null" json:"licenseNumber" validate:"required"`
	Address           string         `gorm:"not null" json:"address" validate:"required"`
	Phone             string         `gorm:"not null" json:"phone" validate:"required"`
	Email             string         `gorm:"not null" json:"email" validate:"required,email"`
	TenantID          string         `gorm:"uniqueIndex;not null" json:"tenantId"`
	Status            HospitalStatus `gorm:"not null;default:'PENDING'" json:"status"`
	VerificationToken string         `json:"-"`
	TokenExpiry       *time.Time     `json:"-"`
}

// hospitalTransitions is the tenant onboarding state machine. PENDING must pass
// through VERIFIED before ACTIVE, and only ACTIVE hospitals can be suspended.
// INACTIVE is terminal.
var hospitalTransitions = map[HospitalStatus][]HospitalStatus{
	HospitalStatusPending:   {HospitalStatusVerified, HospitalStatusInactive},
	HospitalStatusVerified:  {HospitalStatusActive, HospitalStatusInactive},
	HospitalStatusActive:    {HospitalStatusSuspended, HospitalStatusInactive},
	HospitalStatusSuspended: {HospitalStatusActive, HospitalStatusInactive},
	HospitalStatusInactive:  {},
}

// CanTransition reports whether the status change from s to target is allowed.
func (s HospitalStatus) CanTransition(target HospitalStatus) bool {
	for _, allowed := range hospitalTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Operable reports whether tenant-scoped operations (identity resolution,
// routing) are permitted for this status.
func (s HospitalStatus) Operable() bool {
	return s == HospitalStatusActive || s == HospitalStatusVerified
}

func IsValidHospitalStatus(s HospitalStatus) bool {
	switch s {
	case HospitalStatusPending, HospitalStatusVerified, HospitalStatusActive,
		HospitalStatusSuspended, HospitalStatusInactive:
		return true
	default:
		return false
	}
}

// Transition mutates the hospital status after checking the state machine.
func (h *Hospital) Transition(target HospitalStatus) error {
	if !h.Status.CanTransition(target) {
		return fmt.Errorf("hospital %s cannot move from %s to %s", h.Name, h.Status, target)
	}
	h.Status = target
	return nil
}

func (h *Hospital) Operable() bool {
	return h.Status.Operable()
}
