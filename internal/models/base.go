package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

type UserStatus string

const (
	UserStatusActive          UserStatus = "ACTIVE"
	UserStatusInactive        UserStatus = "INACTIVE"
	UserStatusLocked          UserStatus = "LOCKED"
	UserStatusPasswordExpired UserStatus = "PASSWORD_EXPIRED"
)

type HospitalStatus string

const (
	HospitalStatusPending   HospitalStatus = "PENDING"
	HospitalStatusVerified  HospitalStatus = "VERIFIED"
	HospitalStatusActive    HospitalStatus = "ACTIVE"
	HospitalStatusSuspended HospitalStatus = "SUSPENDED"
	HospitalStatusInactive  HospitalStatus = "INACTIVE"
)

type PatientType string

const (
	PatientTypeOPD PatientType = "OPD"
	PatientTypeIPD PatientType = "IPD"
)

type PrescriptionStatus string

const (
	PrescriptionStatusDraft     PrescriptionStatus = "DRAFT"
	PrescriptionStatusActive    PrescriptionStatus = "ACTIVE"
	PrescriptionStatusCompleted PrescriptionStatus = "COMPLETED"
	PrescriptionStatusCancelled PrescriptionStatus = "CANCELLED"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

type RecordStatus string

const (
	RecordStatusActive    RecordStatus = "ACTIVE"
	RecordStatusCompleted RecordStatus = "COMPLETED"
	RecordStatusCancelled RecordStatus = "CANCELLED"
)
