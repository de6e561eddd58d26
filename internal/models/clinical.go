package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Clinical entities live in the main store, tagged with HospitalID. Identity is
// partitioned per tenant for segregation; clinical data is centralized so the
// platform can report across tenants.

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

type Patient struct {
	Base
	HospitalID       string      `gorm:"type:uuid;not null;index" json:"hospitalId"`
	PatientID        string      `gorm:"uniqueIndex" json:"patientId"`
	Name             string      `gorm:"not null" json:"name" validate:"required"`
	DOB              time.Time   `gorm:"not null" json:"dob" validate:"required"`
	Gender           string      `gorm:"not null" json:"gender" validate:"required,oneof=Male Female Other"`
	Phone            string      `gorm:"not null" json:"phone" validate:"required"`
	Email            string      `json:"email" validate:"omitempty,email"`
	BloodGroup       string      `json:"bloodGroup"`
	Type             PatientType `gorm:"not null;default:'OPD'" json:"type"`
	AssignedDoctorID *string     `gorm:"type:uuid;index" json:"assignedDoctorId,omitempty"`
	AssignedNurseID  *string     `gorm:"type:uuid;index" json:"assignedNurseId,omitempty"`
	Department       string      `gorm:"index" json:"department"`

	Address          datatypes.JSONType[Address]          `json:"address"`
	EmergencyContact datatypes.JSONType[EmergencyContact] `json:"emergencyContact"`
	Photo            string                               `json:"photo"`

	ConfidentialityLevel string `gorm:"default:'CONFIDENTIAL'" json:"confidentialityLevel"`
}

type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

type Prescription struct {
	Base
	HospitalID     string                        `gorm:"type:uuid;not null;index" json:"hospitalId"`
	PrescriptionID string                        `gorm:"uniqueIndex" json:"prescriptionId"`
	PatientID      string                        `gorm:"type:uuid;not null;index" json:"patientId" validate:"required,uuid"`
	Patient        *Patient                      `json:"patient,omitempty"`
	DoctorID       string                        `gorm:"type:uuid;not null;index" json:"doctorId"`
	Medicines      datatypes.JSONSlice[Medicine] `json:"medicines" validate:"required,min=1,dive"`
	Notes          string                        `json:"notes"`
	Status         PrescriptionStatus            `gorm:"not null;default:'ACTIVE'" json:"status"`
}

type TestResult struct {
	TestName    string `json:"testName"`
	Value       string `json:"value"`
	Unit        string `json:"unit,omitempty"`
	NormalRange string `json:"normalRange,omitempty"`
	Status      string `json:"status,omitempty"`
}

type Vital struct {
	Base
	HospitalID   string    `gorm:"type:uuid;not null;index" json:"hospitalId"`
	VitalID      string    `gorm:"uniqueIndex" json:"vitalId"`
	PatientID    string    `gorm:"type:uuid;not null;index" json:"patientId" validate:"required,uuid"`
	Patient      *Patient  `json:"patient,omitempty"`
	RecordedByID string    `gorm:"type:uuid;not null" json:"recordedById"`
	RecordedAt   time.Time `json:"recordedAt"`

	Systolic         int     `json:"systolic"`
	Diastolic        int     `json:"diastolic"`
	Pulse            int     `json:"pulse"`
	Temperature      float64 `json:"temperature"`
	TemperatureUnit  string  `gorm:"default:'F'" json:"temperatureUnit"`
	RespiratoryRate  int     `json:"respiratoryRate"`
	OxygenSaturation int     `json:"oxygenSaturation"`
	Weight           float64 `json:"weight"`
	Height           float64 `json:"height"`
	BMI              float64 `json:"bmi"`

	TestResults datatypes.JSONSlice[TestResult] `json:"testResults"`
	Notes       string                          `json:"notes"`
	VisitType   string                          `gorm:"default:'OPD'" json:"visitType"`
}

// BeforeSave derives BMI when both weight (kg) and height (cm) are present.
func (v *Vital) BeforeSave(tx *gorm.DB) error {
	if v.Weight > 0 && v.Height > 0 {
		meters := v.Height / 100
		v.BMI = float64(int(v.Weight/(meters*meters)*100)) / 100
	}
	return nil
}

type Diagnosis struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
}

type Investigation struct {
	TestName    string     `json:"testName"`
	TestType    string     `json:"testType,omitempty"`
	OrderedDate *time.Time `json:"orderedDate,omitempty"`
	Status      string     `json:"status,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type Treatment struct {
	Plan       string `json:"plan,omitempty"`
	FollowUp   bool   `json:"followUp,omitempty"`
	FollowUpOn string `json:"followUpOn,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type PatientHistory struct {
	PresentIllness     string   `json:"presentIllness,omitempty"`
	PastMedicalHistory string   `json:"pastMedicalHistory,omitempty"`
	FamilyHistory      string   `json:"familyHistory,omitempty"`
	SocialHistory      string   `json:"socialHistory,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
}

type MedicalRecord struct {
	Base
	HospitalID string    `gorm:"type:uuid;not null;index" json:"hospitalId"`
	RecordID   string    `gorm:"uniqueIndex" json:"recordId"`
	PatientID  string    `gorm:"type:uuid;not null;index" json:"patientId" validate:"required,uuid"`
	Patient    *Patient  `json:"patient,omitempty"`
	DoctorID   string    `gorm:"type:uuid;not null" json:"doctorId"`
	VisitDate  time.Time `json:"visitDate"`

	ChiefComplaint string                             `json:"chiefComplaint"`
	Diagnosis      datatypes.JSONSlice[Diagnosis]     `json:"diagnosis"`
	Treatment      datatypes.JSONType[Treatment]      `json:"treatment"`
	History        datatypes.JSONType[PatientHistory] `json:"history"`
	Investigations datatypes.JSONSlice[Investigation] `json:"investigations"`
	ClinicalNotes  string                             `json:"clinicalNotes"`
	Status         RecordStatus                       `gorm:"not null;default:'ACTIVE'" json:"status"`
}

type Appointment struct {
	Base
	HospitalID      string            `gorm:"type:uuid;not null;index" json:"hospitalId"`
	PatientID       string            `gorm:"type:uuid;not null;index" json:"patientId" validate:"required,uuid"`
	Patient         *Patient          `json:"patient,omitempty"`
	DoctorID        string            `gorm:"type:uuid;not null;index" json:"doctorId" validate:"required,uuid"`
	AppointmentDate time.Time         `gorm:"not null" json:"appointmentDate" validate:"required"`
	Status          AppointmentStatus `gorm:"not null;default:'PENDING'" json:"status"`
}

// TenantSequence backs human-readable sequential IDs ({tenant}-P-000001 etc.)
// with one atomically incremented row per tenant and kind.
type TenantSequence struct {
	TenantID string `gorm:"primaryKey" json:"tenantId"`
	Kind     string `gorm:"primaryKey" json:"kind"`
	Value    int64  `gorm:"not null;default:0" json:"value"`
}
