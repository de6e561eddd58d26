package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/models"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

type VitalHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVitalHandler(mainDB *gorm.DB) *VitalHandler {
	return &VitalHandler{db: mainDB, log: logger.New("VitalHandler")}
}

type RecordVitalRequest struct {
	PatientID        string              `json:"patientId" validate:"required,uuid"`
	Systolic         int                 `json:"systolic"`
	Diastolic        int                 `json:"diastolic"`
	Pulse            int                 `json:"pulse"`
	Temperature      float64             `json:"temperature"`
	TemperatureUnit  string              `json:"temperatureUnit" validate:"omitempty,oneof=F C"`
	RespiratoryRate  int                 `json:"respiratoryRate"`
	OxygenSaturation int                 `json:"oxygenSaturation" validate:"omitempty,min=0,max=100"`
	Weight           float64             `json:"weight"`
	Height           float64             `json:"height"`
	TestResults      []models.TestResult `json:"testResults"`
	Notes            string              `json:"notes"`
	VisitType        string              `json:"visitType" validate:"omitempty,oneof=OPD IPD"`
}

type UpdateVitalRequest struct {
	Systolic         *int                `json:"systolic,omitempty"`
	Diastolic        *int                `json:"diastolic,omitempty"`
	Pulse            *int                `json:"pulse,omitempty"`
	Temperature      *float64            `json:"temperature,omitempty"`
	RespiratoryRate  *int                `json:"respiratoryRate,omitempty"`
	OxygenSaturation *int                `json:"oxygenSaturation,omitempty" validate:"omitempty,min=0,max=100"`
	Weight           *float64            `json:"weight,omitempty"`
	Height           *float64            `json:"height,omitempty"`
	TestResults      []models.TestResult `json:"testResults,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
}

// Record stores a vitals reading attributed to the calling staff member.
func (h *VitalHandler) Record(c echo.Context) error {
	var req RecordVitalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	hospital := middleware.GetHospital(c)

	var patient models.Patient
	err := h.db.WithContext(ctx).
		Where("hospital_id = ?", hospital.ID).
		First(&patient, "id = ?", req.PatientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Patient not found")
		}
		return h.log.Error("Failed to load patient", err)
	}

	vitalID, err := utils.NextSequenceID(ctx, h.db, hospital.TenantID, utils.SequenceVital)
	if err != nil {
		return h.log.Error("Failed to allocate vital ID", err)
	}

	vital := models.Vital{
		HospitalID:       hospital.ID,
		VitalID:          vitalID,
		PatientID:        patient.ID,
		RecordedByID:     middleware.GetUserID(c),
		RecordedAt:       time.Now(),
		Systolic:         req.Systolic,
		Diastolic:        req.Diastolic,
		Pulse:            req.Pulse,
		Temperature:      req.Temperature,
		RespiratoryRate:  req.RespiratoryRate,
		OxygenSaturation: req.OxygenSaturation,
		Weight:           req.Weight,
		Height:           req.Height,
		TestResults:      datatypes.JSONSlice[models.TestResult](req.TestResults),
		Notes:            req.Notes,
	}
	if req.TemperatureUnit != "" {
		vital.TemperatureUnit = req.TemperatureUnit
	}
	if req.VisitType != "" {
		vital.VisitType = req.VisitType
	}

	if err := h.db.WithContext(ctx).Create(&vital).Error; err != nil {
		return h.log.Error("Failed to record vitals", err)
	}
	return ok(c, http.StatusCreated, "Vitals recorded", vital)
}

// ListForPatient returns a patient's readings, newest first, under the
// caller's row scope.
func (h *VitalHandler) ListForPatient(c echo.Context) error {
	page, pageSize := pageParams(c)
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	query := h.db.WithContext(c.Request().Context()).
		Model(&models.Vital{}).
		Where("hospital_id = ? AND patient_id = ?", hospital.ID, c.Param("patientId")).
		Scopes(scope)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count vitals", err)
	}

	var vitals []models.Vital
	err := query.Order("recorded_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&vitals).Error
	if err != nil {
		return h.log.Error("Failed to list vitals", err)
	}
	return ok(c, http.StatusOK, "Vitals retrieved", paginate(vitals, total, page, pageSize))
}

// Latest returns the most recent reading for a patient.
func (h *VitalHandler) Latest(c echo.Context) error {
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	var vital models.Vital
	err := h.db.WithContext(c.Request().Context()).
		Where("hospital_id = ? AND patient_id = ?", hospital.ID, c.Param("patientId")).
		Scopes(scope).
		Order("recorded_at DESC").
		First(&vital).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "No vitals recorded for this patient")
		}
		return h.log.Error("Failed to load latest vitals", err)
	}
	return ok(c, http.StatusOK, "Vitals retrieved", vital)
}

func (h *VitalHandler) Get(c echo.Context) error {
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	var vital models.Vital
	err := h.db.WithContext(c.Request().Context()).
		Where("hospital_id = ?", hospital.ID).
		Scopes(scope).
		First(&vital, "vitals.id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Vital record not found")
		}
		return h.log.Error("Failed to load vital record", err)
	}
	return ok(c, http.StatusOK, "Vital record retrieved", vital)
}

// Update corrects a reading. BMI is re-derived on save when weight or
// height change.
func (h *VitalHandler) Update(c echo.Context) error {
	var req UpdateVitalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	hospital := middleware.GetHospital(c)

	var vital models.Vital
	err := h.db.WithContext(ctx).
		Where("hospital_id = ?", hospital.ID).
		First(&vital, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Vital record not found")
		}
		return h.log.Error("Failed to load vital record", err)
	}

	if req.Systolic != nil {
		vital.Systolic = *req.Systolic
	}
	if req.Diastolic != nil {
		vital.Diastolic = *req.Diastolic
	}
	if req.Pulse != nil {
		vital.Pulse = *req.Pulse
	}
	if req.Temperature != nil {
		vital.Temperature = *req.Temperature
	}
	if req.RespiratoryRate != nil {
		vital.RespiratoryRate = *req.RespiratoryRate
	}
	if req.OxygenSaturation != nil {
		vital.OxygenSaturation = *req.OxygenSaturation
	}
	if req.Weight != nil {
		vital.Weight = *req.Weight
	}
	if req.Height != nil {
		vital.Height = *req.Height
	}
	if req.TestResults != nil {
		vital.TestResults = datatypes.JSONSlice[models.TestResult](req.TestResults)
	}
	if req.Notes != nil {
		vital.Notes = *req.Notes
	}

	if err := h.db.WithContext(ctx).Save(&vital).Error; err != nil {
		return h.log.Error("Failed to update vital record", err)
	}
	return ok(c, http.StatusOK, "Vital record updated", vital)
}
