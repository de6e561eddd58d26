package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/models"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

type PrescriptionHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrescriptionHandler(mainDB *gorm.DB) *PrescriptionHandler {
	return &PrescriptionHandler{db: mainDB, log: logger.New("PrescriptionHandler")}
}

type CreatePrescriptionRequest struct {
	PatientID string            `json:"patientId" validate:"required,uuid"`
	Medicines []models.Medicine `json:"medicines" validate:"required,min=1"`
	Notes     string            `json:"notes"`
}

type UpdatePrescriptionStatusRequest struct {
	Status models.PrescriptionStatus `json:"status" validate:"required,oneof=DRAFT ACTIVE COMPLETED CANCELLED"`
}

// Create issues a prescription authored by the calling doctor.
func (h *PrescriptionHandler) Create(c echo.Context) error {
	var req CreatePrescriptionRequest
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

	prescriptionID, err := utils.NextSequenceID(ctx, h.db, hospital.TenantID, utils.SequencePrescription)
	if err != nil {
		return h.log.Error("Failed to allocate prescription ID", err)
	}

	prescription := models.Prescription{
		HospitalID:     hospital.ID,
		PrescriptionID: prescriptionID,
		PatientID:      patient.ID,
		DoctorID:       middleware.GetUserID(c),
		Medicines:      datatypes.JSONSlice[models.Medicine](req.Medicines),
		Notes:          req.Notes,
		Status:         models.PrescriptionStatusActive,
	}
	if err := h.db.WithContext(ctx).Create(&prescription).Error; err != nil {
		return h.log.Error("Failed to create prescription", err)
	}
	return ok(c, http.StatusCreated, "Prescription created", prescription)
}

// List returns prescriptions under the caller's row scope. Doctors only
// see what they authored.
func (h *PrescriptionHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	query := h.db.WithContext(c.Request().Context()).
		Model(&models.Prescription{}).
		Where("hospital_id = ?", hospital.ID).
		Scopes(scope)

	if patientID := c.QueryParam("patientId"); patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count prescriptions", err)
	}

	var prescriptions []models.Prescription
	err := query.Preload("Patient").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&prescriptions).Error
	if err != nil {
		return h.log.Error("Failed to list prescriptions", err)
	}
	return ok(c, http.StatusOK, "Prescriptions retrieved", paginate(prescriptions, total, page, pageSize))
}

func (h *PrescriptionHandler) Get(c echo.Context) error {
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	var prescription models.Prescription
	err := h.db.WithContext(c.Request().Context()).
		Where("hospital_id = ?", hospital.ID).
		Scopes(scope).
		Preload("Patient").
		First(&prescription, "prescriptions.id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Prescription not found")
		}
		return h.log.Error("Failed to load prescription", err)
	}
	return ok(c, http.StatusOK, "Prescription retrieved", prescription)
}

// UpdateStatus moves a prescription through its lifecycle. Pharmacists use
// this to mark dispensed prescriptions completed.
func (h *PrescriptionHandler) UpdateStatus(c echo.Context) error {
	var req UpdatePrescriptionStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	hospital := middleware.GetHospital(c)

	var prescription models.Prescription
	err := h.db.WithContext(ctx).
		Where("hospital_id = ?", hospital.ID).
		First(&prescription, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Prescription not found")
		}
		return h.log.Error("Failed to load prescription", err)
	}

	if prescription.Status == models.PrescriptionStatusCancelled ||
		prescription.Status == models.PrescriptionStatusCompleted {
		return fail(c, http.StatusBadRequest, "Prescription is already finalized")
	}

	if err := h.db.WithContext(ctx).Model(&prescription).Update("status", req.Status).Error; err != nil {
		return h.log.Error("Failed to update prescription status", err)
	}
	return ok(c, http.StatusOK, "Prescription status updated", prescription)
}
