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

type MedicalRecordHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMedicalRecordHandler(mainDB *gorm.DB) *MedicalRecordHandler {
	return &MedicalRecordHandler{db: mainDB, log: logger.New("MedicalRecordHandler")}
}

type CreateMedicalRecordRequest struct {
	PatientID      string                 `json:"patientId" validate:"required,uuid"`
	VisitDate      *time.Time             `json:"visitDate,omitempty"`
	ChiefComplaint string                 `json:"chiefComplaint"`
	Diagnosis      []models.Diagnosis     `json:"diagnosis"`
	Treatment      *models.Treatment      `json:"treatment,omitempty"`
	History        *models.PatientHistory `json:"history,omitempty"`
	Investigations []models.Investigation `json:"investigations"`
	ClinicalNotes  string                 `json:"clinicalNotes"`
}

func (h *MedicalRecordHandler) Create(c echo.Context) error {
	var req CreateMedicalRecordRequest
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

	recordID, err := utils.NextSequenceID(ctx, h.db, hospital.TenantID, utils.SequenceMedicalRecord)
	if err != nil {
		return h.log.Error("Failed to allocate record ID", err)
	}

	record := models.MedicalRecord{
		HospitalID:     hospital.ID,
		RecordID:       recordID,
		PatientID:      patient.ID,
		DoctorID:       middleware.GetUserID(c),
		VisitDate:      time.Now(),
		ChiefComplaint: req.ChiefComplaint,
		Diagnosis:      datatypes.JSONSlice[models.Diagnosis](req.Diagnosis),
		Investigations: datatypes.JSONSlice[models.Investigation](req.Investigations),
		ClinicalNotes:  req.ClinicalNotes,
		Status:         models.RecordStatusActive,
	}
	if req.VisitDate != nil {
		record.VisitDate = *req.VisitDate
	}
	if req.Treatment != nil {
		record.Treatment = datatypes.NewJSONType(*req.Treatment)
	}
	if req.History != nil {
		record.History = datatypes.NewJSONType(*req.History)
	}

	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		return h.log.Error("Failed to create medical record", err)
	}
	return ok(c, http.StatusCreated, "Medical record created", record)
}

func (h *MedicalRecordHandler) ListForPatient(c echo.Context) error {
	page, pageSize := pageParams(c)
	hospital := middleware.GetHospital(c)

	query := h.db.WithContext(c.Request().Context()).
		Model(&models.MedicalRecord{}).
		Where("hospital_id = ? AND patient_id = ?", hospital.ID, c.Param("patientId"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count medical records", err)
	}

	var records []models.MedicalRecord
	err := query.Order("visit_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return h.log.Error("Failed to list medical records", err)
	}
	return ok(c, http.StatusOK, "Medical records retrieved", paginate(records, total, page, pageSize))
}

func (h *MedicalRecordHandler) Latest(c echo.Context) error {
	hospital := middleware.GetHospital(c)

	var record models.MedicalRecord
	err := h.db.WithContext(c.Request().Context()).
		Where("hospital_id = ? AND patient_id = ?", hospital.ID, c.Param("patientId")).
		Order("visit_date DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "No medical records for this patient")
		}
		return h.log.Error("Failed to load latest medical record", err)
	}
	return ok(c, http.StatusOK, "Latest medical record retrieved", record)
}

type UpdateMedicalRecordRequest struct {
	ChiefComplaint *string                `json:"chiefComplaint,omitempty"`
	Diagnosis      []models.Diagnosis     `json:"diagnosis,omitempty"`
	Treatment      *models.Treatment      `json:"treatment,omitempty"`
	History        *models.PatientHistory `json:"history,omitempty"`
	Investigations []models.Investigation `json:"investigations,omitempty"`
	ClinicalNotes  *string                `json:"clinicalNotes,omitempty"`
	Status         *models.RecordStatus   `json:"status,omitempty"`
}

func (h *MedicalRecordHandler) Update(c echo.Context) error {
	var req UpdateMedicalRecordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	hospital := middleware.GetHospital(c)

	var record models.MedicalRecord
	err := h.db.WithContext(ctx).
		Where("hospital_id = ?", hospital.ID).
		First(&record, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Medical record not found")
		}
		return h.log.Error("Failed to load medical record", err)
	}

	updates := map[string]interface{}{}
	if req.ChiefComplaint != nil {
		updates["chief_complaint"] = *req.ChiefComplaint
	}
	if req.Diagnosis != nil {
		updates["diagnosis"] = datatypes.JSONSlice[models.Diagnosis](req.Diagnosis)
	}
	if req.Treatment != nil {
		updates["treatment"] = datatypes.NewJSONType(*req.Treatment)
	}
	if req.History != nil {
		updates["history"] = datatypes.NewJSONType(*req.History)
	}
	if req.Investigations != nil {
		updates["investigations"] = datatypes.JSONSlice[models.Investigation](req.Investigations)
	}
	if req.ClinicalNotes != nil {
		updates["clinical_notes"] = *req.ClinicalNotes
	}
	if req.Status != nil {
		if *req.Status != models.RecordStatusActive &&
			*req.Status != models.RecordStatusCompleted &&
			*req.Status != models.RecordStatusCancelled {
			return fail(c, http.StatusBadRequest, "Invalid record status")
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return ok(c, http.StatusOK, "Nothing to update", record)
	}

	if err := h.db.WithContext(ctx).Model(&record).Updates(updates).Error; err != nil {
		return h.log.Error("Failed to update medical record", err)
	}
	return ok(c, http.StatusOK, "Medical record updated", record)
}

func (h *MedicalRecordHandler) Get(c echo.Context) error {
	hospital := middleware.GetHospital(c)

	var record models.MedicalRecord
	err := h.db.WithContext(c.Request().Context()).
		Where("hospital_id = ?", hospital.ID).
		Preload("Patient").
		First(&record, "medical_records.id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Medical record not found")
		}
		return h.log.Error("Failed to load medical record", err)
	}
	return ok(c, http.StatusOK, "Medical record retrieved", record)
}
