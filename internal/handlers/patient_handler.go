package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/models"
	"hms/internal/services"
	"hms/internal/utils"
	"hms/internal/utils/logger"
)

// PatientHandler serves patient records. Reads always apply the row scope
// computed by the attribute gate, so the free-text search narrows the
// caller's visible set rather than widening it.
type PatientHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatientHandler(mainDB *gorm.DB) *PatientHandler {
	return &PatientHandler{db: mainDB, log: logger.New("PatientHandler")}
}

type CreatePatientRequest struct {
	Name             string                   `json:"name" validate:"required"`
	DOB              time.Time                `json:"dob" validate:"required"`
	Gender           string                   `json:"gender" validate:"required,oneof=Male Female Other"`
	Phone            string                   `json:"phone" validate:"required"`
	Email            string                   `json:"email" validate:"omitempty,email"`
	BloodGroup       string                   `json:"bloodGroup"`
	Type             string                   `json:"type" validate:"omitempty,patient_type"`
	AssignedDoctorID *string                  `json:"assignedDoctorId,omitempty" validate:"omitempty,uuid"`
	AssignedNurseID  *string                  `json:"assignedNurseId,omitempty" validate:"omitempty,uuid"`
	Department       string                   `json:"department"`
	Address          *models.Address          `json:"address,omitempty"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact,omitempty"`
}

type UpdatePatientRequest struct {
	Name             *string `json:"name,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	BloodGroup       *string `json:"bloodGroup,omitempty"`
	Type             *string `json:"type,omitempty" validate:"omitempty,patient_type"`
	AssignedDoctorID *string `json:"assignedDoctorId,omitempty" validate:"omitempty,uuid"`
	AssignedNurseID  *string `json:"assignedNurseId,omitempty" validate:"omitempty,uuid"`
	Department       *string `json:"department,omitempty"`
}

// Create registers a patient with the next sequential identifier for the
// tenant.
func (h *PatientHandler) Create(c echo.Context) error {
	var req CreatePatientRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	hospital := middleware.GetHospital(c)

	patientID, err := utils.NextSequenceID(ctx, h.db, hospital.TenantID, utils.SequencePatient)
	if err != nil {
		return h.log.Error("Failed to allocate patient ID", err)
	}

	patient := models.Patient{
		HospitalID:       hospital.ID,
		PatientID:        patientID,
		Name:             req.Name,
		DOB:              req.DOB,
		Gender:           req.Gender,
		Phone:            req.Phone,
		Email:            req.Email,
		BloodGroup:       req.BloodGroup,
		Type:             models.PatientTypeOPD,
		AssignedDoctorID: req.AssignedDoctorID,
		AssignedNurseID:  req.AssignedNurseID,
		Department:       req.Department,
	}
	if req.Type != "" {
		patient.Type = models.PatientType(req.Type)
	}
	if req.Address != nil {
		patient.Address = datatypes.NewJSONType(*req.Address)
	}
	if req.EmergencyContact != nil {
		patient.EmergencyContact = datatypes.NewJSONType(*req.EmergencyContact)
	}

	if err := h.db.WithContext(ctx).Create(&patient).Error; err != nil {
		return h.log.Error("Failed to create patient", err)
	}
	return ok(c, http.StatusCreated, "Patient created", patient)
}

// List returns the patients visible to the caller, optionally narrowed by
// a search term. The attribute scope and the search conditions are ANDed.
func (h *PatientHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	query := h.db.WithContext(c.Request().Context()).
		Model(&models.Patient{}).
		Where("hospital_id = ?", hospital.ID).
		Scopes(scope)

	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR patient_id ILIKE ? OR phone ILIKE ?", like, like, like)
	}
	if pType := c.QueryParam("type"); pType != "" {
		query = query.Where("type = ?", pType)
	}
	if department := c.QueryParam("department"); department != "" {
		query = query.Where("department = ?", department)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count patients", err)
	}

	var patients []models.Patient
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&patients).Error
	if err != nil {
		return h.log.Error("Failed to list patients", err)
	}
	return ok(c, http.StatusOK, "Patients retrieved", paginate(patients, total, page, pageSize))
}

// Get loads one patient through the same scope as List, so a direct fetch
// cannot see more than a listing would.
func (h *PatientHandler) Get(c echo.Context) error {
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	var patient models.Patient
	err := h.db.WithContext(c.Request().Context()).
		Where("hospital_id = ?", hospital.ID).
		Scopes(scope).
		First(&patient, "patients.id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Patient not found")
		}
		return h.log.Error("Failed to load patient", err)
	}
	return ok(c, http.StatusOK, "Patient retrieved", patient)
}

func (h *PatientHandler) Update(c echo.Context) error {
	var req UpdatePatientRequest
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
		First(&patient, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Patient not found")
		}
		return h.log.Error("Failed to load patient", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.BloodGroup != nil {
		updates["blood_group"] = *req.BloodGroup
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.AssignedDoctorID != nil {
		updates["assigned_doctor_id"] = *req.AssignedDoctorID
	}
	if req.AssignedNurseID != nil {
		updates["assigned_nurse_id"] = *req.AssignedNurseID
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if len(updates) == 0 {
		return fail(c, http.StatusBadRequest, "Nothing to update")
	}

	if err := h.db.WithContext(ctx).Model(&patient).Updates(updates).Error; err != nil {
		return h.log.Error("Failed to update patient", err)
	}
	return ok(c, http.StatusOK, "Patient updated", patient)
}

// Export streams the caller's visible patients as CSV, under the same
// attribute scope as List.
func (h *PatientHandler) Export(c echo.Context) error {
	hospital := middleware.GetHospital(c)
	scope := middleware.GetRowScope(c)

	hospitalScope := func(tx *gorm.DB) *gorm.DB {
		return scope(tx.Where("hospital_id = ?", hospital.ID))
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="patients-%s.csv"`, time.Now().Format("2006-01-02")))
	c.Response().WriteHeader(http.StatusOK)

	err := services.ExportPatientsCSV(c.Request().Context(), h.db, hospitalScope, c.Response())
	if err != nil {
		return h.log.Error("Failed to export patients", err)
	}
	return nil
}
