package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"hms/internal/api/middleware"
	"hms/internal/models"
	"hms/internal/utils/logger"
)

type AppointmentHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAppointmentHandler(mainDB *gorm.DB) *AppointmentHandler {
	return &AppointmentHandler{db: mainDB, log: logger.New("AppointmentHandler")}
}

type CreateAppointmentRequest struct {
	PatientID       string    `json:"patientId" validate:"required,uuid"`
	DoctorID        string    `json:"doctorId" validate:"required,uuid"`
	AppointmentDate time.Time `json:"appointmentDate" validate:"required"`
}

type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required,oneof=PENDING CONFIRMED COMPLETED CANCELLED"`
}

func (h *AppointmentHandler) Create(c echo.Context) error {
	var req CreateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if req.AppointmentDate.Before(time.Now()) {
		return fail(c, http.StatusBadRequest, "Appointment date must be in the future")
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

	appointment := models.Appointment{
		HospitalID:      hospital.ID,
		PatientID:       patient.ID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		Status:          models.AppointmentStatusPending,
	}
	if err := h.db.WithContext(ctx).Create(&appointment).Error; err != nil {
		return h.log.Error("Failed to create appointment", err)
	}
	return ok(c, http.StatusCreated, "Appointment created", appointment)
}

func (h *AppointmentHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	hospital := middleware.GetHospital(c)

	query := h.db.WithContext(c.Request().Context()).
		Model(&models.Appointment{}).
		Where("hospital_id = ?", hospital.ID)

	if doctorID := c.QueryParam("doctorId"); doctorID != "" {
		query = query.Where("doctor_id = ?", doctorID)
	}
	if patientID := c.QueryParam("patientId"); patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := c.QueryParam("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid date filter, expected YYYY-MM-DD")
		}
		query = query.Where("appointment_date >= ? AND appointment_date < ?", day, day.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count appointments", err)
	}

	var appointments []models.Appointment
	err := query.Preload("Patient").
		Order("appointment_date").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&appointments).Error
	if err != nil {
		return h.log.Error("Failed to list appointments", err)
	}
	return ok(c, http.StatusOK, "Appointments retrieved", paginate(appointments, total, page, pageSize))
}

func (h *AppointmentHandler) UpdateStatus(c echo.Context) error {
	var req UpdateAppointmentStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	hospital := middleware.GetHospital(c)

	var appointment models.Appointment
	err := h.db.WithContext(ctx).
		Where("hospital_id = ?", hospital.ID).
		First(&appointment, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Appointment not found")
		}
		return h.log.Error("Failed to load appointment", err)
	}

	if appointment.Status == models.AppointmentStatusCompleted ||
		appointment.Status == models.AppointmentStatusCancelled {
		return fail(c, http.StatusBadRequest, "Appointment is already finalized")
	}

	if err := h.db.WithContext(ctx).Model(&appointment).Update("status", req.Status).Error; err != nil {
		return h.log.Error("Failed to update appointment status", err)
	}
	return ok(c, http.StatusOK, "Appointment status updated", appointment)
}
