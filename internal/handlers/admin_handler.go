package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"hms/internal/models"
	"hms/internal/tasks"
	"hms/internal/utils/logger"
)

// AdminHandler serves the platform operator surface: hospital oversight
// and lifecycle control.
type AdminHandler struct {
	db    *gorm.DB
	tasks *tasks.TaskClient
	log   *logger.Logger
}

func NewAdminHandler(mainDB *gorm.DB, taskClient *tasks.TaskClient) *AdminHandler {
	return &AdminHandler{
		db:    mainDB,
		tasks: taskClient,
		log:   logger.New("AdminHandler"),
	}
}

type UpdateHospitalStatusRequest struct {
	Status models.HospitalStatus `json:"status" validate:"required,hospital_status"`
}

func (h *AdminHandler) ListHospitals(c echo.Context) error {
	page, pageSize := pageParams(c)
	query := h.db.WithContext(c.Request().Context()).Model(&models.Hospital{})

	if status := c.QueryParam("status"); status != "" {
		if !models.IsValidHospitalStatus(models.HospitalStatus(status)) {
			return fail(c, http.StatusBadRequest, "Invalid status filter")
		}
		query = query.Where("status = ?", status)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR license_number ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return h.log.Error("Failed to count hospitals", err)
	}

	var hospitals []models.Hospital
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&hospitals).Error
	if err != nil {
		return h.log.Error("Failed to list hospitals", err)
	}

	return ok(c, http.StatusOK, "Hospitals retrieved", paginate(hospitals, total, page, pageSize))
}

func (h *AdminHandler) GetHospital(c echo.Context) error {
	var hospital models.Hospital
	err := h.db.WithContext(c.Request().Context()).First(&hospital, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Hospital not found")
		}
		return h.log.Error("Failed to load hospital", err)
	}
	return ok(c, http.StatusOK, "Hospital retrieved", hospital)
}

// UpdateHospitalStatus applies a lifecycle transition. Disallowed moves,
// including PENDING straight to ACTIVE, are refused with the reason. The
// notification mail is queued, not awaited.
func (h *AdminHandler) UpdateHospitalStatus(c echo.Context) error {
	var req UpdateHospitalStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var hospital models.Hospital
	err := h.db.WithContext(ctx).First(&hospital, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Hospital not found")
		}
		return h.log.Error("Failed to load hospital", err)
	}

	if err := hospital.Transition(req.Status); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	if err := h.db.WithContext(ctx).Model(&hospital).Update("status", hospital.Status).Error; err != nil {
		return h.log.Error("Failed to update hospital status", err)
	}

	h.tasks.EnqueueStatusChangeMail(hospital.Email, hospital.Name, string(hospital.Status))

	return ok(c, http.StatusOK, "Hospital status updated", hospital)
}

// PlatformStats summarizes tenants by lifecycle state for the operator
// dashboard.
func (h *AdminHandler) PlatformStats(c echo.Context) error {
	ctx := c.Request().Context()

	type statusCount struct {
		Status models.HospitalStatus `json:"status"`
		Count  int64                 `json:"count"`
	}
	var counts []statusCount
	err := h.db.WithContext(ctx).
		Model(&models.Hospital{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return h.log.Error("Failed to compute platform stats", err)
	}

	var patients int64
	if err := h.db.WithContext(ctx).Model(&models.Patient{}).Count(&patients).Error; err != nil {
		return h.log.Error("Failed to count patients", err)
	}

	return ok(c, http.StatusOK, "Stats retrieved", map[string]interface{}{
		"hospitalsByStatus": counts,
		"totalPatients":     patients,
	})
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
