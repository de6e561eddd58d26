package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"hms/internal/models"
	"hms/internal/services"
	"hms/internal/utils/logger"
)

// TaskHandler processes queued work against the main store.
type TaskHandler struct {
	db     *gorm.DB
	mailer services.Mailer
	logger *logger.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(db *gorm.DB, mailer services.Mailer) *TaskHandler {
	return &TaskHandler{
		db:     db,
		mailer: mailer,
		logger: logger.New("task_handler"),
	}
}

// HandleStatusChangeMail delivers a hospital status notification.
func (h *TaskHandler) HandleStatusChangeMail(ctx context.Context, t *asynq.Task) error {
	var payload StatusChangePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal status change payload: %w", err)
	}
	if err := h.mailer.SendStatusChangeMail(payload.Email, payload.HospitalName, payload.Status); err != nil {
		return fmt.Errorf("send status change mail to %s: %w", payload.Email, err)
	}
	return nil
}

// HandleTokenSweep clears expired verification tokens from hospitals still
// pending verification. Swept hospitals must re-register to get a new link.
func (h *TaskHandler) HandleTokenSweep(ctx context.Context, t *asynq.Task) error {
	result := h.db.WithContext(ctx).
		Model(&models.Hospital{}).
		Where("status = ? AND token_expiry < ?", models.HospitalStatusPending, time.Now()).
		Updates(map[string]interface{}{
			"verification_token": "",
			"token_expiry":       nil,
		})
	if result.Error != nil {
		return fmt.Errorf("token sweep: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		h.logger.Info("cleared %d expired verification tokens", result.RowsAffected)
	}
	return nil
}
