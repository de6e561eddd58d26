package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"hms/internal/utils/logger"
)

// TaskClient enqueues background work. Status-change mail goes through here
// so a slow relay never blocks the admin's request.
type TaskClient struct {
	client      *asynq.Client
	redisClient *redis.Client
	logger      *logger.Logger
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(redisAddr, username, password string, db int) *TaskClient {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Username: username,
		Password: password,
		DB:       db,
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Username: username,
		Password: password,
		DB:       db,
	})
	return &TaskClient{
		client:      asynq.NewClient(redisOpt),
		redisClient: redisClient,
		logger:      logger.New("TASKS"),
	}
}

// Ping checks the Redis connection backing the queue.
func (c *TaskClient) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

// EnqueueStatusChangeMail schedules a hospital status notification.
// Failures are logged and swallowed; notification mail is best effort.
func (c *TaskClient) EnqueueStatusChangeMail(email, hospitalName, status string) {
	payload, err := json.Marshal(StatusChangePayload{
		Email:        email,
		HospitalName: hospitalName,
		Status:       status,
	})
	if err != nil {
		c.logger.Warn("marshal status change payload: %v", err)
		return
	}
	task := asynq.NewTask(TaskTypeMailStatusChange, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
	)
	if _, err := c.client.Enqueue(task); err != nil {
		c.logger.Warn("enqueue status change mail for %s: %v", email, err)
		return
	}
	c.logger.Info("enqueued status change mail for %s (%s)", email, status)
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	if err := c.redisClient.Close(); err != nil {
		c.logger.Warn("closing redis client: %v", err)
	}
	return c.client.Close()
}

func queueSummary() string {
	return fmt.Sprintf("%s:6 %s:3 %s:1", QueueCritical, QueueDefault, QueueLow)
}
