package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"

	"hms/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler
func NewScheduler(redisAddr, username, password string, db int, logger *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
		&asynq.SchedulerOpts{},
	)

	return &Scheduler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	// hourly sweep of expired verification tokens
	entryID, err := s.scheduler.Register("@every 1h",
		asynq.NewTask(TaskTypeTokenSweep, nil, asynq.Queue(QueueLow), asynq.Timeout(TimeoutMedium)))
	if err != nil {
		return fmt.Errorf("failed to register token sweep: %w", err)
	}
	s.logger.Info("registered token sweep %s", entryID)
	return nil
}
