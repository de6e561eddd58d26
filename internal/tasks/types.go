package tasks

import "time"

// Task Types
const (
	TaskTypeMailStatusChange = "mail:status_change"
	TaskTypeTokenSweep       = "hospital:token_sweep"
)

// Task Queues
const (
	QueueCritical = "critical" // credential and verification mail
	QueueDefault  = "default"
	QueueLow      = "low" // background sweeps
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
)

// Task Retry Settings
const (
	RetryDefault = 3
)

// StatusChangePayload is the body of a mail:status_change task.
type StatusChangePayload struct {
	Email        string `json:"email"`
	HospitalName string `json:"hospitalName"`
	Status       string `json:"status"`
}
