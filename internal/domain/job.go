package domain

import "time"

// JobType identifies what kind of deferred work a Job represents.
type JobType string

const (
	JobWorkflowExecution JobType = "workflow_execution"
	JobEmailSend         JobType = "email_send"
	JobDelay             JobType = "delay"
	JobHTTPRequest       JobType = "http_request"
	JobGeneric           JobType = "generic"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a single piece of deferred or background work tracked by the
// scheduler.
type Job struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        JobType        `json:"type"`
	Status      JobStatus      `json:"status"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	FailedAt    *time.Time     `json:"failed_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// IsTerminal reports whether the job has reached a status it cannot leave.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}
