package domain

import "time"

// ExecutionStatus is the lifecycle state of a workflow run.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSucceeded ExecutionStatus = "succeeded"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Execution is one run of a Workflow.
type Execution struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Status     ExecutionStatus `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

// LogStatus is the status recorded against a single ExecutionLog row.
type LogStatus string

const (
	LogStarted   LogStatus = "started"
	LogRetry     LogStatus = "retry"
	LogCompleted LogStatus = "completed"
	LogError     LogStatus = "error"
)

// ExecutionLog is one append-only entry in an execution's audit trail. Valid
// sequences per node are: started, [retry]*, (completed|error).
type ExecutionLog struct {
	ID          string    `json:"id"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	Status      LogStatus `json:"status"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
