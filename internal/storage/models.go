// Package storage is the persistence collaborator: a thin bun-backed facade
// over workflows (read-only, for loading a graph to run) and the execution
// store (§4.5) the executor and scheduler persist through.
package storage

import (
	"time"

	"github.com/uptrace/bun"
)

// WorkflowModel is the SQL representation of a workflow and its graph.
type WorkflowModel struct {
	bun.BaseModel `bun:"table:workflows,alias:w"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`

	Nodes    []*NodeModel    `bun:"rel:has-many,join:id=workflow_id"`
	Edges    []*EdgeModel    `bun:"rel:has-many,join:id=workflow_id"`
	Triggers []*TriggerModel `bun:"rel:has-many,join:id=workflow_id"`
}

// NodeModel is one row of the nodes table, cascade-deleted with its workflow.
type NodeModel struct {
	bun.BaseModel `bun:"table:nodes,alias:n"`

	ID         string         `bun:"id,pk"`
	WorkflowID string         `bun:"workflow_id,notnull"`
	NodeKey    string         `bun:"node_key,notnull"` // the workflow-local node ID used by edges
	Type       string         `bun:"type,notnull"`
	Action     string         `bun:"action"`
	Params     map[string]any `bun:"params,type:jsonb"`
	Retries    int            `bun:"retries"`
	PositionX  float64        `bun:"position_x"`
	PositionY  float64        `bun:"position_y"`
}

// EdgeModel is one row of the edges table.
type EdgeModel struct {
	bun.BaseModel `bun:"table:edges,alias:e"`

	ID         string         `bun:"id,pk"`
	WorkflowID string         `bun:"workflow_id,notnull"`
	Source     string         `bun:"source,notnull"`
	Target     string         `bun:"target,notnull"`
	Condition  map[string]any `bun:"condition,type:jsonb"`
}

// TriggerModel is one row of the triggers table.
type TriggerModel struct {
	bun.BaseModel `bun:"table:triggers,alias:t"`

	ID         string         `bun:"id,pk"`
	WorkflowID string         `bun:"workflow_id,notnull"`
	Event      string         `bun:"event,notnull"`
	Condition  map[string]any `bun:"condition,type:jsonb"`
}

// ExecutionModel is one row of the executions table, cascade-deleted with
// its workflow and cascading in turn to execution_logs.
type ExecutionModel struct {
	bun.BaseModel `bun:"table:executions,alias:ex"`

	ID          string         `bun:"id,pk"`
	WorkflowID  string         `bun:"workflow_id,notnull"`
	Status      string         `bun:"status,notnull"`
	StartedAt   time.Time      `bun:"started_at,notnull"`
	FinishedAt  *time.Time     `bun:"finished_at"`
	TriggerData map[string]any `bun:"trigger_data,type:jsonb"`
}

// ExecutionLogModel is one append-only row of the execution_logs table.
type ExecutionLogModel struct {
	bun.BaseModel `bun:"table:execution_logs,alias:el"`

	ID          string    `bun:"id,pk"`
	ExecutionID string    `bun:"execution_id,notnull"`
	NodeID      string    `bun:"node_id,notnull"`
	Status      string    `bun:"status,notnull"`
	Message     string    `bun:"message"`
	Timestamp   time.Time `bun:"timestamp,notnull"`
}

// TicketModel is kept only as the cascading-delete leaf the persistence
// collaborator contract names; ticket CRUD itself is out of scope.
type TicketModel struct {
	bun.BaseModel `bun:"table:tickets,alias:tk"`

	ID         string `bun:"id,pk"`
	WorkflowID string `bun:"workflow_id"`
	Assigned   bool   `bun:"assigned"`
}
