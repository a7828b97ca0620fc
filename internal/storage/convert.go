package storage

import (
	"encoding/json"

	"github.com/floworc/engine/internal/domain"
)

// conditionFromJSON round-trips a jsonb condition column into a
// domain.Condition. A nil/empty map means "no condition" (always true).
func conditionFromJSON(m map[string]any) (*domain.Condition, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var c domain.Condition
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// conditionToJSON is the inverse of conditionFromJSON, for writes.
func conditionToJSON(c *domain.Condition) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func toDomainWorkflow(m *WorkflowModel) (*domain.Workflow, error) {
	w := &domain.Workflow{ID: m.ID, Name: m.Name}

	for _, n := range m.Nodes {
		w.Nodes = append(w.Nodes, &domain.Node{
			ID:       n.NodeKey,
			Type:     domain.NodeType(n.Type),
			Action:   n.Action,
			Params:   n.Params,
			Retries:  n.Retries,
			Position: &domain.Position{X: n.PositionX, Y: n.PositionY},
		})
	}

	for _, e := range m.Edges {
		cond, err := conditionFromJSON(e.Condition)
		if err != nil {
			return nil, err
		}
		w.Edges = append(w.Edges, &domain.Edge{Source: e.Source, Target: e.Target, Condition: cond})
	}

	for _, t := range m.Triggers {
		cond, err := conditionFromJSON(t.Condition)
		if err != nil {
			return nil, err
		}
		w.Triggers = append(w.Triggers, &domain.Trigger{Event: t.Event, Condition: cond})
	}

	return w, nil
}

func toExecutionModel(e *domain.Execution) *ExecutionModel {
	return &ExecutionModel{
		ID:          e.ID,
		WorkflowID:  e.WorkflowID,
		Status:      string(e.Status),
		StartedAt:   e.StartedAt,
		FinishedAt:  e.FinishedAt,
		TriggerData: e.TriggerData,
	}
}

func toDomainExecution(m *ExecutionModel) *domain.Execution {
	return &domain.Execution{
		ID:          m.ID,
		WorkflowID:  m.WorkflowID,
		Status:      domain.ExecutionStatus(m.Status),
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		TriggerData: m.TriggerData,
	}
}

func toLogModel(l *domain.ExecutionLog) *ExecutionLogModel {
	return &ExecutionLogModel{
		ID:          l.ID,
		ExecutionID: l.ExecutionID,
		NodeID:      l.NodeID,
		Status:      string(l.Status),
		Message:     l.Message,
		Timestamp:   l.Timestamp,
	}
}

func toDomainLog(m *ExecutionLogModel) *domain.ExecutionLog {
	return &domain.ExecutionLog{
		ID:          m.ID,
		ExecutionID: m.ExecutionID,
		NodeID:      m.NodeID,
		Status:      domain.LogStatus(m.Status),
		Message:     m.Message,
		Timestamp:   m.Timestamp,
	}
}
