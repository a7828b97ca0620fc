package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/floworc/engine/internal/apperr"
	"github.com/floworc/engine/internal/domain"
	"github.com/uptrace/bun"
)

// ExecutionStore is the persistence facade described in §4.5: no business
// logic, just CRUD over executions and their append-only log rows.
type ExecutionStore struct {
	db *bun.DB
}

// NewExecutionStore builds an ExecutionStore over db.
func NewExecutionStore(db *bun.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// CreateExecution inserts a new execution row.
func (s *ExecutionStore) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	model := toExecutionModel(exec)
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return apperr.Handler("insert execution", err).WithExecution(exec.ID)
	}
	return nil
}

// UpdateExecution persists exec's current status/finished_at.
func (s *ExecutionStore) UpdateExecution(ctx context.Context, exec *domain.Execution) error {
	model := toExecutionModel(exec)
	res, err := s.db.NewUpdate().
		Model(model).
		Column("status", "finished_at", "trigger_data").
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperr.Handler("update execution", err).WithExecution(exec.ID)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperr.Handler("update execution rows affected", err).WithExecution(exec.ID)
	}
	if rows == 0 {
		return apperr.NotFound("execution not found", nil).WithExecution(exec.ID)
	}
	return nil
}

// AppendLog inserts one ExecutionLog row. Callers never update or delete a
// log row once written.
func (s *ExecutionStore) AppendLog(ctx context.Context, log *domain.ExecutionLog) error {
	model := toLogModel(log)
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return apperr.Handler("append execution log", err).WithExecution(log.ExecutionID).WithNode(log.NodeID)
	}
	return nil
}

// GetExecution fetches a single execution by ID.
func (s *ExecutionStore) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	model := new(ExecutionModel)
	err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(fmt.Sprintf("execution %s not found", id), err)
		}
		return nil, apperr.Handler("get execution", err).WithExecution(id)
	}
	return toDomainExecution(model), nil
}

// ListExecutions returns every execution for a workflow, most recent first.
func (s *ExecutionStore) ListExecutions(ctx context.Context, workflowID string) ([]*domain.Execution, error) {
	var models []*ExecutionModel
	err := s.db.NewSelect().
		Model(&models).
		Where("workflow_id = ?", workflowID).
		Order("started_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Handler("list executions", err)
	}
	out := make([]*domain.Execution, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainExecution(m))
	}
	return out, nil
}

// ListLogs returns an execution's log rows in the order they were written.
func (s *ExecutionStore) ListLogs(ctx context.Context, executionID string) ([]*domain.ExecutionLog, error) {
	var models []*ExecutionLogModel
	err := s.db.NewSelect().
		Model(&models).
		Where("execution_id = ?", executionID).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Handler("list execution logs", err).WithExecution(executionID)
	}
	out := make([]*domain.ExecutionLog, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainLog(m))
	}
	return out, nil
}
