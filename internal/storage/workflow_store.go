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

// WorkflowStore loads workflow graphs for the executor to run. Workflow
// CRUD/HTTP routing is out of scope; this is read access only.
type WorkflowStore struct {
	db *bun.DB
}

// NewWorkflowStore builds a WorkflowStore over db.
func NewWorkflowStore(db *bun.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

// FindByID loads a workflow together with its nodes, edges, and triggers.
func (s *WorkflowStore) FindByID(ctx context.Context, id string) (*domain.Workflow, error) {
	model := new(WorkflowModel)
	err := s.db.NewSelect().
		Model(model).
		Relation("Nodes").
		Relation("Edges").
		Relation("Triggers").
		Where("w.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(fmt.Sprintf("workflow %s not found", id), err)
		}
		return nil, apperr.Handler("find workflow", err)
	}
	return toDomainWorkflow(model)
}
