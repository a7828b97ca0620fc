// Package engine implements the workflow executor: DFS graph traversal,
// conditional edges, per-node retries, and action dispatch through the
// action registry.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/floworc/engine/internal/action"
	"github.com/floworc/engine/internal/apperr"
	"github.com/floworc/engine/internal/condition"
	"github.com/floworc/engine/internal/domain"
	"github.com/floworc/engine/internal/eventbus"
	"github.com/floworc/engine/internal/logger"
	"github.com/floworc/engine/internal/observer"
)

// Store is the execution store facade the executor persists through.
type Store interface {
	CreateExecution(ctx context.Context, exec *domain.Execution) error
	UpdateExecution(ctx context.Context, exec *domain.Execution) error
	AppendLog(ctx context.Context, log *domain.ExecutionLog) error
}

// Executor runs a Workflow to completion, one Execution per call.
type Executor struct {
	registry *action.Registry
	store    Store
	bus      *eventbus.Bus
	logger   *logger.Logger
}

// New creates an Executor.
func New(registry *action.Registry, store Store, bus *eventbus.Bus, log *logger.Logger) *Executor {
	return &Executor{registry: registry, store: store, bus: bus, logger: log}
}

// Run executes workflow from its entry nodes, persisting the Execution and
// its ExecutionLog rows as it goes, and returns the finished Execution.
func (e *Executor) Run(ctx context.Context, workflow *domain.Workflow, triggerData map[string]any) (*domain.Execution, error) {
	exec := &domain.Execution{
		ID:          uuid.NewString(),
		WorkflowID:  workflow.ID,
		Status:      domain.ExecutionPending,
		StartedAt:   time.Now(),
		TriggerData: triggerData,
	}
	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, apperr.Handler("create execution", err).WithExecution(exec.ID)
	}

	exec.Status = domain.ExecutionRunning
	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		return nil, apperr.Handler("transition execution to running", err).WithExecution(exec.ID)
	}
	e.publish(ctx, observer.Event{
		Type: observer.EventExecutionStarted, ExecutionID: exec.ID, WorkflowID: exec.WorkflowID,
		Status: string(exec.Status),
	})

	execCtx := make(map[string]any, len(triggerData)+1)
	for k, v := range triggerData {
		execCtx[k] = v
	}
	execCtx["trigger_data"] = triggerData

	visited := make(map[string]bool)
	var failed bool
	for _, entry := range workflow.EntryNodes() {
		e.visit(ctx, workflow, entry, visited, execCtx, exec.ID, &failed)
	}

	now := time.Now()
	exec.FinishedAt = &now
	if failed {
		exec.Status = domain.ExecutionFailed
	} else {
		exec.Status = domain.ExecutionSucceeded
	}
	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		return exec, apperr.Handler("finalize execution", err).WithExecution(exec.ID)
	}

	finalType := observer.EventExecutionSucceeded
	if failed {
		finalType = observer.EventExecutionFailed
	}
	e.publish(ctx, observer.Event{
		Type: finalType, ExecutionID: exec.ID, WorkflowID: exec.WorkflowID, Status: string(exec.Status),
	})

	if failed {
		return exec, apperr.Handler("workflow execution failed", nil).WithExecution(exec.ID)
	}
	return exec, nil
}

// visit runs node and, on success, recurses into the outgoing edges whose
// condition passes. visited is shared across the whole traversal: re-entering
// a node already in it is a cycle and fails the execution, per node.id ∈
// visited in the visit procedure.
func (e *Executor) visit(
	ctx context.Context,
	workflow *domain.Workflow,
	node *domain.Node,
	visited map[string]bool,
	execCtx map[string]any,
	executionID string,
	failed *bool,
) {
	if visited[node.ID] {
		e.appendLog(ctx, executionID, node.ID, domain.LogError, fmt.Sprintf("cycle detected at node %q", node.ID))
		e.publish(ctx, observer.Event{
			Type: observer.EventNodeFailed, ExecutionID: executionID, NodeID: node.ID,
			Status: string(domain.LogError), Message: "cycle detected",
		})
		*failed = true
		return
	}
	visited[node.ID] = true

	ok := e.runNode(ctx, node, execCtx, executionID)
	if !ok {
		*failed = true
		return
	}

	for _, edge := range workflow.OutgoingEdges(node.ID) {
		evalCtx := map[string]any{"data": execCtx, "params": node.Params}
		if !condition.Evaluate(edge.Condition, evalCtx) {
			continue
		}
		child := workflow.NodeByID(edge.Target)
		if child == nil {
			continue
		}
		e.visit(ctx, workflow, child, visited, execCtx, executionID, failed)
	}
}

// runNode invokes node's handler with retries, logging started/retry/
// completed/error rows. It returns false if the node ultimately failed.
func (e *Executor) runNode(ctx context.Context, node *domain.Node, execCtx map[string]any, executionID string) bool {
	e.appendLog(ctx, executionID, node.ID, domain.LogStarted, "")
	e.publish(ctx, observer.Event{
		Type: observer.EventNodeStarted, ExecutionID: executionID, NodeID: node.ID, Status: string(domain.LogStarted),
	})

	handler, ok := e.registry.Get(node.Action)
	if !ok {
		// Unknown action: no-op success, matching the registry's contract.
		e.appendLog(ctx, executionID, node.ID, domain.LogCompleted,
			fmt.Sprintf("no handler registered for action %q; treated as no-op", node.Action))
		return true
	}

	params := resolveParams(node.Params, execCtx)

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = handler(ctx, action.Input{Params: params, Context: execCtx})
		if lastErr == nil {
			e.appendLog(ctx, executionID, node.ID, domain.LogCompleted, "")
			e.publish(ctx, observer.Event{
				Type: observer.EventNodeCompleted, ExecutionID: executionID, NodeID: node.ID, Status: string(domain.LogCompleted),
			})
			return true
		}

		if attempt >= node.Retries {
			e.appendLog(ctx, executionID, node.ID, domain.LogError, lastErr.Error())
			e.publish(ctx, observer.Event{
				Type: observer.EventNodeFailed, ExecutionID: executionID, NodeID: node.ID,
				Status: string(domain.LogError), Err: lastErr,
			})
			return false
		}

		e.appendLog(ctx, executionID, node.ID, domain.LogRetry, lastErr.Error())
		e.publish(ctx, observer.Event{
			Type: observer.EventNodeRetrying, ExecutionID: executionID, NodeID: node.ID, Status: string(domain.LogRetry),
		})

		select {
		case <-time.After(NodeBackoff(attempt)):
		case <-ctx.Done():
			e.appendLog(ctx, executionID, node.ID, domain.LogError, ctx.Err().Error())
			return false
		}
	}
}

func (e *Executor) appendLog(ctx context.Context, executionID, nodeID string, status domain.LogStatus, message string) {
	log := &domain.ExecutionLog{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		NodeID:      nodeID,
		Status:      status,
		Message:     message,
		Timestamp:   time.Now(),
	}
	if err := e.store.AppendLog(ctx, log); err != nil && e.logger != nil {
		e.logger.WithExecution(executionID).WithNode(nodeID).ErrorContext(ctx, "append execution log failed", "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, event observer.Event) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, event)
}
