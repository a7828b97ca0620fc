package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floworc/engine/internal/action"
	"github.com/floworc/engine/internal/domain"
	"github.com/floworc/engine/internal/eventbus"
)

type memStore struct {
	mu    sync.Mutex
	execs map[string]*domain.Execution
	logs  []*domain.ExecutionLog
}

func newMemStore() *memStore {
	return &memStore{execs: make(map[string]*domain.Execution)}
}

func (s *memStore) CreateExecution(_ context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.execs[exec.ID] = &cp
	return nil
}

func (s *memStore) UpdateExecution(_ context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.execs[exec.ID] = &cp
	return nil
}

func (s *memStore) AppendLog(_ context.Context, log *domain.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	s.logs = append(s.logs, &cp)
	return nil
}

func (s *memStore) logsFor(nodeID string) []*domain.ExecutionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ExecutionLog
	for _, l := range s.logs {
		if l.NodeID == nodeID {
			out = append(out, l)
		}
	}
	return out
}

func newTestExecutor(reg *action.Registry) (*Executor, *memStore) {
	store := newMemStore()
	bus := eventbus.New()
	return New(reg, store, bus, nil), store
}

func TestExecutor_LinearSuccessPath(t *testing.T) {
	var order []string
	var mu sync.Mutex
	track := func(name string) action.Handler {
		return func(ctx context.Context, in action.Input) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	reg := action.NewRegistry()
	reg.Register("step_a", track("a"))
	reg.Register("step_b", track("b"))

	workflow := &domain.Workflow{
		ID: "wf1",
		Nodes: []*domain.Node{
			{ID: "n1", Type: domain.NodeTypeStart, Action: "step_a"},
			{ID: "n2", Type: domain.NodeTypeAction, Action: "step_b"},
		},
		Edges: []*domain.Edge{{Source: "n1", Target: "n2"}},
	}

	exec, store := newTestExecutor(reg)
	result, err := exec.Run(context.Background(), workflow, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionSucceeded, result.Status)
	assert.Equal(t, []string{"a", "b"}, order)

	assert.Len(t, store.logsFor("n1"), 2)
	assert.Equal(t, domain.LogCompleted, store.logsFor("n1")[1].Status)
	assert.Len(t, store.logsFor("n2"), 2)
	assert.Equal(t, domain.LogCompleted, store.logsFor("n2")[1].Status)
}

func TestExecutor_RetryThenSucceed(t *testing.T) {
	var attempts int
	reg := action.NewRegistry()
	reg.Register("flaky", func(ctx context.Context, in action.Input) error {
		attempts++
		if attempts <= 1 {
			return fmt.Errorf("transient failure")
		}
		return nil
	})

	workflow := &domain.Workflow{
		ID:    "wf2",
		Nodes: []*domain.Node{{ID: "n1", Type: domain.NodeTypeStart, Action: "flaky", Retries: 1}},
	}

	exec, store := newTestExecutor(reg)
	result, err := exec.Run(context.Background(), workflow, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionSucceeded, result.Status)

	logs := store.logsFor("n1")
	require.Len(t, logs, 3)
	assert.Equal(t, domain.LogStarted, logs[0].Status)
	assert.Equal(t, domain.LogRetry, logs[1].Status)
	assert.Equal(t, domain.LogCompleted, logs[2].Status)
}

func TestExecutor_FailAfterExhaustingRetries(t *testing.T) {
	reg := action.NewRegistry()
	reg.Register("always_fails", func(ctx context.Context, in action.Input) error {
		return fmt.Errorf("permanent failure")
	})

	workflow := &domain.Workflow{
		ID:    "wf3",
		Nodes: []*domain.Node{{ID: "n1", Type: domain.NodeTypeStart, Action: "always_fails", Retries: 1}},
	}

	exec, store := newTestExecutor(reg)
	result, err := exec.Run(context.Background(), workflow, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ExecutionFailed, result.Status)

	logs := store.logsFor("n1")
	require.Len(t, logs, 3)
	assert.Equal(t, domain.LogStarted, logs[0].Status)
	assert.Equal(t, domain.LogRetry, logs[1].Status)
	assert.Equal(t, domain.LogError, logs[2].Status)
}

func TestExecutor_ConditionalBranchOnlyTraversesPassingEdge(t *testing.T) {
	var ranNodes []string
	var mu sync.Mutex
	track := func(name string) action.Handler {
		return func(ctx context.Context, in action.Input) error {
			mu.Lock()
			ranNodes = append(ranNodes, name)
			mu.Unlock()
			return nil
		}
	}

	reg := action.NewRegistry()
	reg.Register("check", track("check"))
	reg.Register("ack", track("ack"))
	reg.Register("escalate", track("escalate"))

	workflow := &domain.Workflow{
		ID: "wf4",
		Nodes: []*domain.Node{
			{ID: "start", Type: domain.NodeTypeStart, Action: "check"},
			{ID: "ack_node", Type: domain.NodeTypeAction, Action: "ack"},
			{ID: "escalate_node", Type: domain.NodeTypeAction, Action: "escalate"},
		},
		Edges: []*domain.Edge{
			{Source: "start", Target: "ack_node", Condition: &domain.Condition{
				Op: domain.OpEq, Path: "data.ticket_assigned", Value: true,
			}},
			{Source: "start", Target: "escalate_node", Condition: &domain.Condition{
				Op: domain.OpEq, Path: "data.ticket_assigned", Value: false,
			}},
		},
	}

	exec, store := newTestExecutor(reg)
	result, err := exec.Run(context.Background(), workflow, map[string]any{"ticket_assigned": false})
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionSucceeded, result.Status)

	assert.ElementsMatch(t, []string{"check", "escalate"}, ranNodes)
	assert.Empty(t, store.logsFor("ack_node"))
	assert.NotEmpty(t, store.logsFor("escalate_node"))
}

func TestExecutor_CycleDetectionFailsExecutionWithoutInfiniteLooping(t *testing.T) {
	var runs int
	reg := action.NewRegistry()
	reg.Register("loop", func(ctx context.Context, in action.Input) error {
		runs++
		return nil
	})

	workflow := &domain.Workflow{
		ID: "wf5",
		Nodes: []*domain.Node{
			{ID: "n1", Type: domain.NodeTypeStart, Action: "loop"},
			{ID: "n2", Type: domain.NodeTypeAction, Action: "loop"},
		},
		Edges: []*domain.Edge{
			{Source: "n1", Target: "n2"},
			{Source: "n2", Target: "n1"},
		},
	}

	exec, store := newTestExecutor(reg)
	result, err := exec.Run(context.Background(), workflow, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ExecutionFailed, result.Status)
	assert.Equal(t, 2, runs)

	n1Logs := store.logsFor("n1")
	require.Len(t, n1Logs, 3)
	assert.Equal(t, domain.LogStarted, n1Logs[0].Status)
	assert.Equal(t, domain.LogCompleted, n1Logs[1].Status)
	assert.Equal(t, domain.LogError, n1Logs[2].Status)
}

func TestExecutor_UnknownActionIsNoOp(t *testing.T) {
	reg := action.NewRegistry()
	workflow := &domain.Workflow{
		ID:    "wf6",
		Nodes: []*domain.Node{{ID: "n1", Type: domain.NodeTypeStart, Action: "does_not_exist"}},
	}

	exec, store := newTestExecutor(reg)
	result, err := exec.Run(context.Background(), workflow, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionSucceeded, result.Status)

	logs := store.logsFor("n1")
	require.Len(t, logs, 2)
	assert.Equal(t, domain.LogStarted, logs[0].Status)
	assert.Equal(t, domain.LogCompleted, logs[1].Status)
}
