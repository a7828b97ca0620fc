package observer

import (
	"context"
	"fmt"
	"sync"

	"github.com/floworc/engine/internal/logger"
)

// maxConsecutiveFailures is how many delivery failures in a row an observer
// gets before the manager removes it. Unlike the upstream pattern this is
// modeled on, failures are not logged-and-ignored forever: a subscriber that
// keeps failing (a closed websocket, a dead callback URL) is dropped so it
// stops costing a worker goroutine.
const maxConsecutiveFailures = 5

// entryQueueSize bounds each observer's pending-event queue. Notify never
// blocks the caller past this: a queue that fills up means the subscriber is
// falling behind, and the newest event is dropped rather than reordering or
// stalling the publisher (mirroring ws.Hub's per-client send buffer).
const entryQueueSize = 64

// Manager fans an Event out to every registered Observer without blocking
// the caller on any single subscriber. Each observer has its own queue and
// single worker goroutine, so events reach it in the order Notify was
// called, while a slow or blocked subscriber never delays another.
type Manager struct {
	mu        sync.RWMutex
	observers []*entry
	logger    *logger.Logger
}

type entry struct {
	obs      Observer
	failures int
	queue    chan queuedEvent
	stop     chan struct{}
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

func newEntry(obs Observer) *entry {
	return &entry{
		obs:   obs,
		queue: make(chan queuedEvent, entryQueueSize),
		stop:  make(chan struct{}),
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger attaches a logger used for delivery failures and panics.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds obs. Returns an error if an observer with the same name is
// already registered.
func (m *Manager) Register(obs Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.observers {
		if e.obs.Name() == obs.Name() {
			return fmt.Errorf("observer %q already registered", obs.Name())
		}
	}
	e := newEntry(obs)
	m.observers = append(m.observers, e)
	go m.runEntry(e)
	return nil
}

// Unregister removes the observer with the given name and stops its worker.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.observers {
		if e.obs.Name() == name {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			close(e.stop)
			return nil
		}
	}
	return fmt.Errorf("observer %q not found", name)
}

// Count returns the number of registered observers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}

// Notify enqueues event for every observer. Each observer's own worker
// goroutine delivers its queue strictly in enqueue order, so per-execution
// ordering (e.g. node_started before node_completed for the same node) holds
// even when two events are published microseconds apart.
func (m *Manager) Notify(ctx context.Context, event Event) {
	m.mu.RLock()
	snapshot := make([]*entry, len(m.observers))
	copy(snapshot, m.observers)
	m.mu.RUnlock()

	for _, e := range snapshot {
		select {
		case e.queue <- queuedEvent{ctx: ctx, event: event}:
		default:
			if m.logger != nil {
				m.logger.Warn("observer queue full, dropping event",
					"observer", e.obs.Name(), "event_type", string(event.Type))
			}
		}
	}
}

// runEntry is the single worker that drains e's queue in order, until the
// entry is removed by Unregister or repeated-failure eviction.
func (m *Manager) runEntry(e *entry) {
	for {
		select {
		case qe := <-e.queue:
			m.deliver(qe.ctx, e, qe.event)
		case <-e.stop:
			return
		}
	}
}

func (m *Manager) deliver(ctx context.Context, e *entry, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.ErrorContext(ctx, "observer panic recovered",
					"observer", e.obs.Name(), "event_type", string(event.Type), "panic", r)
			}
			m.recordFailure(e)
		}
	}()

	if filter := e.obs.Filter(); filter != nil && !filter.ShouldNotify(event) {
		return
	}

	if err := e.obs.OnEvent(ctx, event); err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "observer delivery failed",
				"observer", e.obs.Name(), "event_type", string(event.Type), "error", err)
		}
		m.recordFailure(e)
		return
	}

	m.mu.Lock()
	e.failures = 0
	m.mu.Unlock()
}

func (m *Manager) recordFailure(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.failures++
	if e.failures < maxConsecutiveFailures {
		return
	}
	for i, cur := range m.observers {
		if cur == e {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			close(e.stop)
			if m.logger != nil {
				m.logger.Warn("observer removed after repeated delivery failures", "observer", e.obs.Name())
			}
			return
		}
	}
}
