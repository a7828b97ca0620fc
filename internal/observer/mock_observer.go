package observer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockObserver records every delivered event. It exists for tests.
type MockObserver struct {
	name       string
	mu         sync.Mutex
	events     []Event
	filter     EventFilter
	shouldFail bool
	failErr    error
	delay      time.Duration
}

func NewMockObserver(name string) *MockObserver {
	return &MockObserver{name: name}
}

func (m *MockObserver) Name() string        { return m.name }
func (m *MockObserver) Filter() EventFilter { return m.filter }

func (m *MockObserver) OnEvent(_ context.Context, event Event) error {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if m.shouldFail {
		if m.failErr != nil {
			return m.failErr
		}
		return fmt.Errorf("mock observer error")
	}
	return nil
}

func (m *MockObserver) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockObserver) SetFilter(filter EventFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = filter
}

func (m *MockObserver) SetShouldFail(fail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
	m.failErr = err
}

// SetDelay makes OnEvent sleep for d before recording the event, for tests
// that need to race a slow delivery against a fast one.
func (m *MockObserver) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}
