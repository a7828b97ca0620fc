// Package eventbus is the single fan-out abstraction the executor and
// scheduler publish through. It has no opinion on where events end up: the
// local WebSocket hub and the external pub/sub bridge are both just
// observer.Observer implementations registered with it, so callers never
// need to know how many downstream sinks exist or wire them separately.
package eventbus

import (
	"context"
	"time"

	"github.com/floworc/engine/internal/observer"
)

// Bus fans execution and job lifecycle events out to every registered
// Observer.
type Bus struct {
	manager *observer.Manager
}

// New creates a Bus backed by a fresh observer.Manager.
func New(opts ...observer.ManagerOption) *Bus {
	return &Bus{manager: observer.NewManager(opts...)}
}

// Register adds a downstream sink (WebSocket, realtime bridge, HTTP
// callback, or a test mock) to the bus.
func (b *Bus) Register(obs observer.Observer) error {
	return b.manager.Register(obs)
}

// Unregister removes a previously registered sink by name.
func (b *Bus) Unregister(name string) error {
	return b.manager.Unregister(name)
}

// SubscriberCount returns how many sinks are currently registered.
func (b *Bus) SubscriberCount() int {
	return b.manager.Count()
}

// Publish delivers event to every registered sink. The caller must already
// have sequenced its own persistent state (execution log row, job status)
// before calling Publish, since delivery itself fans out asynchronously.
func (b *Bus) Publish(ctx context.Context, event observer.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.manager.Notify(ctx, event)
}
