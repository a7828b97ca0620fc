package ws

import (
	"context"
	"encoding/json"

	"github.com/floworc/engine/internal/logger"
	"github.com/floworc/engine/internal/observer"
)

// Message is the JSON envelope sent over /ws/executions/{workflow_id}.
type Message struct {
	Type  string          `json:"type"`
	Event *observer.Event `json:"event,omitempty"`
}

// Observer adapts a Hub into an observer.Observer so it can be registered
// with the shared observer.Manager alongside the realtime bridge observer.
type Observer struct {
	hub    *Hub
	filter observer.EventFilter
	logger *logger.Logger
}

// Option configures an Observer.
type Option func(*Observer)

func WithFilter(filter observer.EventFilter) Option {
	return func(o *Observer) { o.filter = filter }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *Observer) { o.logger = l }
}

// NewObserver creates a WebSocket-backed Observer fanning events into hub.
func NewObserver(hub *Hub, opts ...Option) *Observer {
	o := &Observer{hub: hub}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Observer) Name() string                  { return "websocket" }
func (o *Observer) Filter() observer.EventFilter   { return o.filter }
func (o *Observer) GetHub() *Hub                   { return o.hub }

func (o *Observer) OnEvent(_ context.Context, event observer.Event) error {
	msg := o.eventToMessage(event)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	o.hub.Broadcast(event.WorkflowID, data)
	return nil
}

func (o *Observer) eventToMessage(event observer.Event) Message {
	e := event
	return Message{Type: "event", Event: &e}
}
