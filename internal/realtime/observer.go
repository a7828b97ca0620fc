package realtime

import (
	"context"
	"fmt"

	"github.com/floworc/engine/internal/observer"
)

// Observer adapts a Bridge into an observer.Observer so job and execution
// events reach it through the same eventbus.Bus as the local WebSocket path.
type Observer struct {
	bridge *Bridge
	filter observer.EventFilter
}

// NewObserver creates a realtime-bridge Observer.
func NewObserver(bridge *Bridge, filter observer.EventFilter) *Observer {
	return &Observer{bridge: bridge, filter: filter}
}

func (o *Observer) Name() string                { return "realtime_bridge" }
func (o *Observer) Filter() observer.EventFilter { return o.filter }

func (o *Observer) OnEvent(ctx context.Context, event observer.Event) error {
	payload := map[string]any{
		"event_type":   string(event.Type),
		"execution_id": event.ExecutionID,
		"workflow_id":  event.WorkflowID,
		"status":       event.Status,
	}
	if event.Message != "" {
		payload["message"] = event.Message
	}
	if event.Err != nil {
		payload["error"] = event.Err.Error()
	}

	if event.JobID != "" {
		payload["job_id"] = event.JobID
		if err := o.bridge.publish(ctx, ChannelRefreshJobs, payload); err != nil {
			return err
		}
		if event.UserID != "" {
			channel := fmt.Sprintf(channelUserJobListFmt, event.UserID)
			return o.bridge.publish(ctx, channel, payload)
		}
		return nil
	}

	return o.bridge.PublishExecutionUpdate(ctx, event.WorkflowID, payload)
}
