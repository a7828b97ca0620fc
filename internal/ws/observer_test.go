package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floworc/engine/internal/observer"
)

func TestObserver_OnEventBroadcastsToMatchingWorkflow(t *testing.T) {
	hub := NewHub()
	c := newTestClient("c1", "wf1")
	hub.Register(c)
	waitForCount(t, hub, 1)

	o := NewObserver(hub)
	assert.Equal(t, "websocket", o.Name())

	err := o.OnEvent(context.Background(), observer.Event{
		Type: observer.EventExecutionStarted, WorkflowID: "wf1", ExecutionID: "e1",
	})
	require.NoError(t, err)

	select {
	case raw := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "event", msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, "e1", msg.Event.ExecutionID)
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast event")
	}
}
