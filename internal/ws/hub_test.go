package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id, workflowID string) *Client {
	return &Client{ID: id, workflowID: workflowID, send: make(chan []byte, 4)}
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, hub.ClientCount())
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestClient("c1", "wf1")

	hub.Register(c)
	waitForCount(t, hub, 1)

	hub.Unregister(c)
	waitForCount(t, hub, 0)
}

func TestHub_BroadcastOnlyReachesMatchingWorkflow(t *testing.T) {
	hub := NewHub()
	c1 := newTestClient("c1", "wf1")
	c2 := newTestClient("c2", "wf2")
	hub.Register(c1)
	hub.Register(c2)
	waitForCount(t, hub, 2)

	hub.Broadcast("wf1", []byte("hello"))

	select {
	case msg := <-c1.send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("c1 did not receive broadcast")
	}

	select {
	case msg := <-c2.send:
		t.Fatalf("c2 unexpectedly received broadcast: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_BroadcastDropsWhenSendBufferFull(t *testing.T) {
	hub := NewHub()
	c := newTestClient("c1", "wf1")
	hub.Register(c)
	waitForCount(t, hub, 1)

	for i := 0; i < cap(c.send)+2; i++ {
		hub.Broadcast("wf1", []byte("x"))
	}

	waitForCount(t, hub, 0)
}
