package ws

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades incoming HTTP requests on /ws/executions/{workflow_id}
// into tracked WebSocket clients.
type Handler struct {
	hub *Hub
}

// NewHandler creates a Handler backed by hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP upgrades the connection and registers it against workflowID.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, workflowID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(uuid.NewString(), workflowID, conn, h.hub)
	h.hub.Register(client)

	welcome, _ := json.Marshal(Message{Type: "control"})
	client.send <- welcome

	client.ReadPump()
}
