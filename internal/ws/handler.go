package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"microgrid/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// snapshotReadings is how many recent readings a new client receives.
const snapshotReadings = 20

// Handler manages WebSocket connections. New clients get a snapshot of
// recent state; afterwards they receive live broadcasts from the bridge.
type Handler struct {
	hub         *Hub
	store       *store.Store
	recommender Recommender
}

func NewHandler(hub *Hub, s *store.Store, recommender Recommender) *Handler {
	return &Handler{hub: hub, store: s, recommender: recommender}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendSnapshot(client)
	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeSnapshotRequest:
		h.sendSnapshot(c)
	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

func (h *Handler) sendSnapshot(c *Client) {
	msg, err := h.snapshotMessage()
	if err != nil {
		log.Printf("Error creating snapshot: %v", err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Handler) snapshotMessage() ([]byte, error) {
	var payload SnapshotPayload

	readings, err := h.store.LatestReadings(snapshotReadings)
	if err != nil {
		return nil, err
	}
	for _, r := range readings {
		payload.Readings = append(payload.Readings, ReadingFromModel(r))
	}

	alerts, err := h.store.UnresolvedAlerts()
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		payload.Alerts = append(payload.Alerts, AlertFromModel(a))
	}

	if h.recommender != nil {
		if rec, err := h.recommender.Recommend(); err == nil {
			payload.Recommendation = &rec
		}
	}

	return NewEnvelope(TypeSnapshot, payload)
}
