// Package gateway pushes bus notifications to connected dashboard clients
// over websockets. Transport only: it subscribes to topics and broadcasts,
// with no knowledge of the ingestion pipeline.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"asset-tracking-backend/internal/notify"
)

// Wire event names the dashboard client listens on.
const (
	eventReceiveMessage    = "receiveMessage"
	eventSensorDisconnect  = "onSensorDisconnect"
	eventConnectDisconnect = "onConnectDisconnect"
)

type wireMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Gateway struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func New() *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Attach maps bus topics onto the wire events the dashboard expects. Both
// device and stream connectivity share one wire event; the payload type
// field tells them apart.
func (g *Gateway) Attach(bus *notify.Bus) {
	bus.Subscribe(notify.TopicTelemetryReceived, func(payload any) {
		g.Broadcast(eventReceiveMessage, payload)
	})
	bus.Subscribe(notify.TopicSensorDisconnected, func(payload any) {
		g.Broadcast(eventSensorDisconnect, payload)
	})
	bus.Subscribe(notify.TopicDeviceConnectivity, func(payload any) {
		g.Broadcast(eventConnectDisconnect, payload)
	})
	bus.Subscribe(notify.TopicStreamConnectivity, func(payload any) {
		g.Broadcast(eventConnectDisconnect, payload)
	})
}

// HandleWS upgrades the connection and holds it open until the client
// goes away. Clients only listen; inbound frames are drained and dropped.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "Error upgrading websocket", "error", err)
		return
	}

	g.mu.Lock()
	g.clients[conn] = struct{}{}
	g.mu.Unlock()
	slog.InfoContext(r.Context(), "Dashboard client connected", "remote", conn.RemoteAddr().String())

	defer func() {
		g.mu.Lock()
		delete(g.clients, conn)
		g.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends one wire message to every connected client. Clients that
// fail the write are dropped; delivery is best effort.
func (g *Gateway) Broadcast(event string, data any) {
	msg, err := json.Marshal(wireMessage{Event: event, Data: data})
	if err != nil {
		slog.Error("Error marshalling broadcast", "error", err, "event", event)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(g.clients, conn)
			conn.Close()
		}
	}
}

// CloseAll force-disconnects every client, used on session teardown.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.clients {
		conn.Close()
		delete(g.clients, conn)
	}
}
