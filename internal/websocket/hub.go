package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// How often the leaderboard version is polled. Clients refetch only when
	// the version changes, at most once per heartbeat.
	versionHeartbeatInterval = 2 * time.Second

	// Per-client outbound buffer
	sendBufferSize = 256
)

// VersionSource reports the current leaderboard version
type VersionSource interface {
	GetLeaderboardVersion(ctx context.Context) (int64, error)
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and tells them when the
// leaderboard has changed
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	versions VersionSource
	interval time.Duration
	logger   *zap.Logger

	mu          sync.RWMutex
	lastVersion int64
}

// VersionUpdate represents the version heartbeat message
type VersionUpdate struct {
	Type    string `json:"type"`
	Version int64  `json:"version"`
}

// NewHub creates a new WebSocket hub
func NewHub(versions VersionSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		versions:   versions,
		interval:   versionHeartbeatInterval,
		logger:     logger,
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	versionTicker := time.NewTicker(h.interval)
	defer versionTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Client connected", zap.Int("clients", h.GetClientCount()))

			h.sendInitialVersion(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Client disconnected", zap.Int("clients", h.GetClientCount()))

		case <-versionTicker.C:
			h.checkAndBroadcastVersion(ctx)

		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			return
		}
	}
}

// checkAndBroadcastVersion broadcasts the version to all clients if it changed
func (h *Hub) checkAndBroadcastVersion(ctx context.Context) {
	currentVersion, err := h.versions.GetLeaderboardVersion(ctx)
	if err != nil {
		h.logger.Warn("Failed to get leaderboard version", zap.Error(err))
		return
	}

	if currentVersion == h.lastVersion {
		return
	}
	h.lastVersion = currentVersion

	message, err := encodeVersion(currentVersion)
	if err != nil {
		h.logger.Error("Failed to marshal version update", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.logger.Debug("Broadcasting version",
		zap.Int64("version", currentVersion),
		zap.Int("clients", len(h.clients)))

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.logger.Warn("Client send buffer full, skipping")
		}
	}
}

// sendInitialVersion sends the current version to a newly connected client
func (h *Hub) sendInitialVersion(ctx context.Context, client *Client) {
	currentVersion, err := h.versions.GetLeaderboardVersion(ctx)
	if err != nil {
		h.logger.Warn("Failed to get initial version", zap.Error(err))
		return
	}

	if h.lastVersion == 0 {
		h.lastVersion = currentVersion
	}

	message, err := encodeVersion(currentVersion)
	if err != nil {
		h.logger.Error("Failed to marshal initial version", zap.Error(err))
		return
	}

	h.mu.RLock()
	_, exists := h.clients[client]
	h.mu.RUnlock()
	if !exists {
		return
	}

	select {
	case client.send <- message:
	case <-time.After(2 * time.Second):
		h.logger.Warn("Timeout sending initial version")
	}
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeVersion(version int64) ([]byte, error) {
	return json.Marshal(VersionUpdate{
		Type:    "VERSION_UPDATE",
		Version: version,
	})
}

// readPump drains the connection until the client goes away. Clients are
// not expected to send anything.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		// Add queued messages to the current websocket message
		n := len(c.send)
		for i := 0; i < n; i++ {
			w.Write([]byte{'\n'})
			w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}

	// The hub closed the channel
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeWS handles WebSocket requests from clients
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	client.hub.register <- client

	go client.writePump()

	// Blocks until disconnect
	client.readPump()
}
