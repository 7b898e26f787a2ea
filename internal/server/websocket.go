package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventHub bridges the ledger's change events to WebSocket clients.
type eventHub struct {
	ledger interfaces.LedgerService
	logger *common.Logger

	mu      sync.RWMutex
	clients map[*eventClient]bool

	cancel func()
	done   chan struct{}
}

// eventClient represents a connected WebSocket client.
type eventClient struct {
	hub  *eventHub
	conn *websocket.Conn
	send chan []byte
}

func newEventHub(logger *common.Logger, ledger interfaces.LedgerService) *eventHub {
	return &eventHub{
		ledger:  ledger,
		logger:  logger,
		clients: make(map[*eventClient]bool),
		done:    make(chan struct{}),
	}
}

// Start subscribes to the ledger and begins forwarding events.
func (h *eventHub) Start() {
	events, cancel := h.ledger.Subscribe(256)
	h.cancel = cancel

	go func() {
		defer close(h.done)
		for event := range events {
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Failed to marshal change event")
				continue
			}

			h.mu.RLock()
			var slow []*eventClient
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					if h.clients[c] {
						delete(h.clients, c)
						close(c.send)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// Stop unsubscribes from the ledger and disconnects all clients.
func (h *eventHub) Stop() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
	}

	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// ServeWS upgrades an HTTP connection to WebSocket and registers the client.
func (h *eventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &eventClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients.
func (h *eventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump sends messages from the send channel to the WebSocket connection.
func (c *eventClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the WebSocket connection (mainly to detect close).
func (c *eventClient) readPump() {
	defer func() {
		c.hub.mu.Lock()
		if c.hub.clients[c] {
			delete(c.hub.clients, c)
			close(c.send)
		}
		c.hub.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
