// internal/web/websocket.go
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	// The agent binds to a local address; any local page may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message types sent on the feed.
const (
	MessageNotification = "notification"
	MessageDashboard    = "dashboard"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type WSClient struct {
	conn *websocket.Conn
	send chan WSMessage
	hub  *Hub
}

// ConnectionGauge is told when clients come and go. *metrics.Collector satisfies it.
type ConnectionGauge interface {
	RecordWebSocketConnection(delta int)
}

// Hub tracks connected feed clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*WSClient]struct{}
	gauge   ConnectionGauge
}

func NewHub(gauge ConnectionGauge) *Hub {
	return &Hub{
		clients: make(map[*WSClient]struct{}),
		gauge:   gauge,
	}
}

func (h *Hub) register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.gauge != nil {
		h.gauge.RecordWebSocketConnection(1)
	}
}

// unregister closes the client's send channel once.
func (h *Hub) unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok && h.gauge != nil {
		h.gauge.RecordWebSocketConnection(-1)
	}
}

// Broadcast queues message for every client. A client whose buffer is full is dropped.
func (h *Hub) Broadcast(message WSMessage) {
	h.mu.Lock()
	var slow []*WSClient
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		logrus.Warn("Dropping slow websocket client")
		h.unregister(client)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade websocket")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WSMessage, sendBuffer),
		hub:  s.hub,
	}
	s.attach(client)

	go client.writePump()
	go client.readPump()
}

// attach queues the latest snapshot and then registers the client, so
// CloseAll cannot close send before the snapshot is queued.
func (s *Server) attach(client *WSClient) {
	if dash, ok := s.poller.Latest(); ok {
		client.send <- WSMessage{Type: MessageDashboard, Data: newDashboardView(dash)}
	}
	s.hub.register(client)
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.unregister(c)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
