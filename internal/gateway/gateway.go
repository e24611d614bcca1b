package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by Send when the customer has no open chat
// connection. The caller decides whether that matters; for notifications
// it is logged and dropped.
var ErrNotConnected = errors.New("customer not connected")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MessageHandler receives inbound chat text. Implemented by the command
// interpreter.
type MessageHandler interface {
	HandleMessage(customer, text string)
}

// Message is the outbound wire envelope.
type Message struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type client struct {
	id       string
	customer string
	conn     *websocket.Conn
	send     chan Message
	hub      *Hub
	logger   *logrus.Logger
}

// Hub tracks one chat connection per customer number and routes outbound
// messages to it. It is the concrete message sink; anything implementing
// chat.Sink could replace it.
type Hub struct {
	clients    map[string]*client
	register   chan *client
	unregister chan *client
	handler    MessageHandler
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

// SetHandler wires the inbound message handler. Must be called before the
// hub accepts connections.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mutex.Lock()
			if old, ok := h.clients[c.customer]; ok {
				// New connection replaces a stale one for the same number.
				close(old.send)
			}
			h.clients[c.customer] = c
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{
				"connection": c.id,
				"customer":   c.customer,
				"clients":    count,
			}).Info("Chat client connected")

		case c := <-h.unregister:
			h.mutex.Lock()
			if current, ok := h.clients[c.customer]; ok && current == c {
				delete(h.clients, c.customer)
				close(c.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{
				"connection": c.id,
				"customer":   c.customer,
				"clients":    count,
			}).Info("Chat client disconnected")
		}
	}
}

// Send delivers text to the customer's chat connection. Fire-and-forget:
// a full buffer drops the message rather than blocking the caller.
func (h *Hub) Send(customer, text string) error {
	// The lock is held across the channel send so Run cannot close the
	// client's channel mid-send. The send itself never blocks.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	c, ok := h.clients[customer]
	if !ok {
		return ErrNotConnected
	}

	msg := Message{
		Text:      text,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// ClientCount reports the number of open chat connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades an HTTP request into a chat connection. The
// customer number comes from the "numero" query parameter.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	customer := r.URL.Query().Get("numero")
	if customer == "" {
		http.Error(w, "numero query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	c := &client{
		id:       uuid.New().String(),
		customer: customer,
		conn:     conn,
		send:     make(chan Message, 64),
		hub:      h,
		logger:   h.logger,
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).WithField("customer", c.customer).Error("WebSocket error")
			}
			break
		}
		if c.hub.handler != nil {
			c.hub.handler.HandleMessage(c.customer, string(data))
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.WithError(err).Error("Failed to marshal chat message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
