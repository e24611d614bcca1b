package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type recordingHandler struct {
	mutex    sync.Mutex
	received []string
}

func (h *recordingHandler) HandleMessage(customer, text string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.received = append(h.received, customer+":"+text)
}

func (h *recordingHandler) snapshot() []string {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return append([]string(nil), h.received...)
}

func newTestHub(t *testing.T) (*Hub, *recordingHandler, *httptest.Server) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	hub := NewHub(logger)
	handler := &recordingHandler{}
	hub.SetHandler(handler)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)
	return hub, handler, srv
}

func dial(t *testing.T, srv *httptest.Server, customer string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?numero=" + customer
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d connected clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSendWithoutConnection(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	hub := NewHub(logger)
	go hub.Run()

	if err := hub.Send("55999990000", "oi"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestInboundMessageReachesHandler(t *testing.T) {
	hub, handler, srv := newTestHub(t)

	conn := dial(t, srv, "55999990000")
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("/status")); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(handler.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Handler never received the inbound message")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := handler.snapshot()[0]
	if got != "55999990000:/status" {
		t.Errorf("Unexpected handler input: %q", got)
	}
}

func TestOutboundMessageReachesClient(t *testing.T) {
	hub, _, srv := newTestHub(t)

	conn := dial(t, srv, "55999990000")
	waitForClients(t, hub, 1)

	if err := hub.Send("55999990000", "Pedido confirmado!"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if msg.Text != "Pedido confirmado!" {
		t.Errorf("Unexpected text: %q", msg.Text)
	}
	if msg.Timestamp == "" {
		t.Error("Message missing timestamp")
	}
}

func TestNewConnectionReplacesOld(t *testing.T) {
	hub, _, srv := newTestHub(t)

	first := dial(t, srv, "55999990000")
	waitForClients(t, hub, 1)

	second := dial(t, srv, "55999990000")

	// The hub closes the stale connection when the new one registers;
	// seeing that close confirms the replacement is complete.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("Expected the old connection to be closed")
	}

	if err := hub.Send("55999990000", "oi"); err != nil {
		t.Fatalf("Send after reconnect failed: %v", err)
	}

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("New connection did not receive the message: %v", err)
	}
	if !strings.Contains(string(data), "oi") {
		t.Errorf("Unexpected payload: %s", data)
	}
}

func TestMissingNumeroRejected(t *testing.T) {
	_, _, srv := newTestHub(t)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without numero, got %d", resp.StatusCode)
	}
}
