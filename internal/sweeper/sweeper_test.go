package sweeper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/internal/chat"
	"github.com/marcosgomes068/espeto-bot/internal/orders"
	"github.com/marcosgomes068/espeto-bot/internal/store"
)

type sentMessage struct {
	customer string
	text     string
}

type recordingSink struct {
	mutex sync.Mutex
	sent  []sentMessage
	fail  bool
}

func (s *recordingSink) Send(customer, text string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.sent = append(s.sent, sentMessage{customer: customer, text: text})
	return nil
}

func newTestSweeper(timeout time.Duration) (*Sweeper, *recordingSink, *orders.Engine, *store.MemoryStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	st := store.NewMemoryStore()
	engine := orders.NewEngine(st, 3, logger)
	sink := &recordingSink{}
	messages := chat.Messages{MenuURL: "https://example.test", Contact: "contact"}
	sw := New(engine, sink, messages, nil, timeout, time.Minute, logger)
	return sw, sink, engine, st
}

func TestSweepExpiresStaleOrders(t *testing.T) {
	sw, sink, engine, st := newTestSweeper(30 * time.Minute)

	first, _ := engine.CreateOrder("55999990000", "PEDIDO - ESPETINHOS")
	second, _ := engine.CreateOrder("55888880000", "PEDIDO - ESPETINHOS")

	// Advance the sweeper's clock past the timeout window.
	sw.nowFunc = func() time.Time { return time.Now().Add(31 * time.Minute) }

	removed := sw.Sweep()
	if removed != 2 {
		t.Fatalf("Expected 2 expired orders, got %d", removed)
	}
	if st.Len() != 0 {
		t.Errorf("Expected empty store after sweep, got %d orders", st.Len())
	}

	// Exactly one expiry notice per expired order, each naming its code.
	if len(sink.sent) != 2 {
		t.Fatalf("Expected 2 expiry notices, got %d", len(sink.sent))
	}
	notices := make(map[string]string)
	for _, msg := range sink.sent {
		notices[msg.customer] = msg.text
	}
	if !strings.Contains(notices["55999990000"], first.Code) {
		t.Error("Expiry notice missing the order code for first customer")
	}
	if !strings.Contains(notices["55888880000"], second.Code) {
		t.Error("Expiry notice missing the order code for second customer")
	}
}

func TestSweepKeepsFreshOrders(t *testing.T) {
	sw, sink, engine, st := newTestSweeper(30 * time.Minute)

	engine.CreateOrder("55999990000", "PEDIDO - ESPETINHOS")

	if removed := sw.Sweep(); removed != 0 {
		t.Fatalf("Expected no expiries, got %d", removed)
	}
	if st.Len() != 1 {
		t.Errorf("Fresh order removed by sweep, store has %d orders", st.Len())
	}
	if len(sink.sent) != 0 {
		t.Errorf("Expected no notices, got %d", len(sink.sent))
	}
}

func TestSweepCompletesRemovalWhenNoticeFails(t *testing.T) {
	sw, sink, engine, st := newTestSweeper(30 * time.Minute)
	sink.fail = true

	engine.CreateOrder("55999990000", "PEDIDO - ESPETINHOS")
	sw.nowFunc = func() time.Time { return time.Now().Add(31 * time.Minute) }

	if removed := sw.Sweep(); removed != 1 {
		t.Fatalf("Expected 1 expiry despite sink failure, got %d", removed)
	}
	if st.Len() != 0 {
		t.Error("Expiry removal rolled back by a notification failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sw, _, _, _ := newTestSweeper(30 * time.Minute)
	sw.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sweeper did not stop after context cancellation")
	}
}
