package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcosgomes068/espeto-bot/pkg/models"
)

func TestPutGetDelete(t *testing.T) {
	s := NewMemoryStore()

	order := &models.Order{
		Code:      "ESP123456001",
		Customer:  "55999990000",
		Status:    models.StatusIniciado,
		CreatedAt: time.Now(),
	}
	s.Put(order)

	got, ok := s.Get("55999990000")
	if !ok {
		t.Fatal("Expected order to be present after Put")
	}
	if got.Code != order.Code {
		t.Errorf("Expected code %s, got %s", order.Code, got.Code)
	}

	// The stored order is a copy; mutating the returned value must not
	// change the store.
	got.Status = models.StatusConfirmado
	again, _ := s.Get("55999990000")
	if again.Status != models.StatusIniciado {
		t.Errorf("Store mutated through a returned copy: %s", again.Status)
	}

	s.Delete("55999990000")
	if _, ok := s.Get("55999990000"); ok {
		t.Error("Expected order to be gone after Delete")
	}
}

func TestFindByCode(t *testing.T) {
	s := NewMemoryStore()
	s.Put(&models.Order{Code: "ESP000000001", Customer: "111", Status: models.StatusIniciado})
	s.Put(&models.Order{Code: "ESP000000002", Customer: "222", Status: models.StatusConfirmado})

	order, ok := s.FindByCode("ESP000000002")
	if !ok {
		t.Fatal("Expected to find order by code")
	}
	if order.Customer != "222" {
		t.Errorf("Expected customer 222, got %s", order.Customer)
	}

	if _, ok := s.FindByCode("ESP999999999"); ok {
		t.Error("Expected no match for unknown code")
	}
}

func TestListSnapshot(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		s.Put(&models.Order{
			Code:     fmt.Sprintf("ESP00000000%d", i),
			Customer: fmt.Sprintf("cust-%d", i),
			Status:   models.StatusIniciado,
		})
	}

	orders := s.List()
	if len(orders) != 5 {
		t.Fatalf("Expected 5 orders, got %d", len(orders))
	}
	if s.Len() != 5 {
		t.Errorf("Expected Len 5, got %d", s.Len())
	}

	// Snapshot is detached from the store.
	orders[0].Status = models.StatusCancelado
	for _, order := range s.List() {
		if order.Status != models.StatusIniciado {
			t.Errorf("Snapshot mutation leaked into store: %s", order.Status)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	const numGoroutines = 50
	const numIterations = 20

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			customer := fmt.Sprintf("cust-%d", id)
			for j := 0; j < numIterations; j++ {
				s.Put(&models.Order{
					Code:     fmt.Sprintf("ESP%06d%03d", id, j),
					Customer: customer,
					Status:   models.StatusIniciado,
				})
				s.Get(customer)
				s.List()
				s.Len()
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != numGoroutines {
		t.Errorf("Expected %d orders after concurrent writes, got %d", numGoroutines, s.Len())
	}
}
