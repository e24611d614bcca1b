package store

import (
	"sync"

	"github.com/marcosgomes068/espeto-bot/pkg/models"
)

// Store holds the live orders, keyed by customer number. It is the system
// of record; orders that leave the store are gone. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(customer string) (*models.Order, bool)
	Put(order *models.Order)
	Delete(customer string)
	// FindByCode scans the live orders for a matching code.
	FindByCode(code string) (*models.Order, bool)
	// List returns a snapshot copy of all live orders.
	List() []models.Order
	Len() int
}

// MemoryStore is the in-memory Store used in production. State is
// deliberately ephemeral; a restart drops all live orders.
type MemoryStore struct {
	mutex  sync.RWMutex
	orders map[string]*models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*models.Order),
	}
}

func (s *MemoryStore) Get(customer string) (*models.Order, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, ok := s.orders[customer]
	if !ok {
		return nil, false
	}
	dup := *order
	return &dup, true
}

func (s *MemoryStore) Put(order *models.Order) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	dup := *order
	s.orders[order.Customer] = &dup
}

func (s *MemoryStore) Delete(customer string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.orders, customer)
}

func (s *MemoryStore) FindByCode(code string) (*models.Order, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, order := range s.orders {
		if order.Code == code {
			dup := *order
			return &dup, true
		}
	}
	return nil, false
}

func (s *MemoryStore) List() []models.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, *order)
	}
	return orders
}

func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.orders)
}
