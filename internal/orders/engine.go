package orders

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/internal/store"
	"github.com/marcosgomes068/espeto-bot/pkg/models"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrLimitExceeded    = errors.New("active order limit reached")
	ErrAlreadyConfirmed = errors.New("order already confirmed")
	ErrAlreadyFinalized = errors.New("order already finalized")
	ErrInvalidStatus    = errors.New("invalid status")
)

const DefaultMaxActive = 3

// Engine owns every status transition. All read-modify-write sequences on
// the store run under the engine mutex, so a confirm racing a cancel (or a
// sweep racing a status update) can never interleave between the status
// check and the write.
type Engine struct {
	store     store.Store
	logger    *logrus.Logger
	maxActive int

	mutex   sync.Mutex
	active  map[string]int
	codeSeq uint32
	nowFunc func() time.Time
}

func NewEngine(st store.Store, maxActive int, logger *logrus.Logger) *Engine {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Engine{
		store:     st,
		logger:    logger,
		maxActive: maxActive,
		active:    make(map[string]int),
		codeSeq:   rand.Uint32(),
		nowFunc:   time.Now,
	}
}

// generateCode builds an order code in the ESP + 9 digit format: six
// digits from the creation time plus a three-digit sequence. The sequence
// comes from a counter rather than a fresh random draw so two orders
// created in the same millisecond still get distinct codes. A code only
// needs to be unique among live orders.
func (e *Engine) generateCode() string {
	millis := e.nowFunc().UnixMilli() % 1_000_000
	e.codeSeq++
	return fmt.Sprintf("ESP%06d%03d", millis, e.codeSeq%1000)
}

// CreateOrder opens a new order in state iniciado and returns it. A new
// order replaces the customer's current one in the store, but each open
// counts against the per-customer limit until the customer's entry leaves
// the store; once the limit is reached creation fails with
// ErrLimitExceeded.
func (e *Engine) CreateOrder(customer, rawText string) (*models.Order, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.active[customer] >= e.maxActive {
		return nil, ErrLimitExceeded
	}

	order := &models.Order{
		Code:      e.generateCode(),
		Customer:  customer,
		Status:    models.StatusIniciado,
		CreatedAt: e.nowFunc(),
		RawText:   rawText,
	}
	e.store.Put(order)
	e.active[customer]++

	e.logger.WithFields(logrus.Fields{
		"code":     order.Code,
		"customer": customer,
	}).Info("New order received")

	return order, nil
}

// Confirm moves the customer's order from iniciado to confirmado.
func (e *Engine) Confirm(customer string) (*models.Order, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	order, ok := e.store.Get(customer)
	if !ok {
		return nil, ErrNotFound
	}
	if order.Status != models.StatusIniciado {
		return nil, ErrAlreadyConfirmed
	}

	order.Status = models.StatusConfirmado
	e.store.Put(order)

	e.logger.WithFields(logrus.Fields{
		"code":     order.Code,
		"customer": customer,
	}).Info("Order confirmed")

	return order, nil
}

// Cancel cancels the customer's order and removes it from the store.
// Finalized orders cannot be cancelled.
func (e *Engine) Cancel(customer string) (*models.Order, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	order, ok := e.store.Get(customer)
	if !ok {
		return nil, ErrNotFound
	}
	if order.Status == models.StatusFinalizado {
		return nil, ErrAlreadyFinalized
	}

	order.Status = models.StatusCancelado
	e.store.Delete(customer)
	delete(e.active, customer)

	e.logger.WithFields(logrus.Fields{
		"code":     order.Code,
		"customer": customer,
	}).Info("Order cancelled")

	return order, nil
}

// GetStatus returns the customer's live order.
func (e *Engine) GetStatus(customer string) (*models.Order, error) {
	order, ok := e.store.Get(customer)
	if !ok {
		return nil, ErrNotFound
	}
	return order, nil
}

// SetStatus applies an operator status change. Both the customer number
// and the code must match the stored order. When the new status is
// entregue the order is finalized and removed in the same call; the
// returned order carries the effective status (finalizado) so the caller
// can tell finalization occurred.
func (e *Engine) SetStatus(customer, code string, status models.Status) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	order, ok := e.store.Get(customer)
	if !ok || order.Code != code {
		return nil, ErrNotFound
	}

	previous := order.Status
	if status == models.StatusEntregue {
		order.Status = models.StatusFinalizado
		e.store.Delete(customer)
		delete(e.active, customer)
	} else {
		order.Status = status
		e.store.Put(order)
	}

	e.logger.WithFields(logrus.Fields{
		"code":     code,
		"customer": customer,
		"from":     previous,
		"to":       order.Status,
	}).Info("Order status updated")

	return order, nil
}

// ExpireStale removes every order created before the deadline and returns
// the removed orders so the caller can notify their customers.
func (e *Engine) ExpireStale(deadline time.Time) []models.Order {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var expired []models.Order
	for _, order := range e.store.List() {
		if order.CreatedAt.Before(deadline) {
			e.store.Delete(order.Customer)
			delete(e.active, order.Customer)
			expired = append(expired, order)
			e.logger.WithFields(logrus.Fields{
				"code":     order.Code,
				"customer": order.Customer,
			}).Info("Order expired")
		}
	}
	return expired
}
