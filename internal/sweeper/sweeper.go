package sweeper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/internal/chat"
	"github.com/marcosgomes068/espeto-bot/internal/events"
	"github.com/marcosgomes068/espeto-bot/internal/orders"
)

const (
	DefaultTimeout  = 30 * time.Minute
	DefaultInterval = 5 * time.Minute
)

// Sweeper periodically expires orders that sat idle past the timeout
// window. Removal goes through the engine so it is serialized with command
// processing; the expiry notice is sent afterwards and a delivery failure
// never undoes the removal.
type Sweeper struct {
	engine   *orders.Engine
	sink     chat.Sink
	messages chat.Messages
	producer *events.Producer
	timeout  time.Duration
	interval time.Duration
	logger   *logrus.Logger
	nowFunc  func() time.Time
}

func New(engine *orders.Engine, sink chat.Sink, messages chat.Messages, producer *events.Producer, timeout, interval time.Duration, logger *logrus.Logger) *Sweeper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		engine:   engine,
		sink:     sink,
		messages: messages,
		producer: producer,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"interval": s.interval.String(),
		"timeout":  s.timeout.String(),
	}).Info("Timeout sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Timeout sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep expires every order older than the timeout window and sends one
// expiry notice per removed order.
func (s *Sweeper) Sweep() int {
	deadline := s.nowFunc().Add(-s.timeout)
	expired := s.engine.ExpireStale(deadline)

	for i := range expired {
		order := &expired[i]
		if err := s.sink.Send(order.Customer, s.messages.Expired(order.Code)); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"code":     order.Code,
				"customer": order.Customer,
			}).Error("Failed to send expiry notice")
		}
		if err := s.producer.PublishOrderExpired(order); err != nil {
			s.logger.WithError(err).WithField("code", order.Code).Error("Failed to publish expiry event")
		}
	}

	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("Expired stale orders")
	}
	return len(expired)
}
