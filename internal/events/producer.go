package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/pkg/models"
)

const (
	OrderCreatedTopic       = "orders.created"
	OrderStatusChangedTopic = "orders.status-changed"
	OrderExpiredTopic       = "orders.expired"
)

type OrderCreatedEvent struct {
	EventID   string    `json:"event_id"`
	Code      string    `json:"codigo"`
	Customer  string    `json:"numero"`
	CreatedAt time.Time `json:"created_at"`
	EventTime time.Time `json:"event_time"`
}

type OrderStatusChangedEvent struct {
	EventID   string        `json:"event_id"`
	Code      string        `json:"codigo"`
	Customer  string        `json:"numero"`
	Status    models.Status `json:"status"`
	EventTime time.Time     `json:"event_time"`
}

type OrderExpiredEvent struct {
	EventID   string    `json:"event_id"`
	Code      string    `json:"codigo"`
	Customer  string    `json:"numero"`
	CreatedAt time.Time `json:"created_at"`
	EventTime time.Time `json:"event_time"`
}

// Producer publishes order lifecycle events to Kafka. A nil Producer is a
// valid no-op, so callers never have to branch on whether eventing is
// configured. Publish failures are logged and returned but must never fail
// the order operation that triggered them.
type Producer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewProducer(brokers string, logger *logrus.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *Producer) PublishOrderCreated(order *models.Order) error {
	if p == nil {
		return nil
	}
	event := OrderCreatedEvent{
		EventID:   uuid.New().String(),
		Code:      order.Code,
		Customer:  order.Customer,
		CreatedAt: order.CreatedAt,
		EventTime: time.Now(),
	}
	return p.publish(OrderCreatedTopic, order.Code, event)
}

func (p *Producer) PublishStatusChanged(order *models.Order) error {
	if p == nil {
		return nil
	}
	event := OrderStatusChangedEvent{
		EventID:   uuid.New().String(),
		Code:      order.Code,
		Customer:  order.Customer,
		Status:    order.Status,
		EventTime: time.Now(),
	}
	return p.publish(OrderStatusChangedTopic, order.Code, event)
}

func (p *Producer) PublishOrderExpired(order *models.Order) error {
	if p == nil {
		return nil
	}
	event := OrderExpiredEvent{
		EventID:   uuid.New().String(),
		Code:      order.Code,
		Customer:  order.Customer,
		CreatedAt: order.CreatedAt,
		EventTime: time.Now(),
	}
	return p.publish(OrderExpiredTopic, order.Code, event)
}

func (p *Producer) publish(topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("Failed to publish event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"key":       key,
	}).Info("Event published")

	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
