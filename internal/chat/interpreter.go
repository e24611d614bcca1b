package chat

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/internal/events"
	"github.com/marcosgomes068/espeto-bot/internal/orders"
)

// OrderTrigger is the free-text phrase that opens a new order. Matched
// case-insensitively anywhere in the message.
const OrderTrigger = "PEDIDO - ESPETINHOS"

// Sink delivers a text message to a customer's chat. Delivery failures are
// the sink's problem; callers log them and move on.
type Sink interface {
	Send(customer, text string) error
}

// Interpreter turns inbound chat text into engine calls and replies
// through the sink. Engine failures become a single user-facing reply;
// internal detail stays in the logs.
type Interpreter struct {
	engine   *orders.Engine
	sink     Sink
	messages Messages
	producer *events.Producer
	logger   *logrus.Logger
}

func NewInterpreter(engine *orders.Engine, sink Sink, messages Messages, producer *events.Producer, logger *logrus.Logger) *Interpreter {
	return &Interpreter{
		engine:   engine,
		sink:     sink,
		messages: messages,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes one inbound message from a customer.
func (i *Interpreter) HandleMessage(customer, text string) {
	i.logger.WithFields(logrus.Fields{
		"customer": customer,
	}).Info("Message received")

	switch {
	case strings.HasPrefix(text, "/"):
		i.handleCommand(customer, strings.TrimPrefix(text, "/"))
	case strings.Contains(strings.ToLower(text), strings.ToLower(OrderTrigger)):
		i.handleNewOrder(customer, text)
	default:
		i.reply(customer, i.messages.Welcome())
	}
}

func (i *Interpreter) handleCommand(customer, command string) {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "confirmar":
		order, err := i.engine.Confirm(customer)
		if err != nil {
			i.replyError(customer, "confirmar", err)
			return
		}
		i.reply(customer, i.messages.OrderConfirmed(order.Code))

	case "cancelar":
		_, err := i.engine.Cancel(customer)
		if err != nil {
			i.replyError(customer, "cancelar", err)
			return
		}
		i.reply(customer, i.messages.OrderCancelled())

	case "status":
		order, err := i.engine.GetStatus(customer)
		if err != nil {
			i.replyError(customer, "status", err)
			return
		}
		i.reply(customer, i.messages.OrderStatus(order.Code, order.Status))

	case "cardapio":
		i.reply(customer, i.messages.Menu())

	case "ajuda":
		i.reply(customer, i.messages.Help())

	default:
		i.reply(customer, i.messages.UnknownCommand())
	}
}

func (i *Interpreter) handleNewOrder(customer, text string) {
	order, err := i.engine.CreateOrder(customer, text)
	if err != nil {
		i.replyError(customer, "pedido", err)
		return
	}

	if err := i.producer.PublishOrderCreated(order); err != nil {
		i.logger.WithError(err).WithField("code", order.Code).Error("Failed to publish order created event")
	}

	i.reply(customer, i.messages.OrderReceived(order.Code))
}

// replyError maps an engine failure to its user-facing reply. Unexpected
// errors get the generic apology and a log entry with the attempted
// command.
func (i *Interpreter) replyError(customer, command string, err error) {
	var text string
	switch {
	case errors.Is(err, orders.ErrNotFound):
		text = i.messages.NoOrder()
	case errors.Is(err, orders.ErrLimitExceeded):
		text = i.messages.LimitReached()
	case errors.Is(err, orders.ErrAlreadyConfirmed):
		text = i.messages.AlreadyConfirmed()
	case errors.Is(err, orders.ErrAlreadyFinalized):
		text = i.messages.CannotCancelFinalized()
	default:
		i.logger.WithError(err).WithFields(logrus.Fields{
			"customer": customer,
			"command":  command,
		}).Error("Failed to process command")
		text = i.messages.GenericError()
	}
	i.reply(customer, text)
}

func (i *Interpreter) reply(customer, text string) {
	if err := i.sink.Send(customer, text); err != nil {
		i.logger.WithError(err).WithField("customer", customer).Error("Failed to send reply")
	}
}
