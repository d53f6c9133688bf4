package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/domain"
)

const (
	RoutingKeyLoanStatusChanged = "loan.status_changed"
	publisherAppID              = "microloan-engine"
)

// Trigger names what caused a status change
type Trigger string

const (
	TriggerTransition Trigger = "transition"
	TriggerPayment    Trigger = "payment"
	TriggerReversal   Trigger = "reversal"
	TriggerRevision   Trigger = "revision"
	TriggerReconcile  Trigger = "reconcile"
)

type LoanStatusChangedEvent struct {
	LoanID    string            `json:"loanId"`
	RefNo     string            `json:"refNo"`
	OldStatus domain.LoanStatus `json:"oldStatus"`
	NewStatus domain.LoanStatus `json:"newStatus"`
	Trigger   Trigger           `json:"trigger"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewLoanStatusChanged builds the event for a loan that moved from old to its current status
func NewLoanStatusChanged(loan *domain.Loan, old domain.LoanStatus, trigger Trigger, at time.Time) LoanStatusChangedEvent {
	return LoanStatusChangedEvent{
		LoanID:    loan.ID.String(),
		RefNo:     loan.RefNo,
		OldStatus: old,
		NewStatus: loan.Status,
		Trigger:   trigger,
		Timestamp: at,
	}
}

// Publisher announces committed loan status changes. Delivery is best effort.
type Publisher interface {
	PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error
}

type RabbitMQPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *zap.Logger
}

func NewRabbitMQPublisher(conn *amqp.Connection, exchangeName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for exchange declaration: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", zap.String("exchange", exchangeName))

	return &RabbitMQPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With(zap.String("component", "RabbitMQPublisher"), zap.String("exchange", exchangeName)),
	}, nil
}

func (p *RabbitMQPublisher) PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error {
	return p.publish(ctx, RoutingKeyLoanStatusChanged, event)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	log := p.logger.With(zap.String("routingKey", routingKey))

	channel, err := p.conn.Channel()
	if err != nil {
		log.Error("Failed to open RabbitMQ channel", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = channel.PublishWithContext(ctx, p.exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
		AppId:        publisherAppID,
	})
	if err != nil {
		log.Error("Failed to publish message to RabbitMQ", zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Debug("Published message", zap.Int("bodySize", len(body)))
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher drops every event; used when no broker is configured
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishLoanStatusChanged(context.Context, LoanStatusChangedEvent) error {
	return nil
}
