package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/internal/utils"
)

const (
	ExchangeMaildeskDirect = "maildesk-direct"
	QueueSendAudit         = "send-audit"
	RoutingKeySendAudit    = "maildesk-send-audit"

	defaultMaxRetries     = 3
	defaultPublishTimeout = 5 * time.Second
)

// SendAuditEvent is the wire shape published after every dispatch attempt.
type SendAuditEvent struct {
	ID          string `json:"id"`
	RecordID    string `json:"recordId"`
	UserID      string `json:"userId"`
	ToEmail     string `json:"toEmail"`
	Subject     string `json:"subject"`
	Success     bool   `json:"success"`
	SentAt      string `json:"sentAt"`
	UberTraceID string `json:"uberTraceId,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// RabbitMQPublisher pushes send-audit events onto a direct exchange with
// publisher confirms. Publishing is best effort from the caller's view;
// a broker outage never fails the send path.
type RabbitMQPublisher struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	confirms        chan amqp091.Confirmation
	url             string
	logger          logger.Logger
}

var _ interfaces.EventPublisher = (*RabbitMQPublisher)(nil)

func NewRabbitMQPublisher(rabbitmqURL string, log logger.Logger) (*RabbitMQPublisher, error) {
	publisher := &RabbitMQPublisher{
		url:    rabbitmqURL,
		logger: log,
	}

	if err := publisher.connect(); err != nil {
		return nil, err
	}

	return publisher, nil
}

func (r *RabbitMQPublisher) PublishSendAudit(ctx context.Context, record *models.SendRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishSendAudit")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if record == nil {
		err := errors.New("record cannot be nil")
		tracing.TraceErr(span, err)
		return err
	}

	tracingData := tracing.ExtractTextMapCarrier(span.Context())

	event := SendAuditEvent{
		ID:          utils.GenerateNanoIDWithPrefix("event", 21),
		RecordID:    record.ID,
		UserID:      record.UserID,
		ToEmail:     record.ToEmail,
		Subject:     record.Subject,
		Success:     record.Success,
		SentAt:      record.SentAt.Format(time.RFC3339),
		UberTraceID: tracingData["uber-trace-id"],
		Timestamp:   utils.Now().Format(time.RFC3339),
	}
	tracing.LogObjectAsJson(span, "event", event)

	for attempt := 0; attempt < defaultMaxRetries; attempt++ {
		err := r.publishWithConfirm(ctx, event)
		if err == nil {
			return nil
		}

		r.logger.Warnf("Publish attempt %d failed: %v", attempt+1, err)
		if attempt < defaultMaxRetries-1 {
			time.Sleep(time.Millisecond * 100 * time.Duration(attempt+1))
		}
	}

	err := errors.New("failed to publish send audit event after all retries")
	tracing.TraceErr(span, err)
	return err
}

func (r *RabbitMQPublisher) publishWithConfirm(ctx context.Context, event SendAuditEvent) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.ensureConnectionAndChannel(); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	err = r.publishChannel.Publish(
		ExchangeMaildeskDirect,
		RoutingKeySendAudit,
		true,  // mandatory
		false, // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         jsonBody,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return errors.Wrap(err, "failed to publish message")
	}

	select {
	case confirm := <-r.confirms:
		if !confirm.Ack {
			return errors.New("message was not confirmed by server")
		}
	case <-time.After(defaultPublishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (r *RabbitMQPublisher) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	r.connection, err = amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	if err = r.setupExchangeAndQueue(); err != nil {
		return errors.Wrap(err, "failed to setup exchange and queue")
	}

	if err = r.setupPublishChannel(); err != nil {
		return errors.Wrap(err, "failed to setup publish channel")
	}

	return nil
}

func (r *RabbitMQPublisher) setupExchangeAndQueue() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open channel for setup")
	}
	defer channel.Close()

	err = channel.ExchangeDeclare(
		ExchangeMaildeskDirect,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "failed to declare exchange")
	}

	_, err = channel.QueueDeclare(
		QueueSendAudit,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", QueueSendAudit)
	}

	err = channel.QueueBind(
		QueueSendAudit,
		RoutingKeySendAudit,
		ExchangeMaildeskDirect,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to bind queue %s", QueueSendAudit)
	}

	return nil
}

func (r *RabbitMQPublisher) setupPublishChannel() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open publish channel")
	}

	if err = channel.Confirm(false); err != nil {
		channel.Close()
		return errors.Wrap(err, "failed to enable publisher confirms")
	}

	r.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQPublisher) ensureConnectionAndChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		if err := r.connect(); err != nil {
			return errors.Wrap(err, "failed to establish connection")
		}
	}

	if r.publishChannel == nil || r.publishChannel.IsClosed() {
		if err := r.setupPublishChannel(); err != nil {
			return errors.Wrap(err, "failed to establish channel")
		}
	}

	return nil
}

func (r *RabbitMQPublisher) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	if r.publishChannel != nil {
		if closeErr := r.publishChannel.Close(); closeErr != nil {
			r.logger.Errorf("Error closing publish channel: %v", closeErr)
			err = closeErr
		}
	}

	if r.connection != nil {
		if closeErr := r.connection.Close(); closeErr != nil {
			r.logger.Errorf("Error closing connection: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}
