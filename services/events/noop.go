package events

import (
	"context"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
)

// NoopPublisher is used when no broker URL is configured. Events are
// dropped silently; the audit trail in the database is the system of
// record either way.
type NoopPublisher struct{}

var _ interfaces.EventPublisher = (*NoopPublisher)(nil)

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) PublishSendAudit(ctx context.Context, record *models.SendRecord) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}

// NewEventPublisher returns the RabbitMQ publisher when a broker URL is
// configured and the noop publisher otherwise. A broker that is configured
// but unreachable degrades to noop with a logged error instead of taking
// the application down.
func NewEventPublisher(rabbitmqURL string, log logger.Logger) interfaces.EventPublisher {
	if rabbitmqURL == "" {
		return NewNoopPublisher()
	}

	publisher, err := NewRabbitMQPublisher(rabbitmqURL, log)
	if err != nil {
		log.Errorf("Failed to connect event publisher, audit events disabled: %v", err)
		return NewNoopPublisher()
	}

	return publisher
}
