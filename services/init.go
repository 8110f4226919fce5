package services

import (
	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/crypto"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/repository"
	"github.com/superwave/maildesk/services/events"
	"github.com/superwave/maildesk/services/parser"
	"github.com/superwave/maildesk/services/responder"
	"github.com/superwave/maildesk/services/smtp"
)

type Services struct {
	ParserService      *parser.ParserService
	TransferDispatcher interfaces.TransferDispatcher
	ResponderService   *responder.ResponderService
	EventPublisher     interfaces.EventPublisher
	Encryptor          *crypto.Encryptor
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	var encryptor *crypto.Encryptor
	if cfg.EncryptionConfig.Key != "" {
		var err error
		encryptor, err = crypto.NewEncryptor(cfg.EncryptionConfig.Key)
		if err != nil {
			return nil, err
		}
	}

	publisher := events.NewEventPublisher(cfg.AppConfig.RabbitMQURL, log)
	dispatcher := smtp.NewTransferDispatcher(log, cfg.SMTPConfig)

	services := Services{
		ParserService:      parser.NewParserService(log),
		TransferDispatcher: dispatcher,
		ResponderService:   responder.NewResponderService(log, repos, dispatcher, publisher),
		EventPublisher:     publisher,
		Encryptor:          encryptor,
	}

	return &services, nil
}
