package handlers

import (
	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/services"
)

type Handlers struct {
	Mailbox   *MailboxHandler
	Responses *ResponsesHandler
	Sent      *SentHandler
}

func InitHandlers(cfg *config.Config, log logger.Logger, s *services.Services) *Handlers {
	return &Handlers{
		Mailbox:   NewMailboxHandler(log, cfg.IMAPConfig, s.Encryptor, s.ParserService),
		Responses: NewResponsesHandler(log, s.ResponderService),
		Sent:      NewSentHandler(log, s.ResponderService, s.TransferDispatcher),
	}
}
