package responder

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/superwave/maildesk/interfaces"
	appErrors "github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/repository"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/pkg/errors"
)

// ResponderService links canned response templates to inbound messages.
// Attaching a template flagged auto-send also dispatches it synchronously
// and writes an audit record; the send outcome never decides the attach
// outcome.
type ResponderService struct {
	log          logger.Logger
	repositories *repository.Repositories
	dispatcher   interfaces.TransferDispatcher
	publisher    interfaces.EventPublisher
}

func NewResponderService(
	log logger.Logger,
	repositories *repository.Repositories,
	dispatcher interfaces.TransferDispatcher,
	publisher interfaces.EventPublisher,
) *ResponderService {
	return &ResponderService{
		log:          log,
		repositories: repositories,
		dispatcher:   dispatcher,
		publisher:    publisher,
	}
}

// AttachRequest carries the inbound message context captured at attach
// time. Subject and sender are snapshots; the message itself is never
// re-fetched.
type AttachRequest struct {
	EmailUID     string  `json:"emailUid" binding:"required"`
	TemplateID   string  `json:"templateId" binding:"required"`
	EmailSubject *string `json:"emailSubject"`
	EmailFrom    *string `json:"emailFrom"`
	Notes        string  `json:"notes"`
}

const unknownRecipient = "unknown"

// AttachResponse links the template to the message. Duplicate links are
// conflicts; the repository's unique index has the final word under
// concurrent attaches.
func (s *ResponderService) AttachResponse(ctx context.Context, userID string, req AttachRequest) (*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.AttachResponse")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email_uid", req.EmailUID)
	span.SetTag("template_id", req.TemplateID)

	template, err := s.repositories.ResponseTemplateRepository.GetByID(ctx, req.TemplateID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if template == nil || template.UserID != userID {
		return nil, appErrors.ErrTemplateNotFound
	}

	exists, err := s.repositories.ResponseAttachmentRepository.Exists(ctx, userID, req.EmailUID, req.TemplateID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if exists {
		return nil, appErrors.ErrAttachmentExists
	}

	attachment := &models.ResponseAttachment{
		UserID:       userID,
		EmailUID:     req.EmailUID,
		TemplateID:   req.TemplateID,
		EmailSubject: req.EmailSubject,
		EmailFrom:    req.EmailFrom,
		Notes:        req.Notes,
	}

	if _, err = s.repositories.ResponseAttachmentRepository.Create(ctx, attachment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErrors.ErrAttachmentExists
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	if template.AutoSend {
		s.autoSend(ctx, userID, template, attachment, req)
	}

	return attachment, nil
}

// autoSend dispatches the template and records the attempt. Everything in
// here is best effort from the attach operation's point of view.
func (s *ResponderService) autoSend(ctx context.Context, userID string, template *models.ResponseTemplate, attachment *models.ResponseAttachment, req AttachRequest) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.autoSend")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, attachment.ID)

	var recipient, replyToSubject string
	if req.EmailFrom != nil {
		recipient = *req.EmailFrom
	}
	if req.EmailSubject != nil {
		replyToSubject = *req.EmailSubject
	}

	subject := template.Title
	if replyToSubject != "" {
		subject = s.dispatcher.ReplySubject(replyToSubject)
	}

	record := &models.SendRecord{
		UserID:               userID,
		AttachmentID:         &attachment.ID,
		TemplateID:           &template.ID,
		Subject:              subject,
		Body:                 template.Body,
		OriginalEmailUID:     &attachment.EmailUID,
		OriginalEmailSubject: req.EmailSubject,
	}

	if recipient == "" {
		diagnostic := "sender address unknown"
		record.ToEmail = unknownRecipient
		record.Success = false
		record.ErrorMessage = &diagnostic
	} else {
		ok, diagnostic := s.dispatcher.Send(ctx, recipient, template.Title, template.Body, replyToSubject, false)
		record.ToEmail = recipient
		record.Success = ok
		if ok {
			record.SMTPResponse = &diagnostic
		} else {
			record.ErrorMessage = &diagnostic
		}
	}

	if _, err := s.repositories.SendRecordRepository.Create(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to persist send record for attachment %s: %v", attachment.ID, err)
		return
	}

	if err := s.publisher.PublishSendAudit(ctx, record); err != nil {
		s.log.Warnf("failed to publish send audit for record %s: %v", record.ID, err)
	}
}
