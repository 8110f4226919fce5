package responder

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	appErrors "github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
)

func (s *ResponderService) ListAttachmentsForEmail(ctx context.Context, userID, emailUID string) ([]*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.ListAttachmentsForEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email_uid", emailUID)

	return s.repositories.ResponseAttachmentRepository.GetByEmailUID(ctx, userID, emailUID)
}

func (s *ResponderService) ListAttachmentsForTemplate(ctx context.Context, userID, templateID string) ([]*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.ListAttachmentsForTemplate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("template_id", templateID)

	return s.repositories.ResponseAttachmentRepository.GetByTemplate(ctx, userID, templateID)
}

func (s *ResponderService) ListAttachments(ctx context.Context, userID string) ([]*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.ListAttachments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.repositories.ResponseAttachmentRepository.GetByUser(ctx, userID)
}

func (s *ResponderService) DeleteAttachment(ctx context.Context, userID, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.DeleteAttachment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("attachment_id", id)

	err := s.repositories.ResponseAttachmentRepository.Delete(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErrors.ErrAttachmentNotFound
	}
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
