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

type TemplateInput struct {
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body" binding:"required"`
	AutoSend bool   `json:"autoSend"`
}

func (s *ResponderService) CreateTemplate(ctx context.Context, userID string, input TemplateInput) (*models.ResponseTemplate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.CreateTemplate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	template := &models.ResponseTemplate{
		UserID:   userID,
		Title:    input.Title,
		Body:     input.Body,
		AutoSend: input.AutoSend,
	}

	if _, err := s.repositories.ResponseTemplateRepository.Create(ctx, template); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return template, nil
}

func (s *ResponderService) ListTemplates(ctx context.Context, userID string) ([]*models.ResponseTemplate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.ListTemplates")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.repositories.ResponseTemplateRepository.GetByUser(ctx, userID)
}

func (s *ResponderService) GetTemplate(ctx context.Context, userID, id string) (*models.ResponseTemplate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.GetTemplate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("template_id", id)

	template, err := s.repositories.ResponseTemplateRepository.GetByID(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if template == nil || template.UserID != userID {
		return nil, appErrors.ErrTemplateNotFound
	}

	return template, nil
}

func (s *ResponderService) UpdateTemplate(ctx context.Context, userID, id string, input TemplateInput) (*models.ResponseTemplate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.UpdateTemplate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("template_id", id)

	template, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	template.Title = input.Title
	template.Body = input.Body
	template.AutoSend = input.AutoSend

	if err = s.repositories.ResponseTemplateRepository.Update(ctx, template); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrTemplateNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return template, nil
}

func (s *ResponderService) DeleteTemplate(ctx context.Context, userID, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.DeleteTemplate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("template_id", id)

	err := s.repositories.ResponseTemplateRepository.Delete(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErrors.ErrTemplateNotFound
	}
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
