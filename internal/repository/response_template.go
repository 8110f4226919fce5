package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/internal/utils"
)

type responseTemplateRepository struct {
	db *gorm.DB
}

func NewResponseTemplateRepository(db *gorm.DB) interfaces.ResponseTemplateRepository {
	return &responseTemplateRepository{db: db}
}

func (r *responseTemplateRepository) Create(ctx context.Context, template *models.ResponseTemplate) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseTemplateRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if template == nil {
		err := errors.New("template cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if template.UserID == "" {
		err := errors.New("template user ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := r.db.WithContext(ctx).Create(template).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.SetTag("template_id", template.ID)
	return template.ID, nil
}

func (r *responseTemplateRepository) GetByID(ctx context.Context, id string) (*models.ResponseTemplate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseTemplateRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("template_id", id)

	if id == "" {
		err := errors.New("template ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var template models.ResponseTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &template, nil
}

func (r *responseTemplateRepository) GetByUser(ctx context.Context, userID string) ([]*models.ResponseTemplate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseTemplateRepository.GetByUser")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if userID == "" {
		err := errors.New("user ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var templates []*models.ResponseTemplate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return templates, nil
}

func (r *responseTemplateRepository) Update(ctx context.Context, template *models.ResponseTemplate) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseTemplateRepository.Update")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if template == nil {
		err := errors.New("template cannot be nil")
		tracing.TraceErr(span, err)
		return err
	}
	if template.ID == "" {
		err := errors.New("template ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("template_id", template.ID)

	updates := map[string]interface{}{
		"title":      template.Title,
		"body":       template.Body,
		"auto_send":  template.AutoSend,
		"updated_at": utils.Now(),
	}

	result := r.db.WithContext(ctx).
		Model(&models.ResponseTemplate{}).
		Where("id = ? AND user_id = ?", template.ID, template.UserID).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *responseTemplateRepository) Delete(ctx context.Context, userID, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseTemplateRepository.Delete")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("template_id", id)

	if id == "" {
		err := errors.New("template ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ResponseTemplate{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
