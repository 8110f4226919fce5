package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
)

type responseAttachmentRepository struct {
	db *gorm.DB
}

func NewResponseAttachmentRepository(db *gorm.DB) interfaces.ResponseAttachmentRepository {
	return &responseAttachmentRepository{db: db}
}

func (r *responseAttachmentRepository) Create(ctx context.Context, attachment *models.ResponseAttachment) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if attachment == nil {
		err := errors.New("attachment cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if attachment.UserID == "" || attachment.EmailUID == "" || attachment.TemplateID == "" {
		err := errors.New("attachment user ID, email UID and template ID are required")
		tracing.TraceErr(span, err)
		return "", err
	}

	// Duplicate violations on the composite index come back as
	// gorm.ErrDuplicatedKey; the caller maps them to a conflict.
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.SetTag("attachment_id", attachment.ID)
	return attachment.ID, nil
}

func (r *responseAttachmentRepository) GetByID(ctx context.Context, id string) (*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("attachment_id", id)

	if id == "" {
		err := errors.New("attachment ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var attachment models.ResponseAttachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &attachment, nil
}

func (r *responseAttachmentRepository) Exists(ctx context.Context, userID, emailUID, templateID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.Exists")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var exists bool
	err := r.db.WithContext(ctx).
		Model(&models.ResponseAttachment{}).
		Select("COUNT(*) > 0").
		Where("user_id = ? AND email_uid = ? AND template_id = ?", userID, emailUID, templateID).
		Find(&exists).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}

	return exists, nil
}

func (r *responseAttachmentRepository) GetByEmailUID(ctx context.Context, userID, emailUID string) ([]*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.GetByEmailUID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("email_uid", emailUID)

	var attachments []*models.ResponseAttachment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND email_uid = ?", userID, emailUID).
		Order("attached_at DESC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return attachments, nil
}

func (r *responseAttachmentRepository) GetByTemplate(ctx context.Context, userID, templateID string) ([]*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.GetByTemplate")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("template_id", templateID)

	var attachments []*models.ResponseAttachment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Order("attached_at DESC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return attachments, nil
}

func (r *responseAttachmentRepository) GetByUser(ctx context.Context, userID string) ([]*models.ResponseAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.GetByUser")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var attachments []*models.ResponseAttachment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attached_at DESC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return attachments, nil
}

func (r *responseAttachmentRepository) Delete(ctx context.Context, userID, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "responseAttachmentRepository.Delete")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("attachment_id", id)

	if id == "" {
		err := errors.New("attachment ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ResponseAttachment{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
