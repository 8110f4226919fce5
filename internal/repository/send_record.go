package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
)

type sendRecordRepository struct {
	db *gorm.DB
}

func NewSendRecordRepository(db *gorm.DB) interfaces.SendRecordRepository {
	return &sendRecordRepository{db: db}
}

// Create writes the audit row. Send records are append-only; there is no
// update or delete path by design of the table.
func (r *sendRecordRepository) Create(ctx context.Context, record *models.SendRecord) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if record == nil {
		err := errors.New("record cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if record.UserID == "" || record.ToEmail == "" {
		err := errors.New("record user ID and recipient are required")
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.SetTag("record_id", record.ID)
	return record.ID, nil
}

func (r *sendRecordRepository) GetByID(ctx context.Context, id string) (*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("record_id", id)

	if id == "" {
		err := errors.New("record ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var record models.SendRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &record, nil
}

func (r *sendRecordRepository) GetByUser(ctx context.Context, userID string, limit, offset int, successOnly bool) ([]*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.GetByUser")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("limit", limit)
	span.SetTag("offset", offset)

	if userID == "" {
		err := errors.New("user ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if successOnly {
		query = query.Where("success = ?", true)
	}

	var records []*models.SendRecord
	err := query.
		Order("sent_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return records, nil
}

func (r *sendRecordRepository) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.CountByUser")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if userID == "" {
		err := errors.New("user ID cannot be empty")
		tracing.TraceErr(span, err)
		return 0, 0, err
	}

	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.SendRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, 0, err
	}

	var successful int64
	err = r.db.WithContext(ctx).
		Model(&models.SendRecord{}).
		Where("user_id = ? AND success = ?", userID, true).
		Count(&successful).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, 0, err
	}

	return total, successful, nil
}

func (r *sendRecordRepository) CountFailuresSince(ctx context.Context, since time.Time) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.CountFailuresSince")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var failures int64
	err := r.db.WithContext(ctx).
		Model(&models.SendRecord{}).
		Where("success = ? AND sent_at >= ?", false, since).
		Count(&failures).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	return failures, nil
}

func (r *sendRecordRepository) GetRecent(ctx context.Context, userID string, limit int) ([]*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.GetRecent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if userID == "" {
		err := errors.New("user ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var records []*models.SendRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return records, nil
}
