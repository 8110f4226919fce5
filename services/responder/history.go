package responder

import (
	"context"

	"github.com/opentracing/opentracing-go"

	appErrors "github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
)

// SendStats summarizes a user's dispatch history.
type SendStats struct {
	Total      int64                `json:"total"`
	Successful int64                `json:"successful"`
	Failed     int64                `json:"failed"`
	Recent     []*models.SendRecord `json:"recent"`
}

const recentRecordCount = 10

func (s *ResponderService) SendHistory(ctx context.Context, userID string, limit, offset int, successOnly bool) ([]*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.SendHistory")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.repositories.SendRecordRepository.GetByUser(ctx, userID, limit, offset, successOnly)
}

func (s *ResponderService) GetSendRecord(ctx context.Context, userID, id string) (*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.GetSendRecord")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("record_id", id)

	record, err := s.repositories.SendRecordRepository.GetByID(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if record == nil || record.UserID != userID {
		return nil, appErrors.ErrSendRecordNotFound
	}

	return record, nil
}

func (s *ResponderService) SendStats(ctx context.Context, userID string) (*SendStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ResponderService.SendStats")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	total, successful, err := s.repositories.SendRecordRepository.CountByUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	recent, err := s.repositories.SendRecordRepository.GetRecent(ctx, userID, recentRecordCount)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &SendStats{
		Total:      total,
		Successful: successful,
		Failed:     total - successful,
		Recent:     recent,
	}, nil
}
