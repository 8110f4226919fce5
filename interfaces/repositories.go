package interfaces

import (
	"context"
	"time"

	"github.com/superwave/maildesk/internal/models"
)

type ResponseTemplateRepository interface {
	Create(ctx context.Context, template *models.ResponseTemplate) (string, error)
	// GetByID returns (nil, nil) when no template exists with the given id
	GetByID(ctx context.Context, id string) (*models.ResponseTemplate, error)
	GetByUser(ctx context.Context, userID string) ([]*models.ResponseTemplate, error)
	Update(ctx context.Context, template *models.ResponseTemplate) error
	Delete(ctx context.Context, userID, id string) error
}

type ResponseAttachmentRepository interface {
	// Create surfaces gorm.ErrDuplicatedKey when the (user, email, template)
	// combination already exists
	Create(ctx context.Context, attachment *models.ResponseAttachment) (string, error)
	GetByID(ctx context.Context, id string) (*models.ResponseAttachment, error)
	Exists(ctx context.Context, userID, emailUID, templateID string) (bool, error)
	GetByEmailUID(ctx context.Context, userID, emailUID string) ([]*models.ResponseAttachment, error)
	GetByTemplate(ctx context.Context, userID, templateID string) ([]*models.ResponseAttachment, error)
	GetByUser(ctx context.Context, userID string) ([]*models.ResponseAttachment, error)
	Delete(ctx context.Context, userID, id string) error
}

type SendRecordRepository interface {
	Create(ctx context.Context, record *models.SendRecord) (string, error)
	GetByID(ctx context.Context, id string) (*models.SendRecord, error)
	GetByUser(ctx context.Context, userID string, limit, offset int, successOnly bool) ([]*models.SendRecord, error)
	CountByUser(ctx context.Context, userID string) (total int64, successful int64, err error)
	GetRecent(ctx context.Context, userID string, limit int) ([]*models.SendRecord, error)
	// CountFailuresSince counts failed dispatches across all users, used for
	// operational monitoring
	CountFailuresSince(ctx context.Context, since time.Time) (int64, error)
}
