package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/superwave/maildesk/internal/utils"
)

// SendRecord is the immutable audit row written after every dispatch
// attempt, successful or not. Records are never updated or deleted;
// parent references go null when the parent disappears.
type SendRecord struct {
	ID           string  `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID       string  `gorm:"column:user_id;type:varchar(255);index;not null"`
	AttachmentID *string `gorm:"column:attachment_id;type:varchar(50);index"`
	TemplateID   *string `gorm:"column:template_id;type:varchar(50);index"`

	ToEmail              string  `gorm:"column:to_email;type:varchar(255);not null"`
	Subject              string  `gorm:"column:subject;type:varchar(1000)"`
	Body                 string  `gorm:"column:body;type:text"`
	OriginalEmailUID     *string `gorm:"column:original_email_uid;type:varchar(255)"`
	OriginalEmailSubject *string `gorm:"column:original_email_subject;type:varchar(1000)"`

	Success      bool    `gorm:"column:success;index;not null"`
	SMTPResponse *string `gorm:"column:smtp_response;type:text"`
	ErrorMessage *string `gorm:"column:error_message;type:text"`

	SentAt time.Time `gorm:"column:sent_at;type:timestamp;index;default:current_timestamp"`
}

func (SendRecord) TableName() string {
	return "send_records"
}

func (r *SendRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("snd", 16)
	}
	if r.SentAt.IsZero() {
		r.SentAt = utils.Now()
	}
	return nil
}
