package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/superwave/maildesk/internal/utils"
)

// ResponseAttachment links a template to one inbound message. The composite
// unique index is the authority for duplicate detection under races.
type ResponseAttachment struct {
	ID           string  `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID       string  `gorm:"column:user_id;type:varchar(255);not null;uniqueIndex:idx_attachment_user_email_template"`
	EmailUID     string  `gorm:"column:email_uid;type:varchar(255);not null;uniqueIndex:idx_attachment_user_email_template"`
	TemplateID   string  `gorm:"column:template_id;type:varchar(50);not null;uniqueIndex:idx_attachment_user_email_template"`
	EmailSubject *string `gorm:"column:email_subject;type:varchar(1000)"`
	EmailFrom    *string `gorm:"column:email_from;type:varchar(255)"`
	Notes        string  `gorm:"column:notes;type:text"`

	AttachedAt time.Time `gorm:"column:attached_at;type:timestamp;default:current_timestamp"`
}

func (ResponseAttachment) TableName() string {
	return "response_attachments"
}

func (a *ResponseAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("rat", 16)
	}
	if a.AttachedAt.IsZero() {
		a.AttachedAt = utils.Now()
	}
	return nil
}
