package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/superwave/maildesk/internal/utils"
)

// ResponseTemplate is a canned reply owned by one user. Templates flagged
// AutoSend are dispatched immediately when attached to a message.
type ResponseTemplate struct {
	ID       string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID   string `gorm:"column:user_id;type:varchar(255);index;not null"`
	Title    string `gorm:"column:title;type:varchar(500);not null"`
	Body     string `gorm:"column:body;type:text;not null"`
	AutoSend bool   `gorm:"column:auto_send;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (ResponseTemplate) TableName() string {
	return "response_templates"
}

func (t *ResponseTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("tpl", 16)
	}
	t.CreatedAt = utils.Now()
	return nil
}
