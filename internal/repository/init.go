package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/models"
)

type Repositories struct {
	ResponseTemplateRepository   interfaces.ResponseTemplateRepository
	ResponseAttachmentRepository interfaces.ResponseAttachmentRepository
	SendRecordRepository         interfaces.SendRecordRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ResponseTemplateRepository:   NewResponseTemplateRepository(db),
		ResponseAttachmentRepository: NewResponseAttachmentRepository(db),
		SendRecordRepository:         NewSendRecordRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.ResponseTemplate{},
		&models.ResponseAttachment{},
		&models.SendRecord{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
