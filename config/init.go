package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/tracing"
)

type Config struct {
	AppConfig        *AppConfig
	Logger           *logger.Config
	Tracing          *tracing.JaegerConfig
	DatabaseConfig   *DatabaseConfig
	IMAPConfig       *IMAPConfig
	SMTPConfig       *SMTPConfig
	EncryptionConfig *EncryptionConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:        &AppConfig{},
		Logger:           &logger.Config{},
		Tracing:          &tracing.JaegerConfig{},
		DatabaseConfig:   &DatabaseConfig{},
		IMAPConfig:       &IMAPConfig{},
		SMTPConfig:       &SMTPConfig{},
		EncryptionConfig: &EncryptionConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading maildesk config: %v", err)
	}

	return config, nil
}
