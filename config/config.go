package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11888"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT,required"`
	User            string `env:"POSTGRES_USER,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

type IMAPConfig struct {
	Server            string `env:"IMAP_SERVER" envDefault:"imap.mail.ru"`
	Port              int    `env:"IMAP_PORT" envDefault:"993"`
	Email             string `env:"IMAP_EMAIL"`
	PasswordEncrypted string `env:"IMAP_PASSWORD_ENCRYPTED"`
}

type SMTPConfig struct {
	Server    string `env:"SMTP_SERVER"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	FromEmail string `env:"SMTP_FROM_EMAIL"`
	FromName  string `env:"SMTP_FROM_NAME"`
	UseTLS    bool   `env:"SMTP_USE_TLS" envDefault:"true"`
}

type EncryptionConfig struct {
	// Base64-encoded 32-byte AES key for mailbox secrets
	Key string `env:"ENCRYPTION_KEY"`
}
