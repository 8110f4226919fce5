package imap

import (
	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/internal/crypto"
	"github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/models"
)

// ResolveCredentials turns the stored mailbox configuration into plaintext
// credentials, decrypting the sealed password when one is configured.
func ResolveCredentials(cfg *config.IMAPConfig, encryptor *crypto.Encryptor) (models.MailboxCredentials, error) {
	creds := models.MailboxCredentials{
		Server: cfg.Server,
		Port:   cfg.Port,
		Email:  cfg.Email,
	}

	if cfg.Email == "" {
		return creds, errors.ErrMailboxNotConfigured
	}

	if cfg.PasswordEncrypted != "" {
		if encryptor == nil {
			return creds, errors.ErrSecretUndecryptable
		}
		password, err := encryptor.Decrypt(cfg.PasswordEncrypted)
		if err != nil {
			return creds, errors.ErrSecretUndecryptable
		}
		creds.Password = password
	}

	return creds, nil
}
