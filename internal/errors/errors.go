package errors

import "github.com/pkg/errors"

var (
	// configuration errors
	ErrSecretUndecryptable  = errors.New("stored mailbox secret cannot be decrypted")
	ErrMailboxNotConfigured = errors.New("no mailbox credentials configured")

	// domain errors
	ErrTemplateNotFound   = errors.New("response template not found")
	ErrAttachmentExists   = errors.New("template already attached to this message")
	ErrAttachmentNotFound = errors.New("response attachment not found")
	ErrSendRecordNotFound = errors.New("send record not found")
)
