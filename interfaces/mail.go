package interfaces

import (
	"context"

	"github.com/superwave/maildesk/internal/models"
)

// MailboxSession is one short-lived IMAP conversation. Sessions are not
// safe for concurrent use; every caller owns its own instance.
type MailboxSession interface {
	Connect(ctx context.Context) (bool, string)
	Disconnect()
	TestConnection(ctx context.Context) (ok bool, message string, detail string)
	ListFolders(ctx context.Context) []models.FolderInfo
	FetchMessages(ctx context.Context, folder string, limit int, criteria string, includeBody bool) []*models.DecodedMessage
}

// TransferDispatcher pushes one message out over SMTP. A failed dispatch is
// reported as (false, diagnostic), never as a panic or a partial send.
type TransferDispatcher interface {
	Send(ctx context.Context, to, subject, body, replyToSubject string, isHTML bool) (bool, string)
	TestConnection(ctx context.Context) (bool, string)
	ReplySubject(subject string) string
}

// EventPublisher emits send-audit events after dispatch attempts. Publishing
// is best effort; implementations must not block the send path on failure.
type EventPublisher interface {
	PublishSendAudit(ctx context.Context, record *models.SendRecord) error
	Close() error
}
