package imap

import (
	"context"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"

	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
)

// ListFolders returns every folder the server reports. Nameless entries are
// skipped and a transport failure mid-listing still returns what arrived
// before it; listing is best effort by contract.
func (s *MailboxSession) ListFolders(ctx context.Context) []models.FolderInfo {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxSession.ListFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	folders := []models.FolderInfo{}

	if s.client == nil {
		s.log.Warnf("list folders requested without a connection to %s", s.creds.Server)
		return folders
	}

	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.client.List("", "*", mailboxes)
	}()

	for m := range mailboxes {
		if m == nil || m.Name == "" {
			continue
		}
		folders = append(folders, models.FolderInfo{
			Name:       m.Name,
			Delimiter:  m.Delimiter,
			Attributes: m.Attributes,
		})
	}

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("error listing folders on %s: %v", s.creds.Server, err)
	}

	span.SetTag("folders.count", len(folders))
	return folders
}
