package imap

import (
	"context"
	"io"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"

	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
)

// FetchMessages retrieves up to limit messages from the folder, newest
// first. Criteria tokens are handed to the server's SEARCH verbatim; an
// empty criteria string selects the whole folder. Each id is fetched and
// decoded independently, so one broken message never costs the rest.
func (s *MailboxSession) FetchMessages(ctx context.Context, folder string, limit int, criteria string, includeBody bool) []*models.DecodedMessage {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxSession.FetchMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder", folder)
	span.SetTag("limit", limit)
	span.SetTag("include_body", includeBody)

	messages := []*models.DecodedMessage{}

	if s.client == nil {
		s.log.Warnf("fetch requested without a connection to %s", s.creds.Server)
		return messages
	}

	mbox, err := s.client.Select(folder, true)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to select folder %s: %v", folder, err)
		return messages
	}

	ids := s.searchIDs(ctx, mbox, criteria)
	ids = limitNewest(ids, limit)
	span.SetTag("ids.count", len(ids))

	for _, id := range ids {
		msg := s.fetchOne(ctx, id, includeBody)
		if msg != nil {
			messages = append(messages, msg)
		}
	}

	span.SetTag("messages.count", len(messages))
	return messages
}

// searchIDs resolves the folder's matching sequence numbers in ascending
// order. No criteria means every message in the folder; a criteria string
// that the server or parser rejects yields an empty, logged result.
func (s *MailboxSession) searchIDs(ctx context.Context, mbox *goimap.MailboxStatus, criteria string) []uint32 {
	criteria = strings.TrimSpace(criteria)

	if criteria == "" {
		ids := make([]uint32, 0, mbox.Messages)
		for id := uint32(1); id <= mbox.Messages; id++ {
			ids = append(ids, id)
		}
		return ids
	}

	tokens := strings.Fields(criteria)
	fields := make([]interface{}, len(tokens))
	for i, token := range tokens {
		fields[i] = token
	}

	sc := goimap.NewSearchCriteria()
	if err := sc.ParseWithCharset(fields, nil); err != nil {
		s.log.Errorf("invalid search criteria %q: %v", criteria, err)
		return nil
	}

	ids, err := s.client.Search(sc)
	if err != nil {
		s.log.Errorf("search %q failed on %s: %v", criteria, s.creds.Server, err)
		return nil
	}

	return ids
}

// limitNewest keeps the highest `limit` ids and flips them newest-first.
// [1..10] with limit 3 becomes [10, 9, 8].
func limitNewest(ids []uint32, limit int) []uint32 {
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	reversed := make([]uint32, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	return reversed
}

func (s *MailboxSession) fetchOne(ctx context.Context, id uint32, includeBody bool) *models.DecodedMessage {
	section := &goimap.BodySectionName{Peek: true}
	if !includeBody {
		section.Specifier = goimap.HeaderSpecifier
	}
	items := []goimap.FetchItem{section.FetchItem(), goimap.FetchFlags}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(id)

	ch := make(chan *goimap.Message, 1)
	if err := s.client.Fetch(seqSet, items, ch); err != nil {
		s.log.Warnf("failed to fetch message %d: %v", id, err)
		return nil
	}

	msg := <-ch
	if msg == nil {
		s.log.Warnf("no data returned for message %d", id)
		return nil
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		s.log.Warnf("message %d has no body section", id)
		return nil
	}

	raw, err := io.ReadAll(bodyReader)
	if err != nil {
		s.log.Warnf("failed to read message %d: %v", id, err)
		return nil
	}

	seen := false
	for _, flag := range msg.Flags {
		if flag == goimap.SeenFlag {
			seen = true
			break
		}
	}

	decoded, err := s.parser.Decode(raw, strconv.FormatUint(uint64(id), 10), seen, includeBody)
	if err != nil {
		s.log.Warnf("failed to decode message %d: %v", id, err)
		return nil
	}

	return decoded
}
