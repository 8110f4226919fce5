package parser

import (
	"bytes"
	"io"
	"mime"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
)

// ParserService decodes raw RFC 5322 messages into DecodedMessage values.
// It is pure and stateless: the same input bytes always produce the same
// output, and nothing is cached between calls.
type ParserService struct {
	log  logger.Logger
	html *htmlText
}

func NewParserService(log logger.Logger) *ParserService {
	return &ParserService{
		log:  log,
		html: newHTMLText(),
	}
}

// Decode parses one raw message. Individual malformed parts are skipped;
// only a message that cannot be read at all produces an error.
func (s *ParserService) Decode(raw []byte, uid string, seen bool, includeBody bool) (*models.DecodedMessage, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read message envelope")
	}

	for _, defect := range envelope.Errors {
		s.log.Warnf("message %s part defect: %s", uid, defect.Error())
	}

	msg := &models.DecodedMessage{
		UID:         uid,
		Subject:     s.DecodeHeader(envelope.GetHeader("Subject")),
		From:        s.ParseAddress(envelope.GetHeader("From")),
		To:          s.ParseAddressList(envelope.GetHeader("To")),
		Attachments: []models.Attachment{},
		Read:        seen,
	}

	if rawDate := envelope.GetHeader("Date"); rawDate != "" {
		if date, err := mail.ParseDate(rawDate); err == nil {
			utc := date.UTC()
			msg.Date = &utc
		}
	}

	if includeBody {
		s.walkParts(envelope.Root, msg)

		// Sole non-multipart payload of an unrecognized text type still
		// counts as the plain body
		if root := envelope.Root; root != nil &&
			!strings.HasPrefix(contentType(root), "multipart/") &&
			!isAttachment(root) &&
			msg.BodyText == "" && msg.BodyHTML == "" && len(root.Content) > 0 {
			msg.BodyText = toValidUTF8(string(root.Content))
		}

		if msg.BodyText == "" && msg.BodyHTML != "" {
			preview, err := s.html.extract(msg.BodyHTML)
			if err != nil {
				s.log.Warnf("message %s html preview failed: %v", uid, err)
			} else {
				msg.Preview = preview
			}
		}
	}

	msg.HasAttachments = len(msg.Attachments) > 0

	return msg, nil
}

// walkParts visits the MIME tree in document order. The first text/plain
// part wins the plain body, the first text/html the HTML body; parts with
// an attachment disposition never contribute to either.
func (s *ParserService) walkParts(part *enmime.Part, msg *models.DecodedMessage) {
	if part == nil {
		return
	}

	ctype := contentType(part)
	switch {
	case isAttachment(part):
		msg.Attachments = append(msg.Attachments, models.Attachment{
			Filename:    s.DecodeHeader(part.FileName),
			ContentType: part.ContentType,
			Size:        len(part.Content),
		})
	case strings.HasPrefix(ctype, "multipart/"):
		// container only
	case ctype == "text/plain" && msg.BodyText == "":
		msg.BodyText = toValidUTF8(string(part.Content))
	case ctype == "text/html" && msg.BodyHTML == "":
		msg.BodyHTML = toValidUTF8(string(part.Content))
	}

	s.walkParts(part.FirstChild, msg)
	s.walkParts(part.NextSibling, msg)
}

// DecodeHeader decodes RFC 2047 encoded words. Unknown charsets fall back
// to reading the raw bytes as UTF-8 with invalid sequences replaced; a
// value that cannot be decoded at all is returned unchanged.
func (s *ParserService) DecodeHeader(value string) string {
	if value == "" {
		return ""
	}

	decoder := mime.WordDecoder{
		CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
			return input, nil
		},
	}

	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}

	return toValidUTF8(decoded)
}

// ParseAddress reduces one address header value to the bare address,
// dropping display names and angle brackets.
func (s *ParserService) ParseAddress(value string) string {
	value = strings.TrimSpace(s.DecodeHeader(value))
	if value == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(value); err == nil {
		return addr.Address
	}

	// Malformed header: salvage whatever sits between the angle brackets
	if start := strings.LastIndex(value, "<"); start >= 0 {
		if end := strings.Index(value[start:], ">"); end > 0 {
			return strings.TrimSpace(value[start+1 : start+end])
		}
	}

	return value
}

// ParseAddressList splits a comma-separated address header, applying the
// same reduction as ParseAddress and dropping empty segments.
func (s *ParserService) ParseAddressList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}

	if addrs, err := mail.ParseAddressList(s.DecodeHeader(value)); err == nil {
		result := make([]string, 0, len(addrs))
		for _, addr := range addrs {
			if addr.Address != "" {
				result = append(result, addr.Address)
			}
		}
		return result
	}

	result := []string{}
	for _, segment := range strings.Split(value, ",") {
		parsed := s.ParseAddress(segment)
		if parsed != "" {
			result = append(result, parsed)
		}
	}
	return result
}

func contentType(part *enmime.Part) string {
	return strings.ToLower(strings.TrimSpace(part.ContentType))
}

func isAttachment(part *enmime.Part) bool {
	return strings.EqualFold(part.Disposition, "attachment")
}

func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
