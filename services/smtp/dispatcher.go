package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/internal/utils"
)

// TransferDispatcher pushes messages out over SMTP. Every Send opens a
// fresh connection, transmits one message to one recipient and closes;
// nothing is pooled or retried.
type TransferDispatcher struct {
	log logger.Logger
	cfg *config.SMTPConfig
}

var _ interfaces.TransferDispatcher = (*TransferDispatcher)(nil)

func NewTransferDispatcher(log logger.Logger, cfg *config.SMTPConfig) *TransferDispatcher {
	return &TransferDispatcher{
		log: log,
		cfg: cfg,
	}
}

// ReplySubject applies the reply threading convention: a subject already
// carrying the "Re:" prefix is used verbatim, anything else gets prefixed.
func (d *TransferDispatcher) ReplySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}

// Send transmits one message. A non-empty replyToSubject overrides the
// subject with the reply convention applied. Failures come back as
// (false, diagnostic); the diagnostic distinguishes configuration,
// connection and authentication problems.
func (d *TransferDispatcher) Send(ctx context.Context, to, subject, body, replyToSubject string, isHTML bool) (bool, string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TransferDispatcher.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("to", to)

	if reason, ok := d.configCheck(); !ok {
		return false, reason
	}
	if to == "" {
		return false, "recipient address is required"
	}

	if replyToSubject != "" {
		subject = d.ReplySubject(replyToSubject)
	}

	message := d.buildMessage(to, subject, body, isHTML)

	client, diagnostic := d.connect(ctx)
	if client == nil {
		tracing.TraceErr(span, fmt.Errorf("%s", diagnostic))
		return false, diagnostic
	}
	defer client.Close()

	if err := client.Mail(d.cfg.FromEmail); err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Sprintf("SMTP MAIL command failed: %v", err)
	}
	if err := client.Rcpt(to); err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Sprintf("SMTP RCPT command failed for %s: %v", to, err)
	}

	dataWriter, err := client.Data()
	if err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Sprintf("SMTP DATA command failed: %v", err)
	}
	if _, err = dataWriter.Write(message.Bytes()); err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Sprintf("failed to write message data: %v", err)
	}
	if err = dataWriter.Close(); err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Sprintf("failed to finish message data: %v", err)
	}

	if err = client.Quit(); err != nil {
		d.log.Warnf("error quitting SMTP session with %s: %v", d.cfg.Server, err)
	}

	d.log.Infof("message sent to %s via %s", to, d.cfg.Server)
	return true, fmt.Sprintf("message sent to %s", to)
}

// TestConnection runs the connection and authentication sequence without
// transmitting a message.
func (d *TransferDispatcher) TestConnection(ctx context.Context) (bool, string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TransferDispatcher.TestConnection")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if reason, ok := d.configCheck(); !ok {
		return false, reason
	}

	client, diagnostic := d.connect(ctx)
	if client == nil {
		tracing.TraceErr(span, fmt.Errorf("%s", diagnostic))
		return false, diagnostic
	}
	defer client.Close()

	if err := client.Quit(); err != nil {
		d.log.Warnf("error quitting SMTP session with %s: %v", d.cfg.Server, err)
	}

	return true, "SMTP connection successful"
}

// configCheck fails fast, before any I/O, when the dispatcher is missing
// required settings.
func (d *TransferDispatcher) configCheck() (string, bool) {
	var missing []string
	if d.cfg.Server == "" {
		missing = append(missing, "server")
	}
	if d.cfg.Username == "" {
		missing = append(missing, "username")
	}
	if d.cfg.Password == "" {
		missing = append(missing, "password")
	}
	if d.cfg.FromEmail == "" {
		missing = append(missing, "from address")
	}
	if len(missing) > 0 {
		return fmt.Sprintf("SMTP is not configured: missing %s", strings.Join(missing, ", ")), false
	}
	return "", true
}

// connect dials the server, upgrades to TLS when configured and
// authenticates. On failure it returns nil and the diagnostic.
func (d *TransferDispatcher) connect(ctx context.Context) (*smtp.Client, string) {
	addr := fmt.Sprintf("%s:%d", d.cfg.Server, d.cfg.Port)

	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return nil, fmt.Sprintf("failed to connect to SMTP server %s: %v", addr, err)
	}

	client, err := smtp.NewClient(conn, d.cfg.Server)
	if err != nil {
		conn.Close()
		return nil, fmt.Sprintf("failed to create SMTP client: %v", err)
	}

	if d.cfg.UseTLS {
		tlsConfig := &tls.Config{ServerName: d.cfg.Server}
		if err = client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Sprintf("failed to start TLS: %v", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Server)
		if err = client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Sprintf("SMTP authentication failed: %v", err)
		}
	}

	return client, ""
}

func (d *TransferDispatcher) buildMessage(to, subject, body string, isHTML bool) *bytes.Buffer {
	from := d.cfg.FromEmail
	if d.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", d.cfg.FromName), d.cfg.FromEmail)
	}

	contentType := "text/plain; charset=UTF-8"
	if isHTML {
		contentType = "text/html; charset=UTF-8"
	}

	buffer := bytes.NewBuffer(nil)
	fmt.Fprintf(buffer, "From: %s\r\n", from)
	fmt.Fprintf(buffer, "To: %s\r\n", to)
	fmt.Fprintf(buffer, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(buffer, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(buffer, "Message-ID: %s\r\n", utils.GenerateMessageID(utils.ExtractDomainFromEmail(d.cfg.FromEmail), to))
	fmt.Fprintf(buffer, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(buffer, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(buffer, "\r\n")
	buffer.WriteString(body)
	buffer.WriteString("\r\n")

	return buffer
}
