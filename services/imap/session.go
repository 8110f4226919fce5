package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/services/parser"
)

const (
	dialTimeout   = 30 * time.Second
	logoutTimeout = 5 * time.Second
)

// MailboxSession is one short-lived IMAP conversation over a dedicated TLS
// connection. A session is single-owner: it is created, connected, used and
// disconnected by one caller and never shared.
type MailboxSession struct {
	log     logger.Logger
	creds   models.MailboxCredentials
	parser  *parser.ParserService
	client  *client.Client
	dialTLS bool
}

var _ interfaces.MailboxSession = (*MailboxSession)(nil)

func NewMailboxSession(log logger.Logger, creds models.MailboxCredentials, parserService *parser.ParserService) *MailboxSession {
	return &MailboxSession{
		log:     log,
		creds:   creds,
		parser:  parserService,
		dialTLS: true,
	}
}

// NewPlaintextMailboxSession skips the TLS dial. Only test servers speak
// plaintext IMAP; production mailboxes always go through NewMailboxSession.
func NewPlaintextMailboxSession(log logger.Logger, creds models.MailboxCredentials, parserService *parser.ParserService) *MailboxSession {
	return &MailboxSession{
		log:    log,
		creds:  creds,
		parser: parserService,
	}
}

// Connect dials the server and logs in. The two failure classes are kept
// apart in the returned message: a dial failure names the server, a login
// rejection names the account.
func (s *MailboxSession) Connect(ctx context.Context) (bool, string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxSession.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", s.creds.Server)
	span.SetTag("port", s.creds.Port)

	if s.client != nil {
		return true, fmt.Sprintf("already connected to %s", s.creds.Server)
	}

	serverAddr := fmt.Sprintf("%s:%d", s.creds.Server, s.creds.Port)
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialTimeout,
	}

	var c *client.Client
	var err error
	if s.dialTLS {
		tlsConfig := &tls.Config{ServerName: s.creds.Server}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to connect to %s: %v", serverAddr, err)
		return false, fmt.Sprintf("failed to connect to %s: %v", serverAddr, err)
	}

	c.Timeout = dialTimeout
	if err = c.Login(s.creds.Email, s.creds.Password); err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		s.log.Warnf("login rejected for %s: %v", s.creds.Email, err)
		return false, fmt.Sprintf("login failed for %s: %v", s.creds.Email, err)
	}
	c.Timeout = 0

	s.client = c
	return true, fmt.Sprintf("connected to %s", s.creds.Server)
}

// Disconnect releases the connection. Safe to call at any time, in any
// state, and repeatedly; logout errors are swallowed.
func (s *MailboxSession) Disconnect() {
	if s.client == nil {
		return
	}

	c := s.client
	s.client = nil

	c.Timeout = logoutTimeout
	done := make(chan error, 1)
	go func() {
		done <- c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warnf("error during logout from %s: %v", s.creds.Server, err)
		}
	case <-time.After(logoutTimeout):
		s.log.Warnf("logout from %s timed out", s.creds.Server)
	}
}

// TestConnection proves the credentials work end to end: connect, select
// INBOX read-only, disconnect. The connection is released no matter how far
// the probe got.
func (s *MailboxSession) TestConnection(ctx context.Context) (bool, string, string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxSession.TestConnection")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	ok, message := s.Connect(ctx)
	if !ok {
		return false, message, ""
	}
	defer s.Disconnect()

	mbox, err := s.client.Select("INBOX", true)
	if err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Sprintf("failed to select INBOX: %v", err), ""
	}

	span.SetTag("messages.total", mbox.Messages)
	return true, "connection successful", fmt.Sprintf("INBOX contains %d messages", mbox.Messages)
}
