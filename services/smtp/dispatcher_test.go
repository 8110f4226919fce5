package smtp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/testutil"
)

func newTestDispatcher(t *testing.T, server *testutil.TestSMTPServer) *TransferDispatcher {
	t.Helper()

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	host, port := server.HostPort(t)
	return NewTransferDispatcher(log, &config.SMTPConfig{
		Server:    host,
		Port:      port,
		Username:  "sender",
		Password:  "secret",
		FromEmail: "sender@example.com",
		FromName:  "Sender",
		UseTLS:    false,
	})
}

func TestReplySubject(t *testing.T) {
	d := &TransferDispatcher{}

	assert.Equal(t, "Re: Hello", d.ReplySubject("Hello"))
	assert.Equal(t, "Re: Hello", d.ReplySubject("Re: Hello"))
	assert.Equal(t, "Re: Re: deep thread", d.ReplySubject("Re: Re: deep thread"))
	assert.Equal(t, "Re: ", d.ReplySubject(""))
}

func TestSendFailsFastWithoutConfig(t *testing.T) {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	d := NewTransferDispatcher(log, &config.SMTPConfig{Server: "smtp.example.com"})

	ok, diagnostic := d.Send(context.Background(), "to@example.com", "subject", "body", "", false)
	assert.False(t, ok)
	assert.Contains(t, diagnostic, "not configured")
	assert.Contains(t, diagnostic, "username")
	assert.Contains(t, diagnostic, "password")
	assert.Contains(t, diagnostic, "from address")
}

func TestSendRequiresRecipient(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	d := newTestDispatcher(t, server)

	ok, diagnostic := d.Send(context.Background(), "", "subject", "body", "", false)
	assert.False(t, ok)
	assert.Contains(t, diagnostic, "recipient")
	assert.Empty(t, server.GetMessages())
}

func TestSendDeliversMessage(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	d := newTestDispatcher(t, server)

	ok, diagnostic := d.Send(context.Background(), "rcpt@example.com", "Greetings", "hello there", "", false)
	require.True(t, ok, diagnostic)

	messages := server.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "sender@example.com", messages[0].From)
	assert.Equal(t, []string{"rcpt@example.com"}, messages[0].To)
	assert.Contains(t, string(messages[0].Data), "Subject: Greetings")
	assert.Contains(t, string(messages[0].Data), "hello there")
	assert.Contains(t, string(messages[0].Data), "Content-Type: text/plain")
}

func TestSendAppliesReplySubject(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	d := newTestDispatcher(t, server)

	ok, diagnostic := d.Send(context.Background(), "rcpt@example.com", "ignored", "body", "original subject", false)
	require.True(t, ok, diagnostic)

	messages := server.GetMessages()
	require.Len(t, messages, 1)
	assert.Contains(t, string(messages[0].Data), "Subject: Re: original subject")
}

func TestSendHTMLContentType(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	d := newTestDispatcher(t, server)

	ok, diagnostic := d.Send(context.Background(), "rcpt@example.com", "subject", "<p>hi</p>", "", true)
	require.True(t, ok, diagnostic)

	messages := server.GetMessages()
	require.Len(t, messages, 1)
	assert.Contains(t, string(messages[0].Data), "Content-Type: text/html")
}

func TestSendConnectionFailure(t *testing.T) {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	d := NewTransferDispatcher(log, &config.SMTPConfig{
		Server:    "127.0.0.1",
		Port:      1, // nothing listens here
		Username:  "sender",
		Password:  "secret",
		FromEmail: "sender@example.com",
	})

	ok, diagnostic := d.Send(context.Background(), "rcpt@example.com", "subject", "body", "", false)
	assert.False(t, ok)
	assert.Contains(t, diagnostic, "failed to connect")
}

func TestTestConnection(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	d := newTestDispatcher(t, server)

	ok, message := d.TestConnection(context.Background())
	require.True(t, ok, message)
	assert.Empty(t, server.GetMessages())
}

func TestTestConnectionFailsFastWithoutConfig(t *testing.T) {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	d := NewTransferDispatcher(log, &config.SMTPConfig{})

	ok, message := d.TestConnection(context.Background())
	assert.False(t, ok)
	assert.Contains(t, message, "not configured")
}
