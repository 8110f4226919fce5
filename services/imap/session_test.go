package imap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/testutil"
	"github.com/superwave/maildesk/services/parser"
)

func newTestSession(t *testing.T, server *testutil.TestIMAPServer, password string) *MailboxSession {
	t.Helper()

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	host, port := server.HostPort(t)
	creds := models.MailboxCredentials{
		Server:   host,
		Port:     port,
		Email:    server.Username(),
		Password: password,
	}
	return NewPlaintextMailboxSession(log, creds, parser.NewParserService(log))
}

func TestConnectAndDisconnect(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	session := newTestSession(t, server, server.Password())

	ok, message := session.Connect(context.Background())
	require.True(t, ok, message)
	assert.NotNil(t, session.client)

	session.Disconnect()
	assert.Nil(t, session.client)

	// disconnecting again is a no-op
	session.Disconnect()
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	session := newTestSession(t, server, "wrong-password")

	ok, message := session.Connect(context.Background())
	assert.False(t, ok)
	assert.Contains(t, message, "login failed")
	assert.Nil(t, session.client)
}

func TestConnectDialFailure(t *testing.T) {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	session := NewPlaintextMailboxSession(log, models.MailboxCredentials{
		Server:   "127.0.0.1",
		Port:     1, // nothing listens here
		Email:    "someone@example.com",
		Password: "secret",
	}, parser.NewParserService(log))

	ok, message := session.Connect(context.Background())
	assert.False(t, ok)
	assert.Contains(t, message, "failed to connect")
}

func TestTestConnectionReleasesSession(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	session := newTestSession(t, server, server.Password())

	ok, message, detail := session.TestConnection(context.Background())
	require.True(t, ok, message)
	assert.Equal(t, "connection successful", message)
	assert.Contains(t, detail, "messages")
	// the probe always releases its connection
	assert.Nil(t, session.client)
}

func TestTestConnectionFailureHasNoDetail(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	session := newTestSession(t, server, "wrong-password")

	ok, message, detail := session.TestConnection(context.Background())
	assert.False(t, ok)
	assert.NotEmpty(t, message)
	assert.Empty(t, detail)
	assert.Nil(t, session.client)
}

func TestListFolders(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()
	server.CreateFolder(t, "Archive")

	session := newTestSession(t, server, server.Password())
	ok, message := session.Connect(context.Background())
	require.True(t, ok, message)
	defer session.Disconnect()

	folders := session.ListFolders(context.Background())

	names := make([]string, 0, len(folders))
	for _, folder := range folders {
		names = append(names, folder.Name)
	}
	assert.Contains(t, names, "INBOX")
	assert.Contains(t, names, "Archive")
}

func TestListFoldersWithoutConnection(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	session := newTestSession(t, server, server.Password())

	assert.Empty(t, session.ListFolders(context.Background()))
}

func TestFetchMessagesNewestFirstCap(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()
	server.CreateFolder(t, "Bulk")
	server.AppendNumberedMessages(t, "Bulk", 10)

	session := newTestSession(t, server, server.Password())
	ok, message := session.Connect(context.Background())
	require.True(t, ok, message)
	defer session.Disconnect()

	messages := session.FetchMessages(context.Background(), "Bulk", 3, "", true)

	require.Len(t, messages, 3)
	assert.Equal(t, "msg 10", messages[0].Subject)
	assert.Equal(t, "msg 9", messages[1].Subject)
	assert.Equal(t, "msg 8", messages[2].Subject)
	assert.Equal(t, "10", messages[0].UID)
}

func TestFetchMessagesHeaderOnly(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()
	server.CreateFolder(t, "Light")
	server.AppendNumberedMessages(t, "Light", 2)

	session := newTestSession(t, server, server.Password())
	ok, message := session.Connect(context.Background())
	require.True(t, ok, message)
	defer session.Disconnect()

	messages := session.FetchMessages(context.Background(), "Light", 0, "", false)

	require.Len(t, messages, 2)
	for _, msg := range messages {
		assert.NotEmpty(t, msg.Subject)
		assert.Empty(t, msg.BodyText)
	}
}

func TestFetchMessagesSkipsBrokenMessage(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()
	server.CreateFolder(t, "Mixed")
	server.AppendNumberedMessages(t, "Mixed", 2)
	server.AppendMessage(t, "Mixed", "this line is no header\x00\r\nand no body separator either", false)
	server.AppendNumberedMessages(t, "Mixed", 2)

	session := newTestSession(t, server, server.Password())
	ok, message := session.Connect(context.Background())
	require.True(t, ok, message)
	defer session.Disconnect()

	messages := session.FetchMessages(context.Background(), "Mixed", 0, "", true)

	// the unparseable message is dropped, everything else survives
	assert.Len(t, messages, 4)
}

func TestFetchMessagesUnknownFolder(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	session := newTestSession(t, server, server.Password())
	ok, message := session.Connect(context.Background())
	require.True(t, ok, message)
	defer session.Disconnect()

	assert.Empty(t, session.FetchMessages(context.Background(), "NoSuchFolder", 5, "", true))
}

func TestLimitNewest(t *testing.T) {
	ids := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, []uint32{10, 9, 8}, limitNewest(ids, 3))
	assert.Equal(t, []uint32{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, limitNewest(ids, 0))
	assert.Equal(t, []uint32{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, limitNewest(ids, 25))
	assert.Empty(t, limitNewest(nil, 3))
}
