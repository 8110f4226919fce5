package testutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-process IMAP server backed by the go-imap memory
// backend. The backend ships with one default user ("username"/"password")
// whose INBOX already holds a single sample message.
type TestIMAPServer struct {
	Server  *server.Server
	Address string
	Backend *memory.Backend
	cleanup func()
}

func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	return &TestIMAPServer{
		Server:  s,
		Address: listener.Addr().String(),
		Backend: be,
		cleanup: func() { _ = s.Close() },
	}
}

func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *TestIMAPServer) Username() string { return "username" }
func (s *TestIMAPServer) Password() string { return "password" }

// HostPort splits the listener address into the host and numeric port the
// session config wants.
func (s *TestIMAPServer) HostPort(t *testing.T) (string, int) {
	t.Helper()

	host, portStr, err := net.SplitHostPort(s.Address)
	if err != nil {
		t.Fatalf("Failed to split address %q: %v", s.Address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Invalid port %q: %v", portStr, err)
	}
	return host, port
}

func (s *TestIMAPServer) connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	c, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}
	if err := c.Login(s.Username(), s.Password()); err != nil {
		_ = c.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	return c, func() { _ = c.Logout() }
}

// CreateFolder makes an empty folder for the default user, so tests can
// work on a folder without the backend's preloaded sample message.
func (s *TestIMAPServer) CreateFolder(t *testing.T, name string) {
	t.Helper()

	c, cleanup := s.connect(t)
	defer cleanup()

	if err := c.Create(name); err != nil {
		t.Fatalf("Failed to create folder %s: %v", name, err)
	}
}

// AppendMessage appends one raw message to the folder.
func (s *TestIMAPServer) AppendMessage(t *testing.T, folder string, raw string, seen bool) {
	t.Helper()

	c, cleanup := s.connect(t)
	defer cleanup()

	var flags []string
	if seen {
		flags = []string{imap.SeenFlag}
	}
	if err := c.Append(folder, flags, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
}

// AppendNumberedMessages appends count plain-text messages whose subjects
// are "msg 1" .. "msg count", in that order.
func (s *TestIMAPServer) AppendNumberedMessages(t *testing.T, folder string, count int) {
	t.Helper()

	for i := 1; i <= count; i++ {
		raw := PlainMessage(
			fmt.Sprintf("sender%d@example.com", i),
			"inbox@example.com",
			fmt.Sprintf("msg %d", i),
			fmt.Sprintf("body of message %d", i),
		)
		s.AppendMessage(t, folder, raw, false)
	}
}

// PlainMessage builds a minimal RFC 5322 text message.
func PlainMessage(from, to, subject, body string) string {
	return strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + time.Now().Format(time.RFC1123Z),
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
		"",
	}, "\r\n")
}
