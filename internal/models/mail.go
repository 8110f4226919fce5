package models

import "time"

// MailboxCredentials holds everything needed to open one IMAP session.
// The password is plaintext here; encrypted storage is handled upstream.
type MailboxCredentials struct {
	Server   string
	Port     int
	Email    string
	Password string
}

// FolderInfo describes one mailbox folder as reported by the server.
type FolderInfo struct {
	Name       string   `json:"name"`
	Delimiter  string   `json:"delimiter"`
	Attributes []string `json:"attributes"`
}

// Attachment is the metadata of one attachment-disposition MIME part.
// Content bytes are never retained.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// DecodedMessage is the fully decoded view of one fetched message.
type DecodedMessage struct {
	UID            string       `json:"uid"`
	Subject        string       `json:"subject"`
	From           string       `json:"from"`
	To             []string     `json:"to"`
	Date           *time.Time   `json:"date"`
	BodyText       string       `json:"bodyText"`
	BodyHTML       string       `json:"bodyHtml"`
	Preview        string       `json:"preview,omitempty"`
	Attachments    []Attachment `json:"attachments"`
	HasAttachments bool         `json:"hasAttachments"`
	Read           bool         `json:"read"`
}
