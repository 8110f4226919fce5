package utils

import (
	"crypto/sha256"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoidAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func Now() time.Time {
	return time.Now().UTC()
}

func NowPtr() *time.Time {
	now := Now()
	return &now
}

// GenerateNanoIDWithPrefix produces ids like "tpl_8x2k...".
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(nanoidAlphabet, length)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}

// GenerateMessageID creates an RFC 5322 message id for outbound mail.
func GenerateMessageID(domain, metadata string) string {
	id, err := gonanoid.Generate(nanoidAlphabet, 12)
	if err != nil {
		panic(err)
	}

	timestamp := time.Now().UnixMicro()

	var hashComponent string
	if metadata != "" {
		hash := sha256.Sum256([]byte(metadata))
		hashComponent = fmt.Sprintf(".%x", hash[:4])
	}

	localPart := fmt.Sprintf("%d.%s%s", timestamp, id, hashComponent)
	return fmt.Sprintf("<%s@%s>", localPart, domain)
}

// ExtractDomainFromEmail returns the lowercased domain part of an address,
// tolerating "Name <user@domain>" shapes.
func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}
	start, end := -1, -1
	for i, r := range email {
		if r == '<' {
			start = i
		}
		if r == '>' {
			end = i
		}
	}
	if start >= 0 && end > start {
		email = email[start+1 : end]
	}
	at := -1
	for i, r := range email {
		if r == '@' {
			at = i
		}
	}
	if at < 0 || at == len(email)-1 {
		return ""
	}
	domain := email[at+1:]
	lower := make([]byte, len(domain))
	for i := 0; i < len(domain); i++ {
		c := domain[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	return string(lower)
}
