package ingest

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/mikey/llm-email-responder/internal/core"
)

// ParseMessage converts a raw RFC 5322 message into a core.Email.
// envelopeFrom and recipients come from the SMTP envelope and are used when
// the headers do not name them.
func ParseMessage(raw []byte, envelopeFrom string, recipients []string) (*core.Email, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	email := &core.Email{
		ID:        messageID(env),
		From:      firstAddress(env, "From", envelopeFrom),
		To:        recipients,
		Subject:   env.GetHeader("Subject"),
		Body:      env.Text,
		Timestamp: timestamp(env),
		Headers:   make(map[string][]string),
	}

	for _, key := range env.GetHeaderKeys() {
		email.Headers[key] = env.GetHeaderValues(key)
	}

	if len(email.To) == 0 {
		if addrs, err := env.AddressList("To"); err == nil {
			for _, a := range addrs {
				email.To = append(email.To, a.Address)
			}
		}
	}

	return email, nil
}

// messageID uses the Message-ID header without its angle brackets, or a
// fresh UUID when the message has none
func messageID(env *enmime.Envelope) string {
	id := strings.Trim(strings.TrimSpace(env.GetHeader("Message-Id")), "<>")
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func firstAddress(env *enmime.Envelope, header, fallback string) string {
	addrs, err := env.AddressList(header)
	if err != nil || len(addrs) == 0 {
		return fallback
	}
	return addrs[0].Address
}

func timestamp(env *enmime.Envelope) string {
	if date, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		return date.UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}
