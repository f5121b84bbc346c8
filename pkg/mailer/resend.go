// Package mailer sends transactional email through Resend.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ErrNotConfigured is returned by Send when no API key was provided
var ErrNotConfigured = errors.New("RESEND_API_KEY is not configured")

// Message is one outgoing email. From is filled by the mailer when empty.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Mailer delivers a message and returns the provider's message id
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendMailer is the Resend backed Mailer
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResend builds a mailer. An empty apiKey yields a mailer whose Send always fails
// with ErrNotConfigured.
func NewResend(apiKey, from string) *ResendMailer {
	m := &ResendMailer{from: from}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

// Send delivers msg
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	if m.client == nil {
		return "", ErrNotConfigured
	}
	if len(msg.To) == 0 || msg.To[0] == "" {
		return "", errors.New("email has no recipient")
	}
	from := msg.From
	if from == "" {
		from = m.from
	}

	resp, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return resp.Id, nil
}
