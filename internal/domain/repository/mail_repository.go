package repository

import (
	"context"
)

// OutgoingMail is a plain-text message to a single recipient
type OutgoingMail struct {
	To      string
	Subject string
	Body    string
}

// MailRepository defines the interface for outbound client email
type MailRepository interface {
	Send(ctx context.Context, mail OutgoingMail) (string, error)
}
