package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	"crewmission-service/internal/domain/repository"
	"crewmission-service/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailMailer sends client emails through the Gmail API
type GmailMailer struct {
	gmailService *gmail.Service
	sender       string
	logger       logger.Logger
	timeout      time.Duration
}

// NewGmailMailer creates a new Gmail mailer
func NewGmailMailer(ctx context.Context, tokenSource oauth2.TokenSource, sender string, logger logger.Logger, timeout time.Duration) (*GmailMailer, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GmailMailer{
		gmailService: service,
		sender:       sender,
		logger:       logger,
		timeout:      timeout,
	}, nil
}

// Send delivers mail and returns the Gmail message id
func (s *GmailMailer) Send(ctx context.Context, mail repository.OutgoingMail) (string, error) {
	if strings.TrimSpace(mail.To) == "" {
		return "", fmt.Errorf("mail recipient is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw := base64.URLEncoding.EncodeToString([]byte(BuildMessage(s.sender, mail)))
	msg, err := s.gmailService.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		s.logger.Error("Failed to send email", "to", mail.To, "subject", mail.Subject, "error", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email sent",
		"to", mail.To,
		"subject", mail.Subject,
		"messageId", msg.Id)

	return msg.Id, nil
}

// BuildMessage renders mail as an RFC 822 plain-text message
func BuildMessage(from string, mail repository.OutgoingMail) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", mail.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", mail.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(mail.Body, "\n", "\r\n"))
	return b.String()
}
