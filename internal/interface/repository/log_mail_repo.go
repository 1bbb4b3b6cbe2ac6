package repository

import (
	"context"
	"fmt"
	"time"

	"crewmission-service/internal/domain/repository"
	"crewmission-service/pkg/logger"
)

// LogMailRepository writes outgoing mail to the log instead of sending it.
// It is used when no Gmail credentials are configured.
type LogMailRepository struct {
	logger logger.Logger
}

// NewLogMailRepository creates a mailer that only logs
func NewLogMailRepository(logger logger.Logger) *LogMailRepository {
	return &LogMailRepository{logger: logger}
}

// Send logs the mail and returns a synthetic message id
func (r *LogMailRepository) Send(_ context.Context, mail repository.OutgoingMail) (string, error) {
	id := fmt.Sprintf("log-%d", time.Now().UnixNano())
	r.logger.Info("Email delivery disabled, logging message",
		"to", mail.To,
		"subject", mail.Subject,
		"messageId", id)
	return id, nil
}
