package gmail

import (
	"strings"
	"testing"

	"crewmission-service/internal/domain/repository"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("ops@example.com", repository.OutgoingMail{
		To:      "client@example.com",
		Subject: "Mission quote",
		Body:    "line one\nline two",
	})

	assert.True(t, strings.HasPrefix(msg, "From: ops@example.com\r\n"))
	assert.Contains(t, msg, "To: client@example.com\r\n")
	assert.Contains(t, msg, "Subject: Mission quote\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	assert.True(t, strings.HasSuffix(msg, "line one\r\nline two"))
}

func TestBuildMessageEncodesNonASCIISubject(t *testing.T) {
	msg := BuildMessage("", repository.OutgoingMail{To: "a@b.c", Subject: "Devis mission été"})

	assert.NotContains(t, msg, "From:")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}
