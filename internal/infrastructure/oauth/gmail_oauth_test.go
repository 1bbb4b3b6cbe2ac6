package oauth

import (
	"context"
	"net/url"
	"testing"

	"crewmission-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func TestGenerateAuthURLRequestsOfflineSendScope(t *testing.T) {
	auth := NewGmailOAuth("client-id", "secret", "", "http://localhost:8090/oauth2callback", logger.NewNop())
	require.True(t, auth.Configured())

	u, err := url.Parse(auth.GenerateAuthURL("state-1"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, gmail.GmailSendScope, q.Get("scope"))
	assert.Equal(t, "http://localhost:8090/oauth2callback", q.Get("redirect_uri"))
}

func TestConfiguredNeedsBothCredentials(t *testing.T) {
	assert.False(t, NewGmailOAuth("", "secret", "", "", logger.NewNop()).Configured())
	assert.False(t, NewGmailOAuth("id", "", "", "", logger.NewNop()).Configured())
}

func TestTokenSourceCarriesRefreshToken(t *testing.T) {
	auth := NewGmailOAuth("id", "secret", "refresh-1", "", logger.NewNop())
	assert.NotNil(t, auth.GetTokenSource(context.Background()))
}
