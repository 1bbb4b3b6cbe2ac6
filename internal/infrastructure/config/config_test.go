package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MISSION_STORE_PRIMARY", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.AssignmentPollInterval)
	assert.Equal(t, 5*time.Minute, cfg.EscalationPollInterval)
	assert.Equal(t, 15*time.Minute, cfg.ValidationPollInterval)
	assert.Equal(t, "percentage", cfg.DefaultMarginType)
	assert.Equal(t, 10.0, cfg.DefaultMarginValue)
	assert.True(t, cfg.AutoGenerateContract)
	assert.False(t, cfg.GmailEnabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MISSION_STORE_PRIMARY", "Postgres")
	t.Setenv("POSTGRES_DSN", "host=localhost dbname=crew")
	t.Setenv("ASSIGNMENT_POLL_INTERVAL", "5")
	t.Setenv("DEFAULT_MARGIN_TYPE", "fixed")
	t.Setenv("DEFAULT_MARGIN_VALUE", "150.5")
	t.Setenv("AUTO_GENERATE_CONTRACT", "false")
	t.Setenv("CREW_SERVICE_URL", "https://crew.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.MissionStorePrimary)
	assert.Equal(t, 5*time.Second, cfg.AssignmentPollInterval)
	assert.Equal(t, "fixed", cfg.DefaultMarginType)
	assert.Equal(t, 150.5, cfg.DefaultMarginValue)
	assert.False(t, cfg.AutoGenerateContract)
	assert.Equal(t, "https://crew.example.com", cfg.CrewServiceURL)
}

func TestLoadConfigRejectsMissingPrimaryDSN(t *testing.T) {
	t.Setenv("MISSION_STORE_PRIMARY", "mongo")
	t.Setenv("MONGODB_DSN", "")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("MISSION_STORE_PRIMARY", "redis")
	_, err = LoadConfig()
	assert.Error(t, err)
}
