package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestActivityFromLogDecodesMetadata(t *testing.T) {
	a, err := activityFromLog(ActivityLogs{
		Model:     gorm.Model{ID: 7},
		Type:      "mission_cancel",
		MissionID: "m-1",
		Metadata:  `{"from":"approved","to":"cancelled"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "7", a.ID)
	assert.Equal(t, "cancelled", a.Metadata["to"])
}

func TestActivityFromLogKeepsUndecodableMetadata(t *testing.T) {
	a, err := activityFromLog(ActivityLogs{
		Model:     gorm.Model{ID: 8},
		Type:      "mission_close",
		MissionID: "m-1",
		Metadata:  `{"from":`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity 8")
	require.NotNil(t, a)
	assert.Equal(t, "mission_close", a.Type)
	assert.Equal(t, map[string]interface{}{"raw": `{"from":`}, a.Metadata)
}

func TestActivityFromLogWithoutMetadata(t *testing.T) {
	a, err := activityFromLog(ActivityLogs{Model: gorm.Model{ID: 9}})
	require.NoError(t, err)
	assert.Nil(t, a.Metadata)
}
