package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrewMemberPatternEscapesWildcards(t *testing.T) {
	tests := []struct {
		memberID string
		want     string
	}{
		{"cpt-1", `%,cpt-1,%`},
		{"%", `%,\%,%`},
		{"cpt_1", `%,cpt\_1,%`},
		{`a\b`, `%,a\\b,%`},
	}
	for _, tt := range tests {
		got, ok := crewMemberPattern(tt.memberID)
		require.True(t, ok, tt.memberID)
		assert.Equal(t, tt.want, got, tt.memberID)
	}
}

func TestCrewMemberPatternRejectsDelimiter(t *testing.T) {
	_, ok := crewMemberPattern("cpt-1,fo-1")
	assert.False(t, ok)
}

func TestMissionModelDelimitsCrewMembers(t *testing.T) {
	model, err := toMissionModel(sampleMission("m-1"))
	require.NoError(t, err)
	assert.Equal(t, ",crew-1,cpt-1,", model.CrewIDs)
}
