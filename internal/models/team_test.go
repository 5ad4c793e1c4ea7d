package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamMemberUnmarshalLegacyUID(t *testing.T) {
	var member TeamMember
	err := json.Unmarshal([]byte(`"user-1"`), &member)

	assert.NoError(t, err)
	assert.Equal(t, "user-1", member.UID)
	assert.Empty(t, member.Position)
}

func TestTeamMemberUnmarshalStructured(t *testing.T) {
	var member TeamMember
	err := json.Unmarshal([]byte(`{"uid":"user-2","position":"arquero"}`), &member)

	assert.NoError(t, err)
	assert.Equal(t, "user-2", member.UID)
	assert.Equal(t, "arquero", member.Position)
}

func TestTeamMembersMixedShapes(t *testing.T) {
	raw := `["user-1",{"uid":"user-2","position":"delantero"}]`

	var members []TeamMember
	err := json.Unmarshal([]byte(raw), &members)

	assert.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, "user-1", members[0].UID)
	assert.Equal(t, "user-2", members[1].UID)
	assert.Equal(t, "delantero", members[1].Position)
}

func TestTeamMembership(t *testing.T) {
	team := Team{
		TeamID: "team-a",
		Members: []TeamMember{
			{UID: "user-1"},
			{UID: "user-2", Position: "arquero"},
		},
	}

	assert.True(t, team.HasMember("user-1"))
	assert.True(t, team.HasMember("user-2"))
	assert.False(t, team.HasMember("user-3"))
	assert.Equal(t, []string{"user-1", "user-2"}, team.MemberIDs())
}
