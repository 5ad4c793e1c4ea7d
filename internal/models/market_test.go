package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlotUnmarshalLegacyString(t *testing.T) {
	var slot TimeSlot
	err := json.Unmarshal([]byte(`"18:00"`), &slot)

	assert.NoError(t, err)
	assert.Equal(t, "18:00", slot.Time)
	assert.NotNil(t, slot.BookedUsers)
	assert.Empty(t, slot.BookedUsers)
	assert.Empty(t, slot.BookedTeams)
}

func TestTimeSlotUnmarshalStructured(t *testing.T) {
	var slot TimeSlot
	err := json.Unmarshal([]byte(`{"time":"19:00","bookedUsers":["u1","u2"]}`), &slot)

	assert.NoError(t, err)
	assert.Equal(t, "19:00", slot.Time)
	assert.Equal(t, []string{"u1", "u2"}, slot.BookedUsers)
}

func TestTimeSlotUnmarshalMissingUsersDefaultsEmpty(t *testing.T) {
	var slot TimeSlot
	err := json.Unmarshal([]byte(`{"time":"20:00"}`), &slot)

	assert.NoError(t, err)
	assert.NotNil(t, slot.BookedUsers)
	assert.Empty(t, slot.BookedUsers)
}

func TestScheduleUnmarshalMixedSlotShapes(t *testing.T) {
	raw := `{"date":"2026-09-05","times":["17:00",{"time":"18:00","bookedUsers":["u1"]}]}`

	var schedule Schedule
	err := json.Unmarshal([]byte(raw), &schedule)

	assert.NoError(t, err)
	assert.Len(t, schedule.Times, 2)
	assert.Equal(t, "17:00", schedule.Times[0].Time)
	assert.Empty(t, schedule.Times[0].BookedUsers)
	assert.Equal(t, "18:00", schedule.Times[1].Time)
	assert.Equal(t, []string{"u1"}, schedule.Times[1].BookedUsers)
}

func TestTimeSlotMembership(t *testing.T) {
	slot := TimeSlot{
		Time:        "18:00",
		BookedUsers: []string{"u1"},
		BookedTeams: []BookedTeam{{TeamID: "team-a"}},
	}

	assert.True(t, slot.HasUser("u1"))
	assert.False(t, slot.HasUser("u2"))
	assert.True(t, slot.HasTeam("team-a"))
	assert.False(t, slot.HasTeam("team-b"))
}

func TestMarketSlotBounds(t *testing.T) {
	market := Market{
		Schedules: []Schedule{
			{Date: "2026-09-05", Times: []TimeSlot{{Time: "18:00"}}},
		},
	}

	assert.NotNil(t, market.Slot(0, 0))
	assert.Nil(t, market.Slot(0, 1))
	assert.Nil(t, market.Slot(1, 0))
	assert.Nil(t, market.Slot(-1, 0))
	assert.Nil(t, market.Slot(0, -1))
}

func TestCategoryIsTeam(t *testing.T) {
	assert.False(t, CategoryIndividual.IsTeam())
	assert.True(t, CategoryVersus.IsTeam())
	assert.True(t, CategoryEquipos.IsTeam())
}
