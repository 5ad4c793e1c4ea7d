package models

import (
	"encoding/json"

	"github.com/uptrace/bun"
)

// Category decides the capacity policy of a market's slots.
type Category string

const (
	CategoryIndividual Category = "individual"
	CategoryVersus     Category = "versus"
	// Legacy records use "equipos" for team markets.
	CategoryEquipos Category = "equipos"
)

// IsTeam reports whether slots of this market are booked by teams
// rather than individual players.
func (c Category) IsTeam() bool {
	return c == CategoryVersus || c == CategoryEquipos
}

const (
	// MaxUsersPerSlot caps individual-category slots.
	MaxUsersPerSlot = 15
	// MaxTeamsPerSlot caps team-category slots.
	MaxTeamsPerSlot = 2
)

// BookedTeam is the descriptor stored on a slot for a team booking.
// MemberIDs carries the union of the team's member uids for display.
type BookedTeam struct {
	TeamID    string   `json:"teamId"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

// TimeSlot is one bookable unit inside a schedule. Legacy documents store
// a slot as a bare time string; UnmarshalJSON lifts both shapes into the
// structured form so callers never see the string variant.
type TimeSlot struct {
	Time        string       `json:"time"`
	BookedUsers []string     `json:"bookedUsers"`
	BookedTeams []BookedTeam `json:"bookedTeams,omitempty"`
}

func (s *TimeSlot) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var t string
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		*s = TimeSlot{Time: t, BookedUsers: []string{}}
		return nil
	}

	type slotAlias TimeSlot
	var a slotAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.BookedUsers == nil {
		a.BookedUsers = []string{}
	}
	*s = TimeSlot(a)
	return nil
}

// HasUser reports whether uid already booked this slot.
func (s *TimeSlot) HasUser(uid string) bool {
	for _, u := range s.BookedUsers {
		if u == uid {
			return true
		}
	}
	return false
}

// HasTeam reports whether teamID already booked this slot.
func (s *TimeSlot) HasTeam(teamID string) bool {
	for _, t := range s.BookedTeams {
		if t.TeamID == teamID {
			return true
		}
	}
	return false
}

// Schedule is one calendar date of a market with its ordered time slots.
type Schedule struct {
	Date  string     `json:"date"`
	Times []TimeSlot `json:"times"`
}

// Market is a bookable venue. The schedules array is the embedded document
// the reservation transaction rewrites as a whole; Version is the
// optimistic-concurrency token guarding that rewrite.
type Market struct {
	bun.BaseModel `bun:"table:markets"`

	MarketID        string     `bun:"market_id,pk" json:"marketId"`
	Stadium         string     `bun:"stadium" json:"stadium"`
	Address         string     `bun:"address" json:"address"`
	Category        Category   `bun:"category" json:"category"`
	Price           int64      `bun:"price" json:"price"`
	NumberOfPlayers string     `bun:"number_of_players" json:"numberOfPlayers"`
	ImageURL        string     `bun:"image_url,nullzero" json:"imageUrl,omitempty"`
	Lat             float64    `bun:"lat,nullzero" json:"lat,omitempty"`
	Lng             float64    `bun:"lng,nullzero" json:"lng,omitempty"`
	Schedules       []Schedule `bun:"schedules,type:jsonb" json:"schedules"`
	Version         int64      `bun:"version" json:"-"`
}

// Slot returns a pointer to the requested slot, or nil when the indices
// fall outside the schedules array.
func (m *Market) Slot(scheduleIndex, timeIndex int) *TimeSlot {
	if scheduleIndex < 0 || scheduleIndex >= len(m.Schedules) {
		return nil
	}
	sch := &m.Schedules[scheduleIndex]
	if timeIndex < 0 || timeIndex >= len(sch.Times) {
		return nil
	}
	return &sch.Times[timeIndex]
}
