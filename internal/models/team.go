package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// TeamMember is a roster entry. Legacy team records store members as bare
// uid strings; UnmarshalJSON accepts both shapes.
type TeamMember struct {
	UID      string `json:"uid"`
	Position string `json:"position,omitempty"`
}

func (m *TeamMember) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var uid string
		if err := json.Unmarshal(data, &uid); err != nil {
			return err
		}
		*m = TeamMember{UID: uid}
		return nil
	}

	type memberAlias TeamMember
	var a memberAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = TeamMember(a)
	return nil
}

// Team is a user-created squad. Color, symbol and shape are cosmetic crest
// attributes chosen in the client. Version guards the members array against
// concurrent roster updates.
type Team struct {
	bun.BaseModel `bun:"table:teams"`

	TeamID    string       `bun:"team_id,pk" json:"teamId"`
	Name      string       `bun:"name,notnull" json:"name"`
	Color     string       `bun:"color,nullzero" json:"color,omitempty"`
	Symbol    string       `bun:"symbol,nullzero" json:"symbol,omitempty"`
	Shape     string       `bun:"shape,nullzero" json:"shape,omitempty"`
	CreatedBy string       `bun:"created_by,notnull" json:"createdBy"`
	Members   []TeamMember `bun:"members,type:jsonb" json:"members"`
	Version   int64        `bun:"version" json:"-"`
	CreatedAt time.Time    `bun:"created_at,notnull" json:"createdAt"`
}

// HasMember reports whether uid is already on the roster, covering legacy
// bare-uid entries as well.
func (t *Team) HasMember(uid string) bool {
	for _, m := range t.Members {
		if m.UID == uid {
			return true
		}
	}
	return false
}

// MemberIDs returns the roster uids in order.
func (t *Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UID)
	}
	return ids
}

// User is the minimal profile the roster add-by-name flow needs.
type User struct {
	bun.BaseModel `bun:"table:users"`

	UserID string `bun:"user_id,pk" json:"userId"`
	Name   string `bun:"name,notnull" json:"name"`
	Email  string `bun:"email,nullzero" json:"email,omitempty"`
}
