package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BookedGame is the denormalized read record written after a successful
// reservation so the games screen can query without touching the market
// document. Its write is best-effort; see the history recorder.
type BookedGame struct {
	bun.BaseModel `bun:"table:booked_games"`

	GameID    string    `bun:"game_id,pk" json:"gameId"`
	MarketID  string    `bun:"market_id,notnull" json:"marketId"`
	UserID    string    `bun:"user_id,notnull" json:"userId"`
	TeamID    string    `bun:"team_id,nullzero" json:"teamId,omitempty"`
	Date      string    `bun:"date,notnull" json:"date"`
	Time      string    `bun:"time,notnull" json:"time"`
	Stadium   string    `bun:"stadium,nullzero" json:"stadium,omitempty"`
	Address   string    `bun:"address,nullzero" json:"address,omitempty"`
	Price     int64     `bun:"price" json:"price"`
	Status    string    `bun:"status,notnull" json:"status"`
	SlotKey   string    `bun:"slot_key" json:"slotKey"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

const GameStatusBooked = "booked"

// PendingBooking is written before the user is handed to the external
// checkout. It carries the slot coordinates so an approved payment can be
// turned into a reservation, keyed by the payment reference.
type PendingBooking struct {
	bun.BaseModel `bun:"table:pending_bookings"`

	Reference     string    `bun:"reference,pk" json:"reference"`
	MarketID      string    `bun:"market_id,notnull" json:"marketId"`
	ScheduleIndex int       `bun:"schedule_index,notnull" json:"scheduleIndex"`
	TimeIndex     int       `bun:"time_index,notnull" json:"timeIndex"`
	UserID        string    `bun:"user_id,notnull" json:"userId"`
	TeamID        string    `bun:"team_id,nullzero" json:"teamId,omitempty"`
	AmountInCents int64     `bun:"amount_in_cents,notnull" json:"amountInCents"`
	Currency      string    `bun:"currency,notnull" json:"currency"`
	CustomerEmail string    `bun:"customer_email,nullzero" json:"customerEmail,omitempty"`
	Status        string    `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
}

const (
	PendingStatusPending   = "pending"
	PendingStatusConfirmed = "confirmed"
	PendingStatusFailed    = "failed"
)
