package booking

import "errors"

// Reservation outcomes callers dispatch on. These replace the string-message
// comparison the mobile flow used.
var (
	ErrMarketNotFound    = errors.New("market not found")
	ErrSlotNotFound      = errors.New("no such time slot")
	ErrAlreadyBooked     = errors.New("user already booked this slot")
	ErrSlotFull          = errors.New("slot is full")
	ErrTeamAlreadyBooked = errors.New("team already booked this slot")
	ErrMaxTeamsReached   = errors.New("slot already has the maximum number of teams")
	ErrNoTeam            = errors.New("user does not belong to a team")
	ErrAmbiguousTeam     = errors.New("user belongs to more than one team")
	ErrVersionConflict   = errors.New("market changed concurrently, retries exhausted")
)
