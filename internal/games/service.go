package games

import (
	"context"
	"fmt"
	"time"

	"cancha-booking/internal/models"
)

// Store reads the denormalized booking history.
type Store interface {
	BookedGamesByUser(ctx context.Context, userID string) ([]models.BookedGame, error)
	GetBookedGame(ctx context.Context, gameID string) (*models.BookedGame, error)
}

// Service is the read side of the games screen: a user's bookings split
// into upcoming and past.
type Service struct {
	DB  Store
	now func() time.Time
}

func NewService(db Store) *Service {
	return &Service{DB: db, now: time.Now}
}

type UserGames struct {
	Upcoming []models.BookedGame `json:"upcoming"`
	Past     []models.BookedGame `json:"past"`
}

// GamesForUser splits the user's history on the game date. Dates are the
// ISO strings the booking flow wrote; unparsable ones land in past rather
// than erroring the whole listing.
func (s *Service) GamesForUser(ctx context.Context, userID string) (*UserGames, error) {
	all, err := s.DB.BookedGamesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("games for %s: %w", userID, err)
	}

	out := &UserGames{
		Upcoming: []models.BookedGame{},
		Past:     []models.BookedGame{},
	}
	today := s.now().UTC().Truncate(24 * time.Hour)

	for _, g := range all {
		if gameDay(g.Date).Before(today) {
			out.Past = append(out.Past, g)
		} else {
			out.Upcoming = append(out.Upcoming, g)
		}
	}
	return out, nil
}

// GetGame returns one booked game, nil when unknown.
func (s *Service) GetGame(ctx context.Context, gameID string) (*models.BookedGame, error) {
	return s.DB.GetBookedGame(ctx, gameID)
}

func gameDay(date string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Truncate(24 * time.Hour)
		}
	}
	return time.Time{}
}
