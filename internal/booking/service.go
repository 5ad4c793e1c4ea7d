package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cancha-booking/internal/logger"
	"cancha-booking/internal/models"
)

// Store is the persistence surface the reservation coordinator needs.
type Store interface {
	GetMarket(ctx context.Context, marketID string) (*models.Market, error)
	UpdateMarketSchedules(ctx context.Context, marketID string, schedules []models.Schedule, version int64) (bool, error)
	TeamsByMember(ctx context.Context, userID string) ([]models.Team, error)
}

// HistoryRecorder takes the denormalized booked-game record off the critical
// path. Implementations retry in the background; failures never reverse the
// reservation.
type HistoryRecorder interface {
	Record(game models.BookedGame)
}

// SlotCache patches the read-side slot occupancy so clients see the booking
// immediately, independent of the next market read.
type SlotCache interface {
	PatchSlot(ctx context.Context, marketID string, scheduleIndex, timeIndex int, bookedUsers int, bookedTeams int) error
}

// EventPublisher streams confirmed reservations.
type EventPublisher interface {
	PublishBookingConfirmed(game models.BookedGame) error
}

type Service struct {
	DB      Store
	History HistoryRecorder
	Cache   SlotCache
	Events  EventPublisher

	logger      *logger.Logger
	maxAttempts int
	now         func() time.Time
}

func NewService(db Store, history HistoryRecorder, cache SlotCache, events EventPublisher, log *logger.Logger, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		DB:          db,
		History:     history,
		Cache:       cache,
		Events:      events,
		logger:      log,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// ReserveRequest identifies the slot and the requester. TeamID is resolved
// from the requester's membership when the market is team-category and the
// field is empty.
type ReserveRequest struct {
	MarketID      string
	ScheduleIndex int
	TimeIndex     int
	UserID        string
	TeamID        string
	// PricePaid overrides the market price on the history record, e.g.
	// after a coupon was applied at checkout. Zero means market price.
	PricePaid int64
}

// Reserve atomically adds the requester to the identified slot. The whole
// schedules document is rewritten under the market's version token; a version
// conflict re-reads and retries up to maxAttempts, so two attempts on the
// same slot can never both pass the capacity check.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*models.BookedGame, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("reserve: missing user id")
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		market, err := s.DB.GetMarket(ctx, req.MarketID)
		if err != nil {
			return nil, fmt.Errorf("reserve: load market %s: %w", req.MarketID, err)
		}
		if market == nil {
			return nil, ErrMarketNotFound
		}

		slot := market.Slot(req.ScheduleIndex, req.TimeIndex)
		if slot == nil {
			return nil, ErrSlotNotFound
		}

		var team *models.BookedTeam
		if market.Category.IsTeam() {
			team, err = s.resolveTeam(ctx, &req)
			if err != nil {
				return nil, err
			}
			if err := addTeam(slot, *team); err != nil {
				return nil, err
			}
		} else {
			if err := addUser(slot, req.UserID); err != nil {
				return nil, err
			}
		}

		ok, err := s.DB.UpdateMarketSchedules(ctx, market.MarketID, market.Schedules, market.Version)
		if err != nil {
			return nil, fmt.Errorf("reserve: write schedules for %s: %w", market.MarketID, err)
		}
		if !ok {
			// Another writer got in between the read and the write.
			s.logger.LogBooking("RETRY", market.MarketID,
				fmt.Sprintf("version conflict on attempt %d", attempt+1))
			continue
		}

		game := s.buildGame(market, slot, req, team)
		s.afterCommit(ctx, market, req, slot, game)
		return &game, nil
	}

	return nil, ErrVersionConflict
}

// resolveTeam finds the team booking the slot. The requester must belong to
// exactly one team unless the request names one explicitly.
func (s *Service) resolveTeam(ctx context.Context, req *ReserveRequest) (*models.BookedTeam, error) {
	teams, err := s.DB.TeamsByMember(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("reserve: lookup teams for %s: %w", req.UserID, err)
	}

	if req.TeamID != "" {
		for _, t := range teams {
			if t.TeamID == req.TeamID {
				return &models.BookedTeam{TeamID: t.TeamID, Name: t.Name, MemberIDs: t.MemberIDs()}, nil
			}
		}
		return nil, ErrNoTeam
	}

	switch len(teams) {
	case 0:
		return nil, ErrNoTeam
	case 1:
		t := teams[0]
		return &models.BookedTeam{TeamID: t.TeamID, Name: t.Name, MemberIDs: t.MemberIDs()}, nil
	default:
		return nil, ErrAmbiguousTeam
	}
}

func addUser(slot *models.TimeSlot, userID string) error {
	if slot.HasUser(userID) {
		return ErrAlreadyBooked
	}
	if len(slot.BookedUsers) >= models.MaxUsersPerSlot {
		return ErrSlotFull
	}
	slot.BookedUsers = append(slot.BookedUsers, userID)
	return nil
}

func addTeam(slot *models.TimeSlot, team models.BookedTeam) error {
	if slot.HasTeam(team.TeamID) {
		return ErrTeamAlreadyBooked
	}
	if len(slot.BookedTeams) >= models.MaxTeamsPerSlot {
		return ErrMaxTeamsReached
	}
	slot.BookedTeams = append(slot.BookedTeams, team)
	return nil
}

func (s *Service) buildGame(market *models.Market, slot *models.TimeSlot, req ReserveRequest, team *models.BookedTeam) models.BookedGame {
	price := market.Price
	if req.PricePaid > 0 {
		price = req.PricePaid
	}

	date := ""
	if req.ScheduleIndex < len(market.Schedules) {
		date = market.Schedules[req.ScheduleIndex].Date
	}

	game := models.BookedGame{
		GameID:    uuid.NewString(),
		MarketID:  market.MarketID,
		UserID:    req.UserID,
		Date:      date,
		Time:      slot.Time,
		Stadium:   market.Stadium,
		Address:   market.Address,
		Price:     price,
		Status:    models.GameStatusBooked,
		SlotKey:   fmt.Sprintf("%d:%d", req.ScheduleIndex, req.TimeIndex),
		CreatedAt: s.now().UTC(),
	}
	if team != nil {
		game.TeamID = team.TeamID
	}
	return game
}

// afterCommit runs the best-effort side effects. None of them can fail the
// reservation; the history recorder retries on its own and the rest is
// logged and dropped.
func (s *Service) afterCommit(ctx context.Context, market *models.Market, req ReserveRequest, slot *models.TimeSlot, game models.BookedGame) {
	if s.History != nil {
		s.History.Record(game)
	}

	if s.Cache != nil {
		if err := s.Cache.PatchSlot(ctx, market.MarketID, req.ScheduleIndex, req.TimeIndex,
			len(slot.BookedUsers), len(slot.BookedTeams)); err != nil {
			s.logger.Warn("BOOKING", fmt.Sprintf("slot cache patch failed for %s: %v", market.MarketID, err))
		}
	}

	if s.Events != nil {
		if err := s.Events.PublishBookingConfirmed(game); err != nil {
			s.logger.Warn("KAFKA", fmt.Sprintf("booking.confirmed publish failed for %s: %v", game.GameID, err))
		}
	}

	s.logger.LogBooking("CONFIRMED", market.MarketID,
		fmt.Sprintf("user %s slot %s at %s", req.UserID, game.SlotKey, game.Time))
}

// GetMarket returns the market with schedules already normalized to the
// structured slot shape.
func (s *Service) GetMarket(ctx context.Context, marketID string) (*models.Market, error) {
	market, err := s.DB.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	return market, nil
}
