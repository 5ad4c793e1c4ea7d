package booking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cancha-booking/internal/booking"
	"cancha-booking/internal/logger"
	"cancha-booking/internal/models"
)

// Mock implementations

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetMarket(ctx context.Context, marketID string) (*models.Market, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockStore) UpdateMarketSchedules(ctx context.Context, marketID string, schedules []models.Schedule, version int64) (bool, error) {
	args := m.Called(ctx, marketID, schedules, version)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) TeamsByMember(ctx context.Context, userID string) ([]models.Team, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Team), args.Error(1)
}

type recorderSpy struct {
	games []models.BookedGame
}

func (r *recorderSpy) Record(game models.BookedGame) {
	r.games = append(r.games, game)
}

type cacheSpy struct {
	calls int
	users int
	teams int
}

func (c *cacheSpy) PatchSlot(_ context.Context, _ string, _, _ int, bookedUsers, bookedTeams int) error {
	c.calls++
	c.users = bookedUsers
	c.teams = bookedTeams
	return nil
}

type eventsSpy struct {
	published []models.BookedGame
}

func (e *eventsSpy) PublishBookingConfirmed(game models.BookedGame) error {
	e.published = append(e.published, game)
	return nil
}

func newTestMarket(category models.Category, bookedUsers []string) *models.Market {
	users := append([]string{}, bookedUsers...)
	return &models.Market{
		MarketID: "market-1",
		Stadium:  "La Bombonera Local",
		Address:  "Cra 7 #45-12",
		Category: category,
		Price:    12000,
		Version:  3,
		Schedules: []models.Schedule{
			{
				Date: "2026-09-05",
				Times: []models.TimeSlot{
					{Time: "18:00", BookedUsers: users},
				},
			},
		},
	}
}

func newTestService(store *MockStore) (*booking.Service, *recorderSpy, *cacheSpy, *eventsSpy) {
	recorder := &recorderSpy{}
	cache := &cacheSpy{}
	events := &eventsSpy{}
	service := booking.NewService(store, recorder, cache, events, &logger.Logger{}, 3)
	return service, recorder, cache, events
}

func TestReserveAddsUser(t *testing.T) {
	store := new(MockStore)
	service, recorder, cache, events := newTestService(store)

	market := newTestMarket(models.CategoryIndividual, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1",
		mock.MatchedBy(func(schedules []models.Schedule) bool {
			return len(schedules[0].Times[0].BookedUsers) == 1 &&
				schedules[0].Times[0].BookedUsers[0] == "user-1"
		}), int64(3)).Return(true, nil).Once()

	game, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID:      "market-1",
		ScheduleIndex: 0,
		TimeIndex:     0,
		UserID:        "user-1",
	})

	assert.NoError(t, err)
	assert.NotNil(t, game)
	assert.Equal(t, "market-1", game.MarketID)
	assert.Equal(t, "user-1", game.UserID)
	assert.Equal(t, "2026-09-05", game.Date)
	assert.Equal(t, "18:00", game.Time)
	assert.Equal(t, "0:0", game.SlotKey)
	assert.Equal(t, models.GameStatusBooked, game.Status)
	assert.Equal(t, int64(12000), game.Price)

	assert.Len(t, recorder.games, 1)
	assert.Equal(t, game.GameID, recorder.games[0].GameID)
	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, 1, cache.users)
	assert.Len(t, events.published, 1)
	store.AssertExpectations(t)
}

func TestReserveSameUserTwice(t *testing.T) {
	store := new(MockStore)
	service, recorder, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryIndividual, []string{"user-1"})
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrAlreadyBooked)
	assert.Empty(t, recorder.games)
	store.AssertNotCalled(t, "UpdateMarketSchedules", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveFullSlot(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	full := make([]string, models.MaxUsersPerSlot)
	for i := range full {
		full[i] = string(rune('a' + i))
	}
	market := newTestMarket(models.CategoryIndividual, full)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-16",
	})

	assert.ErrorIs(t, err, booking.ErrSlotFull)
}

func TestReserveFifteenthUserFits(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	almostFull := make([]string, models.MaxUsersPerSlot-1)
	for i := range almostFull {
		almostFull[i] = string(rune('a' + i))
	}
	market := newTestMarket(models.CategoryIndividual, almostFull)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1", mock.Anything, int64(3)).
		Return(true, nil).Once()

	game, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-15",
	})

	assert.NoError(t, err)
	assert.NotNil(t, game)
}

func TestReserveVersionConflictRetries(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	// fresh market per read, the service re-reads after a conflict
	store.On("GetMarket", mock.Anything, "market-1").
		Return(newTestMarket(models.CategoryIndividual, nil), nil).Once()
	store.On("GetMarket", mock.Anything, "market-1").
		Return(newTestMarket(models.CategoryIndividual, nil), nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1", mock.Anything, int64(3)).
		Return(false, nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1", mock.Anything, int64(3)).
		Return(true, nil).Once()

	game, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.NoError(t, err)
	assert.NotNil(t, game)
	store.AssertExpectations(t)
}

func TestReserveVersionConflictExhausted(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	store.On("GetMarket", mock.Anything, "market-1").
		Return(newTestMarket(models.CategoryIndividual, nil), nil).Times(3)
	store.On("UpdateMarketSchedules", mock.Anything, "market-1", mock.Anything, int64(3)).
		Return(false, nil).Times(3)

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrVersionConflict)
}

func TestReserveMarketNotFound(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	store.On("GetMarket", mock.Anything, "missing").Return(nil, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "missing", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrMarketNotFound)
}

func TestReserveSlotNotFound(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryIndividual, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", ScheduleIndex: 0, TimeIndex: 7, UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrSlotNotFound)
}

func TestReserveStoreError(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	store.On("GetMarket", mock.Anything, "market-1").
		Return(nil, errors.New("connection reset")).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, booking.ErrMarketNotFound)
}

func teamOf(id, name string, memberIDs ...string) models.Team {
	members := make([]models.TeamMember, 0, len(memberIDs))
	for _, uid := range memberIDs {
		members = append(members, models.TeamMember{UID: uid})
	}
	return models.Team{TeamID: id, Name: name, Members: members}
}

func TestReserveTeamMarket(t *testing.T) {
	store := new(MockStore)
	service, _, cache, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").
		Return([]models.Team{teamOf("team-a", "Los Tigres", "user-1", "user-2")}, nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1",
		mock.MatchedBy(func(schedules []models.Schedule) bool {
			teams := schedules[0].Times[0].BookedTeams
			return len(teams) == 1 && teams[0].TeamID == "team-a"
		}), int64(3)).Return(true, nil).Once()

	game, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "team-a", game.TeamID)
	assert.Equal(t, 1, cache.teams)
	store.AssertExpectations(t)
}

func TestReserveTeamUserHasNoTeam(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").Return([]models.Team{}, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrNoTeam)
}

func TestReserveTeamAmbiguousMembership(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").
		Return([]models.Team{
			teamOf("team-a", "Los Tigres", "user-1"),
			teamOf("team-b", "Las Aguilas", "user-1"),
		}, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrAmbiguousTeam)
}

func TestReserveTeamExplicitIDResolvesAmbiguity(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").
		Return([]models.Team{
			teamOf("team-a", "Los Tigres", "user-1"),
			teamOf("team-b", "Las Aguilas", "user-1"),
		}, nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1", mock.Anything, int64(3)).
		Return(true, nil).Once()

	game, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1", TeamID: "team-b",
	})

	assert.NoError(t, err)
	assert.Equal(t, "team-b", game.TeamID)
}

func TestReserveTeamNotAMember(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").
		Return([]models.Team{teamOf("team-a", "Los Tigres", "user-1")}, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1", TeamID: "team-z",
	})

	assert.ErrorIs(t, err, booking.ErrNoTeam)
}

func TestReserveTeamSlotAtCapacity(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	market.Schedules[0].Times[0].BookedTeams = []models.BookedTeam{
		{TeamID: "team-x"}, {TeamID: "team-y"},
	}
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").
		Return([]models.Team{teamOf("team-a", "Los Tigres", "user-1")}, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrMaxTeamsReached)
}

func TestReserveTeamAlreadyBooked(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryEquipos, nil)
	market.Schedules[0].Times[0].BookedTeams = []models.BookedTeam{{TeamID: "team-a"}}
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("TeamsByMember", mock.Anything, "user-1").
		Return([]models.Team{teamOf("team-a", "Los Tigres", "user-1")}, nil).Once()

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1",
	})

	assert.ErrorIs(t, err, booking.ErrTeamAlreadyBooked)
}

func TestReservePricePaidOverride(t *testing.T) {
	store := new(MockStore)
	service, recorder, _, _ := newTestService(store)

	market := newTestMarket(models.CategoryIndividual, nil)
	store.On("GetMarket", mock.Anything, "market-1").Return(market, nil).Once()
	store.On("UpdateMarketSchedules", mock.Anything, "market-1", mock.Anything, int64(3)).
		Return(true, nil).Once()

	game, err := service.Reserve(context.Background(), booking.ReserveRequest{
		MarketID: "market-1", UserID: "user-1", PricePaid: 9600,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(9600), game.Price)
	assert.Equal(t, int64(9600), recorder.games[0].Price)
}

func TestReserveMissingUser(t *testing.T) {
	store := new(MockStore)
	service, _, _, _ := newTestService(store)

	_, err := service.Reserve(context.Background(), booking.ReserveRequest{MarketID: "market-1"})

	assert.Error(t, err)
	store.AssertNotCalled(t, "GetMarket", mock.Anything, mock.Anything)
}
