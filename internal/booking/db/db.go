package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"cancha-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- MARKETS ----------------

// GetMarket fetches one market with its embedded schedules. Returns
// (nil, nil) when the market does not exist.
func (d *DB) GetMarket(ctx context.Context, marketID string) (*models.Market, error) {
	var market models.Market
	err := d.Bun.NewSelect().
		Model(&market).
		Where("market_id = ?", marketID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// UpdateMarketSchedules rewrites the whole schedules document guarded by the
// version token read alongside it. Returns false when another writer bumped
// the version in between, in which case the caller re-reads and retries.
func (d *DB) UpdateMarketSchedules(ctx context.Context, marketID string, schedules []models.Schedule, version int64) (bool, error) {
	market := models.Market{MarketID: marketID, Schedules: schedules}
	res, err := d.Bun.NewUpdate().
		Model(&market).
		Column("schedules").
		Set("version = version + 1").
		Where("market_id = ?", marketID).
		Where("version = ?", version).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ---------------- BOOKED GAMES ----------------

func (d *DB) CreateBookedGame(ctx context.Context, game models.BookedGame) error {
	_, err := d.Bun.NewInsert().Model(&game).Exec(ctx)
	return err
}

func (d *DB) GetBookedGame(ctx context.Context, gameID string) (*models.BookedGame, error) {
	var game models.BookedGame
	err := d.Bun.NewSelect().
		Model(&game).
		Where("game_id = ?", gameID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// BookedGamesByUser returns a user's booking history, newest first.
func (d *DB) BookedGamesByUser(ctx context.Context, userID string) ([]models.BookedGame, error) {
	var games []models.BookedGame
	err := d.Bun.NewSelect().
		Model(&games).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return games, nil
}

// BookedGamesByMarket returns all history records for a market, used by the
// stats aggregation.
func (d *DB) BookedGamesByMarket(ctx context.Context, marketID string) ([]models.BookedGame, error) {
	var games []models.BookedGame
	err := d.Bun.NewSelect().
		Model(&games).
		Where("market_id = ?", marketID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return games, nil
}

// ---------------- PENDING BOOKINGS / PAYMENTS ----------------

func (d *DB) CreatePendingBooking(ctx context.Context, pb models.PendingBooking) error {
	_, err := d.Bun.NewInsert().Model(&pb).Exec(ctx)
	return err
}

func (d *DB) GetPendingBooking(ctx context.Context, reference string) (*models.PendingBooking, error) {
	var pb models.PendingBooking
	err := d.Bun.NewSelect().
		Model(&pb).
		Where("reference = ?", reference).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pb, nil
}

func (d *DB) UpdatePendingBookingStatus(ctx context.Context, reference, status string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.PendingBooking)(nil)).
		Set("status = ?", status).
		Where("reference = ?", reference).
		Exec(ctx)
	return err
}

// UpsertPayment writes the webhook-reported payment status, replacing any
// earlier state for the same reference.
func (d *DB) UpsertPayment(ctx context.Context, payment models.Payment) error {
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().
		Model(&payment).
		On("CONFLICT (reference) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("transaction_id = EXCLUDED.transaction_id").
		Set("amount_in_cents = EXCLUDED.amount_in_cents").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (d *DB) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("reference = ?", reference).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ---------------- COUPONS ----------------

// GetCouponByNumber looks a code up; (nil, nil) when it does not exist.
func (d *DB) GetCouponByNumber(ctx context.Context, number string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("number = ?", number).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ---------------- TEAMS / USERS ----------------

func (d *DB) CreateTeam(ctx context.Context, team models.Team) error {
	_, err := d.Bun.NewInsert().Model(&team).Exec(ctx)
	return err
}

func (d *DB) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := d.Bun.NewSelect().
		Model(&team).
		Where("team_id = ?", teamID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (d *DB) TeamsByCreator(ctx context.Context, userID string) ([]models.Team, error) {
	var teams []models.Team
	err := d.Bun.NewSelect().
		Model(&teams).
		Where("created_by = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// TeamsByMember scans rosters for uid. Membership lives inside the members
// document, so this filters in memory; team counts per user are tiny.
func (d *DB) TeamsByMember(ctx context.Context, userID string) ([]models.Team, error) {
	var teams []models.Team
	err := d.Bun.NewSelect().
		Model(&teams).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Team
	for _, t := range teams {
		if t.HasMember(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTeamMembers rewrites the roster guarded by the team's version token,
// same scheme as the market schedules update.
func (d *DB) UpdateTeamMembers(ctx context.Context, teamID string, members []models.TeamMember, version int64) (bool, error) {
	team := models.Team{TeamID: teamID, Members: members}
	res, err := d.Bun.NewUpdate().
		Model(&team).
		Column("members").
		Set("version = version + 1").
		Where("team_id = ?", teamID).
		Where("version = ?", version).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// FindUsersByName returns every user with the given display name. Display
// names are not unique, so callers must handle multiple matches.
func (d *DB) FindUsersByName(ctx context.Context, name string) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (d *DB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
