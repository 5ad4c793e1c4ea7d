package stats

import (
	"context"
	"fmt"

	"cancha-booking/internal/models"
)

// Store reads the booking history the aggregation runs over.
type Store interface {
	BookedGamesByMarket(ctx context.Context, marketID string) ([]models.BookedGame, error)
}

// Service aggregates per-market booking numbers from the denormalized
// history records.
type Service struct {
	DB Store
}

func NewService(db Store) *Service {
	return &Service{DB: db}
}

type SlotOccupancy struct {
	SlotKey  string `json:"slotKey"`
	Time     string `json:"time"`
	Bookings int    `json:"bookings"`
}

type MarketStats struct {
	MarketID      string          `json:"marketId"`
	TotalBookings int             `json:"totalBookings"`
	TotalRevenue  int64           `json:"totalRevenue"`
	Slots         []SlotOccupancy `json:"slots"`
}

// MarketStats sums bookings and revenue for a market and breaks occupancy
// down per slot.
func (s *Service) MarketStats(ctx context.Context, marketID string) (*MarketStats, error) {
	games, err := s.DB.BookedGamesByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("stats for market %s: %w", marketID, err)
	}

	stats := &MarketStats{MarketID: marketID, Slots: []SlotOccupancy{}}
	bySlot := make(map[string]*SlotOccupancy)

	for _, g := range games {
		stats.TotalBookings++
		stats.TotalRevenue += g.Price

		occ, ok := bySlot[g.SlotKey]
		if !ok {
			occ = &SlotOccupancy{SlotKey: g.SlotKey, Time: g.Time}
			bySlot[g.SlotKey] = occ
		}
		occ.Bookings++
	}

	// first-seen slot order
	seen := make(map[string]bool)
	for _, g := range games {
		if seen[g.SlotKey] {
			continue
		}
		seen[g.SlotKey] = true
		stats.Slots = append(stats.Slots, *bySlot[g.SlotKey])
	}

	return stats, nil
}
