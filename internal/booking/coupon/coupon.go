package coupon

import (
	"context"
	"fmt"
	"math"
	"time"

	"cancha-booking/internal/logger"
	"cancha-booking/internal/models"
)

// Store looks coupon codes up; (nil, nil) when the code does not exist.
type Store interface {
	GetCouponByNumber(ctx context.Context, number string) (*models.Coupon, error)
}

// Service validates coupon codes and computes the discounted total. It fails
// closed: any reason the code cannot apply leaves the price unchanged.
type Service struct {
	DB     Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(db Store, log *logger.Logger) *Service {
	return &Service{DB: db, logger: log, now: time.Now}
}

// Result reports whether the code applied and what the caller should charge.
// Total always carries a usable amount, discounted or not.
type Result struct {
	Valid    bool    `json:"valid"`
	Percent  float64 `json:"percent"`
	Discount int64   `json:"discount"`
	Total    int64   `json:"total"`
	Reason   string  `json:"reason,omitempty"`
}

// Apply looks code up against price. An empty code is the disabled-toggle
// case and restores the undiscounted price without complaint.
func (s *Service) Apply(ctx context.Context, code string, price int64) (*Result, error) {
	result := &Result{Valid: false, Total: price}

	if code == "" {
		return result, nil
	}

	c, err := s.DB.GetCouponByNumber(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("coupon lookup %q: %w", code, err)
	}
	if c == nil {
		result.Reason = "coupon does not exist"
		return result, nil
	}

	if c.Status != models.CouponStatusActive {
		result.Reason = "coupon is not active"
		return result, nil
	}
	if !c.ExpireAt.After(s.now()) {
		result.Reason = "coupon has expired"
		return result, nil
	}

	discount := int64(math.Round(float64(price) * c.Percent / 100))
	if discount > price {
		discount = price
	}

	result.Valid = true
	result.Percent = c.Percent
	result.Discount = discount
	result.Total = price - discount

	s.logger.Info("COUPON", fmt.Sprintf("applied %s: %.0f%% off %d -> %d", code, c.Percent, price, result.Total))
	return result, nil
}
