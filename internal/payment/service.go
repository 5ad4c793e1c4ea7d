package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cancha-booking/internal/booking"
	"cancha-booking/internal/booking/coupon"
	"cancha-booking/internal/logger"
	"cancha-booking/internal/models"
	"cancha-booking/internal/payment/wompi"
)

var (
	ErrBelowMinimumAmount = errors.New("amount is below the gateway minimum")
	ErrSlotHeld           = errors.New("slot is held by another checkout")
	ErrUnknownReference   = errors.New("unknown payment reference")
)

// Store is the persistence surface of the payment handshake.
type Store interface {
	GetMarket(ctx context.Context, marketID string) (*models.Market, error)
	CreatePendingBooking(ctx context.Context, pb models.PendingBooking) error
	GetPendingBooking(ctx context.Context, reference string) (*models.PendingBooking, error)
	UpdatePendingBookingStatus(ctx context.Context, reference, status string) error
	UpsertPayment(ctx context.Context, payment models.Payment) error
	GetPayment(ctx context.Context, reference string) (*models.Payment, error)
}

// Gateway issues hosted checkout URLs.
type Gateway interface {
	CreateTransaction(ctx context.Context, req wompi.TransactionRequest) (*wompi.TransactionResponse, error)
}

// Booker performs the slot reservation once a payment is approved.
type Booker interface {
	Reserve(ctx context.Context, req booking.ReserveRequest) (*models.BookedGame, error)
}

// SlotHolds guards the slot while the user is on the external checkout.
type SlotHolds interface {
	HoldSlot(ctx context.Context, marketID string, scheduleIndex, timeIndex int, reference string) (bool, error)
	ReleaseSlot(ctx context.Context, marketID string, scheduleIndex, timeIndex int, reference string) error
}

// CouponApplier computes the amount to charge.
type CouponApplier interface {
	Apply(ctx context.Context, code string, price int64) (*coupon.Result, error)
}

// EventPublisher streams payment status changes.
type EventPublisher interface {
	PublishPaymentUpdated(payment models.Payment) error
}

type Service struct {
	DB      Store
	Gateway Gateway
	Booker  Booker
	Holds   SlotHolds
	Coupons CouponApplier
	Events  EventPublisher

	logger       *logger.Logger
	currency     string
	minAmount    int64
	eventsSecret string
	pollDelay    time.Duration
	now          func() time.Time
}

type Options struct {
	Currency     string
	MinAmount    int64
	EventsSecret string
	PollDelay    time.Duration
}

func NewService(db Store, gw Gateway, booker Booker, holds SlotHolds, coupons CouponApplier, events EventPublisher, log *logger.Logger, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "COP"
	}
	if opts.PollDelay <= 0 {
		opts.PollDelay = 4 * time.Second
	}
	return &Service{
		DB:           db,
		Gateway:      gw,
		Booker:       booker,
		Holds:        holds,
		Coupons:      coupons,
		Events:       events,
		logger:       log,
		currency:     opts.Currency,
		minAmount:    opts.MinAmount,
		eventsSecret: opts.EventsSecret,
		pollDelay:    opts.PollDelay,
		now:          time.Now,
	}
}

type CheckoutRequest struct {
	MarketID      string `json:"marketId"`
	ScheduleIndex int    `json:"scheduleIndex"`
	TimeIndex     int    `json:"timeIndex"`
	UserID        string `json:"-"`
	TeamID        string `json:"teamId,omitempty"`
	CouponCode    string `json:"couponCode,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

type CheckoutResponse struct {
	Reference     string `json:"reference"`
	CheckoutURL   string `json:"checkoutUrl"`
	AmountInCents int64  `json:"amountInCents"`
	Currency      string `json:"currency"`
}

// StartCheckout persists a pending booking, holds the slot and hands back
// the hosted checkout URL. The slot itself is only written once the payment
// is approved.
func (s *Service) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	market, err := s.DB.GetMarket(ctx, req.MarketID)
	if err != nil {
		return nil, fmt.Errorf("checkout: load market %s: %w", req.MarketID, err)
	}
	if market == nil {
		return nil, booking.ErrMarketNotFound
	}
	if market.Slot(req.ScheduleIndex, req.TimeIndex) == nil {
		return nil, booking.ErrSlotNotFound
	}

	total := market.Price
	if s.Coupons != nil {
		res, err := s.Coupons.Apply(ctx, req.CouponCode, market.Price)
		if err != nil {
			return nil, fmt.Errorf("checkout: apply coupon: %w", err)
		}
		total = res.Total
	}

	amount := total * 100 // gateway wants minor units
	if amount < s.minAmount {
		return nil, ErrBelowMinimumAmount
	}

	reference := NewReference(req.MarketID, req.ScheduleIndex, req.TimeIndex, req.UserID)

	held, err := s.Holds.HoldSlot(ctx, req.MarketID, req.ScheduleIndex, req.TimeIndex, reference)
	if err != nil {
		return nil, fmt.Errorf("checkout: hold slot: %w", err)
	}
	if !held {
		return nil, ErrSlotHeld
	}

	pb := models.PendingBooking{
		Reference:     reference,
		MarketID:      req.MarketID,
		ScheduleIndex: req.ScheduleIndex,
		TimeIndex:     req.TimeIndex,
		UserID:        req.UserID,
		TeamID:        req.TeamID,
		AmountInCents: amount,
		Currency:      s.currency,
		CustomerEmail: req.CustomerEmail,
		Status:        models.PendingStatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.DB.CreatePendingBooking(ctx, pb); err != nil {
		s.releaseHold(ctx, pb)
		return nil, fmt.Errorf("checkout: persist pending booking: %w", err)
	}

	txResp, err := s.Gateway.CreateTransaction(ctx, wompi.TransactionRequest{
		Amount:        amount,
		Currency:      s.currency,
		CustomerEmail: req.CustomerEmail,
		Reference:     reference,
	})
	if err != nil {
		s.releaseHold(ctx, pb)
		if uerr := s.DB.UpdatePendingBookingStatus(ctx, reference, models.PendingStatusFailed); uerr != nil {
			s.logger.Error("PAYMENT", fmt.Sprintf("mark pending %s failed: %v", reference, uerr))
		}
		return nil, err
	}

	s.logger.LogPayment("CHECKOUT", reference, fmt.Sprintf("amount %d %s", amount, s.currency))
	return &CheckoutResponse{
		Reference:     reference,
		CheckoutURL:   txResp.CheckoutURL,
		AmountInCents: amount,
		Currency:      s.currency,
	}, nil
}

// PollState is what the client sees after returning from the checkout.
type PollState string

const (
	PollApproved   PollState = "approved"
	PollDeclined   PollState = "declined"
	PollProcessing PollState = "processing"
)

type PollResult struct {
	State   PollState          `json:"state"`
	Payment *models.Payment    `json:"payment,omitempty"`
	Game    *models.BookedGame `json:"game,omitempty"`
}

// PollStatus waits the fixed delay, reads the payment record for reference
// and, on approval, performs the slot reservation. A missing or pending
// record reports processing; the webhook may still land later.
func (s *Service) PollStatus(ctx context.Context, reference string) (*PollResult, error) {
	pb, err := s.DB.GetPendingBooking(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("poll: load pending booking %s: %w", reference, err)
	}
	if pb == nil {
		return nil, ErrUnknownReference
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.pollDelay):
	}

	payment, err := s.DB.GetPayment(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("poll: load payment %s: %w", reference, err)
	}
	if payment == nil || payment.Status == models.PaymentPending {
		s.logger.LogPayment("POLL", reference, "still processing")
		return &PollResult{State: PollProcessing, Payment: payment}, nil
	}

	switch payment.Status {
	case models.PaymentApproved:
		return s.confirmApproved(ctx, pb, payment)
	default: // DECLINED, ERROR
		s.releaseHold(ctx, *pb)
		if err := s.DB.UpdatePendingBookingStatus(ctx, reference, models.PendingStatusFailed); err != nil {
			s.logger.Error("PAYMENT", fmt.Sprintf("mark pending %s failed: %v", reference, err))
		}
		s.logger.LogPayment("POLL", reference, fmt.Sprintf("terminal status %s", payment.Status))
		return &PollResult{State: PollDeclined, Payment: payment}, nil
	}
}

func (s *Service) confirmApproved(ctx context.Context, pb *models.PendingBooking, payment *models.Payment) (*PollResult, error) {
	if pb.Status == models.PendingStatusConfirmed {
		// Earlier poll already reserved the slot; nothing to redo.
		return &PollResult{State: PollApproved, Payment: payment}, nil
	}

	game, err := s.Booker.Reserve(ctx, booking.ReserveRequest{
		MarketID:      pb.MarketID,
		ScheduleIndex: pb.ScheduleIndex,
		TimeIndex:     pb.TimeIndex,
		UserID:        pb.UserID,
		TeamID:        pb.TeamID,
		PricePaid:     pb.AmountInCents / 100,
	})
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyBooked) || errors.Is(err, booking.ErrTeamAlreadyBooked) {
			// A concurrent poll or retry won the race; the reservation holds.
			s.markConfirmed(ctx, pb)
			return &PollResult{State: PollApproved, Payment: payment}, nil
		}
		// Paid but the slot could not be written. Surface it loudly: this
		// needs support intervention, the money already moved.
		s.logger.Error("PAYMENT",
			fmt.Sprintf("approved payment %s could not be booked: %v", pb.Reference, err))
		return nil, fmt.Errorf("approved payment %s: reservation failed: %w", pb.Reference, err)
	}

	s.markConfirmed(ctx, pb)
	s.releaseHold(ctx, *pb)
	s.logger.LogPayment("CONFIRMED", pb.Reference, fmt.Sprintf("game %s", game.GameID))
	return &PollResult{State: PollApproved, Payment: payment, Game: game}, nil
}

func (s *Service) markConfirmed(ctx context.Context, pb *models.PendingBooking) {
	if err := s.DB.UpdatePendingBookingStatus(ctx, pb.Reference, models.PendingStatusConfirmed); err != nil {
		s.logger.Error("PAYMENT", fmt.Sprintf("mark pending %s confirmed: %v", pb.Reference, err))
	}
}

func (s *Service) releaseHold(ctx context.Context, pb models.PendingBooking) {
	if err := s.Holds.ReleaseSlot(ctx, pb.MarketID, pb.ScheduleIndex, pb.TimeIndex, pb.Reference); err != nil {
		s.logger.Warn("PAYMENT", fmt.Sprintf("release hold for %s: %v", pb.Reference, err))
	}
}

// HandleWebhook verifies and applies a gateway event, writing the payment
// record the client poll reads.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	var event wompi.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("webhook: decode event: %w", err)
	}

	if err := event.VerifyChecksum(s.eventsSecret); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("checksum verification failed: %v", err))
		return fmt.Errorf("webhook: %w", err)
	}

	tx := event.Data.Transaction
	if tx.Reference == "" {
		return fmt.Errorf("webhook: event has no transaction reference")
	}

	status := models.PaymentStatus(tx.Status)
	switch status {
	case models.PaymentApproved, models.PaymentDeclined, models.PaymentError, models.PaymentPending:
	default:
		s.logger.Warn("WEBHOOK", fmt.Sprintf("unknown transaction status %q for %s", tx.Status, tx.Reference))
		status = models.PaymentError
	}

	payment := models.Payment{
		Reference:     tx.Reference,
		Status:        status,
		TransactionID: tx.ID,
		AmountInCents: tx.AmountInCents,
		CreatedAt:     s.now().UTC(),
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.DB.UpsertPayment(ctx, payment); err != nil {
		return fmt.Errorf("webhook: persist payment %s: %w", tx.Reference, err)
	}

	if s.Events != nil {
		if err := s.Events.PublishPaymentUpdated(payment); err != nil {
			s.logger.Warn("KAFKA", fmt.Sprintf("payment.updated publish failed for %s: %v", tx.Reference, err))
		}
	}

	s.logger.LogPayment("WEBHOOK", tx.Reference, fmt.Sprintf("status %s", status))
	return nil
}
