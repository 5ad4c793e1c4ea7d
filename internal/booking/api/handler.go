package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cancha-booking/internal/auth"
	"cancha-booking/internal/booking"
	"cancha-booking/internal/booking/coupon"
	"cancha-booking/internal/booking/pass"
	"cancha-booking/internal/games"
	"cancha-booking/internal/logger"
	"cancha-booking/internal/stats"
	"cancha-booking/internal/utils"
)

type Handler struct {
	Booking *booking.Service
	Coupons *coupon.Service
	Games   *games.Service
	Stats   *stats.Service
	Pass    *pass.Generator
	Logger  *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// statusForReserveError maps the reservation error variants onto HTTP
// statuses the client dispatches on.
func statusForReserveError(err error) int {
	switch {
	case errors.Is(err, booking.ErrMarketNotFound), errors.Is(err, booking.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrAlreadyBooked),
		errors.Is(err, booking.ErrSlotFull),
		errors.Is(err, booking.ErrTeamAlreadyBooked),
		errors.Is(err, booking.ErrMaxTeamsReached),
		errors.Is(err, booking.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, booking.ErrNoTeam), errors.Is(err, booking.ErrAmbiguousTeam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetMarket returns a market with its schedules normalized.
func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketId")

	market, err := h.Booking.GetMarket(r.Context(), marketID)
	if err != nil {
		if errors.Is(err, booking.ErrMarketNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Market not found", err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load market", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("market", market))
}

type reserveRequest struct {
	ScheduleIndex *int   `json:"scheduleIndex"`
	TimeIndex     *int   `json:"timeIndex"`
	TeamID        string `json:"teamId,omitempty"`
}

// ReserveSlot books the authenticated user (or their team) into a slot.
func (h *Handler) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketId")
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Login required", "missing user identity"))
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.ScheduleIndex == nil || req.TimeIndex == nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Pick a time", "scheduleIndex and timeIndex are required"))
		return
	}

	game, err := h.Booking.Reserve(r.Context(), booking.ReserveRequest{
		MarketID:      marketID,
		ScheduleIndex: *req.ScheduleIndex,
		TimeIndex:     *req.TimeIndex,
		UserID:        userID,
		TeamID:        req.TeamID,
	})
	if err != nil {
		writeJSON(w, statusForReserveError(err), utils.ErrorResponse("Could not book slot", err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("slot booked", game))
}

type applyCouponRequest struct {
	Code  string `json:"code"`
	Price int64  `json:"price"`
}

// ApplyCoupon validates a code against a price. Invalid codes are a 200
// with valid=false; the client keeps the undiscounted total.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.Price < 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid price", "price must not be negative"))
		return
	}

	result, err := h.Coupons.Apply(r.Context(), req.Code, req.Price)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not apply coupon", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("coupon result", result))
}

// ListGames returns the caller's booked games split into upcoming and past.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Login required", "missing user identity"))
		return
	}

	userGames, err := h.Games.GamesForUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load games", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("games", userGames))
}

// GamePass renders the encrypted QR check-in pass for one of the caller's
// booked games.
func (h *Handler) GamePass(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	userID := auth.UserID(r.Context())

	game, err := h.Games.GetGame(r.Context(), gameID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load game", err.Error()))
		return
	}
	if game == nil || game.UserID != userID {
		// Hide other users' bookings behind the same 404.
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Game not found", "no such booked game"))
		return
	}

	png, err := h.Pass.GenerateEncryptedPass(*game)
	if err != nil {
		h.Logger.Error("PASS", "failed to generate pass for "+gameID+": "+err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not generate pass", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// MarketStats aggregates a market's booking history.
func (h *Handler) MarketStats(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketId")

	marketStats, err := h.Stats.MarketStats(r.Context(), marketID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load stats", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("market stats", marketStats))
}
