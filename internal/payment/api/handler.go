package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cancha-booking/internal/auth"
	"cancha-booking/internal/booking"
	"cancha-booking/internal/logger"
	"cancha-booking/internal/payment"
	"cancha-booking/internal/utils"
)

// Webhook bodies are small gateway events; anything bigger is hostile.
const maxWebhookBody = 64 << 10

type Handler struct {
	Payments *payment.Service
	Logger   *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// StartCheckout opens a paid reservation: holds the slot, records the
// pending booking and returns the hosted checkout URL.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Login required", "missing user identity"))
		return
	}

	var req payment.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.UserID = userID

	resp, err := h.Payments.StartCheckout(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrMarketNotFound), errors.Is(err, booking.ErrSlotNotFound):
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Slot not found", err.Error()))
		case errors.Is(err, payment.ErrBelowMinimumAmount):
			writeJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("Amount below gateway minimum", err.Error()))
		case errors.Is(err, payment.ErrSlotHeld):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Slot is being paid for by someone else", err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not start checkout", err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("checkout created", resp))
}

// PollStatus reports the outcome of a checkout, booking the slot when the
// gateway has approved the payment.
func (h *Handler) PollStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	result, err := h.Payments.PollStatus(r.Context(), reference)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownReference) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Unknown payment reference", err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not resolve payment", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("payment status", result))
}

// WompiWebhook ingests gateway transaction events. The gateway only needs
// a 2xx; it retries on anything else, so verification failures return 400
// to stop the retry loop on bad payloads.
func (h *Handler) WompiWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not read event", err.Error()))
		return
	}

	if err := h.Payments.HandleWebhook(r.Context(), body); err != nil {
		h.Logger.Error("WEBHOOK", "event rejected: "+err.Error())
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Event rejected", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("event processed", nil))
}
