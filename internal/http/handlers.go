package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmaksimov/seat-sync/internal/booking"
	"github.com/rmaksimov/seat-sync/internal/broadcast"
	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
	"github.com/rmaksimov/seat-sync/internal/validation"
)

type Handlers struct {
	coordinator *booking.Coordinator
	ledger      *validation.Ledger
	broadcaster *broadcast.Broadcaster
	logger      observability.Logger
}

func NewHandlers(coordinator *booking.Coordinator, ledger *validation.Ledger, broadcaster *broadcast.Broadcaster, logger observability.Logger) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		ledger:      ledger,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (h *Handlers) ListSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.coordinator.ListSeats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"seats": seats})
}

func (h *Handlers) BookSeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeatNo string    `json:"seat_no"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SeatNo == "" || req.UserID == uuid.Nil {
		http.Error(w, "seat_no and user_id are required", http.StatusBadRequest)
		return
	}

	res, err := h.coordinator.Book(r.Context(), req.SeatNo, req.UserID)
	switch {
	case errors.Is(err, domain.ErrAlreadyHolding):
		http.Error(w, "you already hold a seat; cancel it before booking another", http.StatusConflict)
		return
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, "seat is already booked", http.StatusConflict)
		return
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "seat not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeatNo string    `json:"seat_no"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SeatNo == "" || req.UserID == uuid.Nil {
		http.Error(w, "seat_no and user_id are required", http.StatusBadRequest)
		return
	}

	res, err := h.coordinator.Cancel(r.Context(), req.SeatNo, req.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "booking not found or you are not authorized to cancel it", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ValidateCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID string    `json:"booking_id"`
		SeatNo    string    `json:"seat_no"`
		UserID    uuid.UUID `json:"user_id"`
		Code      string    `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.BookingID == "" || req.SeatNo == "" || req.UserID == uuid.Nil || req.Code == "" {
		http.Error(w, "booking_id, seat_no, user_id and code are required", http.StatusBadRequest)
		return
	}

	meta := validation.RequestMeta{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	res, err := h.ledger.Validate(r.Context(), req.BookingID, req.SeatNo, req.UserID, req.Code, meta)
	if err != nil {
		RequestLogger(r.Context(), h.logger).WithError(err).Error("credential validation failed")
		http.Error(w, "error validating credential", http.StatusInternalServerError)
		return
	}
	if !res.Valid {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ValidationHistory(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		http.Error(w, "booking id is required", http.StatusBadRequest)
		return
	}
	recs, err := h.ledger.History(r.Context(), bookingID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": recs})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
