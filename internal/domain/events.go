package domain

import "github.com/google/uuid"

const (
	EventSeatBooked    = "seat-booked"
	EventSeatCancelled = "seat-cancelled"
)

// SeatEvent is one seat state change as seen by viewers. Seq is assigned
// by the broadcaster from a single global publish sequence, so every
// subscriber observes events in the same order.
type SeatEvent struct {
	Name   string     `json:"name"`
	Seq    uint64     `json:"seq"`
	SeatNo string     `json:"seat_no"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
	Seat   Seat       `json:"seat"`
}
