package domain

import (
	"time"

	"github.com/google/uuid"
)

// Seat is the authoritative record of one bookable seat. A free seat has
// Holder and BookedAt unset. Version increases on every successful
// mutation and is the optimistic-concurrency token.
type Seat struct {
	SeatNo   string     `json:"seat_no"`
	Booked   bool       `json:"booked"`
	Holder   *uuid.UUID `json:"holder,omitempty"`
	BookedAt *time.Time `json:"booked_at,omitempty"`
	Version  int64      `json:"version"`
}

// Expectation is the precondition of a conditional seat transition.
// Holder, when set, must also match the current record.
type Expectation struct {
	Booked bool
	Holder *uuid.UUID
}

// SeatState is the target state of a conditional seat transition.
type SeatState struct {
	Booked   bool
	Holder   *uuid.UUID
	BookedAt *time.Time
}

// BookingResult is returned by the coordinator on a successful book or
// cancel. Credential is only set for bookings.
type BookingResult struct {
	Seat       Seat        `json:"seat"`
	Credential *Credential `json:"credential,omitempty"`
}
