package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one validation attempt. Records are append-only; they
// are never updated or deleted once written.
type AuditRecord struct {
	ID          uuid.UUID `json:"id"`
	BookingID   string    `json:"booking_id"`
	SeatNo      string    `json:"seat_no"`
	UserID      uuid.UUID `json:"user_id"`
	Code        string    `json:"code"`
	Valid       bool      `json:"valid"`
	Reason      string    `json:"reason"`
	ValidatorID string    `json:"validator_id"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ValidatedAt time.Time `json:"validated_at"`
}
