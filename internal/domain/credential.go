package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Credential is the entry token issued when a booking succeeds. The
// booking id and code are server-generated; IssuedAt matches the seat's
// BookedAt so the validity window is anchored to the booking itself.
type Credential struct {
	BookingID uuid.UUID `json:"booking_id"`
	SeatNo    string    `json:"seat_no"`
	UserID    uuid.UUID `json:"user_id"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
}

func NewCredential(seatNo string, userID uuid.UUID, issuedAt time.Time) Credential {
	return Credential{
		BookingID: uuid.New(),
		SeatNo:    seatNo,
		UserID:    userID,
		Code:      randomCode(12),
		IssuedAt:  issuedAt,
	}
}

func randomCode(n int) string {
	b := make([]byte, n)
	// rand.Read only fails when the OS entropy source is broken.
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
