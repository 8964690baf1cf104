// Package validation issues entry credentials and checks them at the
// door. Validation is a pure read plus an audit append: it never mutates
// seat state, and no code path may return a classification that was not
// recorded first.
package validation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

const (
	ReasonValid   = "credential is valid"
	ReasonNotHeld = "booking not found or seat not booked by this user"
	ReasonExpired = "booking has expired"

	defaultValidatorID = "validator-1"
)

// SeatReader is the read-only slice of the seat store the ledger needs.
type SeatReader interface {
	Find(ctx context.Context, seatNo string) (domain.Seat, error)
}

// AuditStore appends validation attempts. Append failures must surface
// to the caller.
type AuditStore interface {
	Append(ctx context.Context, rec domain.AuditRecord) error
	History(ctx context.Context, bookingID string) ([]domain.AuditRecord, error)
}

// Result is the outcome of one validation attempt.
type Result struct {
	Valid       bool         `json:"valid"`
	Reason      string       `json:"message"`
	ValidatedAt time.Time    `json:"validated_at"`
	ValidatorID string       `json:"validator_id"`
	Seat        *domain.Seat `json:"seat,omitempty"`
}

// RequestMeta is requester metadata captured into the audit trail.
type RequestMeta struct {
	RemoteAddr string
	UserAgent  string
}

type Ledger struct {
	seats       SeatReader
	audit       AuditStore
	ttl         time.Duration
	validatorID string
	logger      observability.Logger
	now         func() time.Time
}

func NewLedger(seats SeatReader, audit AuditStore, ttl time.Duration, logger observability.Logger) *Ledger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Ledger{
		seats:       seats,
		audit:       audit,
		ttl:         ttl,
		validatorID: defaultValidatorID,
		logger:      logger,
		now:         time.Now,
	}
}

// Issue mints a credential for a just-booked seat. IssuedAt is the
// seat's booking time, so the validity window is anchored to the
// booking itself.
func (l *Ledger) Issue(seatNo string, userID uuid.UUID, issuedAt time.Time) domain.Credential {
	return domain.NewCredential(seatNo, userID, issuedAt)
}

// Validate classifies a presented credential against the current seat
// state. A credential is valid only while the originating booking is
// still active and within the validity window; cancellation invalidates
// it implicitly because the holder no longer matches. The audit record
// is appended before the classification is returned, for every outcome.
func (l *Ledger) Validate(ctx context.Context, bookingID, seatNo string, userID uuid.UUID, code string, meta RequestMeta) (Result, error) {
	now := l.now().UTC()
	valid := false
	reason := ReasonNotHeld
	var snapshot *domain.Seat

	seat, err := l.seats.Find(ctx, seatNo)
	if err == nil && seat.Booked && seat.Holder != nil && *seat.Holder == userID {
		if seat.BookedAt != nil && now.Sub(*seat.BookedAt) > l.ttl {
			reason = ReasonExpired
		} else {
			valid = true
			reason = ReasonValid
			snapshot = &seat
		}
	}

	rec := domain.AuditRecord{
		ID:          uuid.New(),
		BookingID:   bookingID,
		SeatNo:      seatNo,
		UserID:      userID,
		Code:        code,
		Valid:       valid,
		Reason:      reason,
		ValidatorID: l.validatorID,
		RemoteAddr:  meta.RemoteAddr,
		UserAgent:   meta.UserAgent,
		ValidatedAt: now,
	}
	if err := l.audit.Append(ctx, rec); err != nil {
		observability.ValidationsTotal.WithLabelValues("audit_error").Inc()
		return Result{}, err
	}

	if valid {
		observability.ValidationsTotal.WithLabelValues("valid").Inc()
	} else {
		observability.ValidationsTotal.WithLabelValues("invalid").Inc()
	}
	l.logger.WithField("seat_no", seatNo).WithField("valid", valid).Info("credential validated")

	return Result{
		Valid:       valid,
		Reason:      reason,
		ValidatedAt: now,
		ValidatorID: l.validatorID,
		Seat:        snapshot,
	}, nil
}

// History returns the audit trail for one booking, newest first.
func (l *Ledger) History(ctx context.Context, bookingID string) ([]domain.AuditRecord, error) {
	return l.audit.History(ctx, bookingID)
}
