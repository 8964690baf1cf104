// Package booking enforces the two cross-cutting reservation rules: one
// holder per seat, one seat per user. Both rest on the seat store's
// conditional transition; the coordinator itself holds no locks.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

// SeatStore is the authoritative seat state. Transition must be atomic
// with respect to all concurrent callers: it applies next only when the
// current record still matches expect, returning domain.ErrConflict
// otherwise. A transition that would give a holder a second active seat
// fails with domain.ErrAlreadyHolding inside the same atomic step.
type SeatStore interface {
	Transition(ctx context.Context, seatNo string, expect domain.Expectation, next domain.SeatState) (domain.Seat, error)
	Find(ctx context.Context, seatNo string) (domain.Seat, error)
	FindByHolder(ctx context.Context, userID uuid.UUID) (domain.Seat, error)
	List(ctx context.Context) ([]domain.Seat, error)
}

// Publisher receives seat events after a transition commits. Delivery is
// fire-and-forget; it must never fail the booking that produced it.
type Publisher interface {
	Publish(event domain.SeatEvent)
}

// CredentialIssuer mints the entry credential returned with a booking.
type CredentialIssuer interface {
	Issue(seatNo string, userID uuid.UUID, issuedAt time.Time) domain.Credential
}

// SnapshotCache caches the seat-list snapshot. Implementations are best
// effort; every error falls through to the store.
type SnapshotCache interface {
	Get(ctx context.Context) ([]domain.Seat, bool)
	Set(ctx context.Context, seats []domain.Seat)
	Invalidate(ctx context.Context)
}

type Coordinator struct {
	store  SeatStore
	events Publisher
	issuer CredentialIssuer
	cache  SnapshotCache // optional
	logger observability.Logger
	now    func() time.Time
}

func NewCoordinator(store SeatStore, events Publisher, issuer CredentialIssuer, cache SnapshotCache, logger observability.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		events: events,
		issuer: issuer,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Book reserves seatNo for userID. Exactly one of N concurrent calls for
// the same free seat succeeds; the rest see domain.ErrConflict and must
// pick another seat, never a silent retry. The FindByHolder pre-check is
// advisory only; the store re-validates the one-seat-per-user rule
// atomically, so two racing requests by the same user cannot both win.
func (c *Coordinator) Book(ctx context.Context, seatNo string, userID uuid.UUID) (domain.BookingResult, error) {
	_, err := c.store.FindByHolder(ctx, userID)
	if err == nil {
		observability.BookingsTotal.WithLabelValues("already_held").Inc()
		return domain.BookingResult{}, domain.ErrAlreadyHolding
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.BookingResult{}, err
	}

	now := c.now().UTC()
	holder := userID
	seat, err := c.store.Transition(ctx, seatNo,
		domain.Expectation{Booked: false},
		domain.SeatState{Booked: true, Holder: &holder, BookedAt: &now},
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		observability.BookingsTotal.WithLabelValues("not_found").Inc()
		return domain.BookingResult{}, err
	case errors.Is(err, domain.ErrConflict):
		observability.BookingsTotal.WithLabelValues("conflict").Inc()
		return domain.BookingResult{}, err
	case errors.Is(err, domain.ErrAlreadyHolding):
		observability.BookingsTotal.WithLabelValues("already_held").Inc()
		return domain.BookingResult{}, err
	case err != nil:
		return domain.BookingResult{}, err
	}

	cred := c.issuer.Issue(seatNo, userID, now)
	c.invalidate(ctx)
	c.events.Publish(domain.SeatEvent{
		Name:   domain.EventSeatBooked,
		SeatNo: seatNo,
		UserID: &holder,
		Seat:   seat,
	})
	observability.BookingsTotal.WithLabelValues("booked").Inc()
	c.logger.WithField("seat_no", seatNo).WithField("user_id", userID).Info("seat booked")
	return domain.BookingResult{Seat: seat, Credential: &cred}, nil
}

// Cancel frees seatNo if userID is its current holder. The failed
// precondition is classified with a follow-up read: unknown or free
// seats are ErrNotFound, a seat held by someone else is ErrUnauthorized.
func (c *Coordinator) Cancel(ctx context.Context, seatNo string, userID uuid.UUID) (domain.BookingResult, error) {
	holder := userID
	seat, err := c.store.Transition(ctx, seatNo,
		domain.Expectation{Booked: true, Holder: &holder},
		domain.SeatState{Booked: false},
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		observability.CancellationsTotal.WithLabelValues("not_found").Inc()
		return domain.BookingResult{}, err
	case errors.Is(err, domain.ErrConflict):
		return domain.BookingResult{}, c.classifyCancelConflict(ctx, seatNo, userID)
	case err != nil:
		return domain.BookingResult{}, err
	}

	c.invalidate(ctx)
	c.events.Publish(domain.SeatEvent{
		Name:   domain.EventSeatCancelled,
		SeatNo: seatNo,
		Seat:   seat,
	})
	observability.CancellationsTotal.WithLabelValues("cancelled").Inc()
	c.logger.WithField("seat_no", seatNo).WithField("user_id", userID).Info("booking cancelled")
	return domain.BookingResult{Seat: seat}, nil
}

func (c *Coordinator) classifyCancelConflict(ctx context.Context, seatNo string, userID uuid.UUID) error {
	seat, err := c.store.Find(ctx, seatNo)
	if err != nil {
		observability.CancellationsTotal.WithLabelValues("not_found").Inc()
		return domain.ErrNotFound
	}
	if seat.Booked && seat.Holder != nil && *seat.Holder != userID {
		observability.CancellationsTotal.WithLabelValues("unauthorized").Inc()
		return domain.ErrUnauthorized
	}
	observability.CancellationsTotal.WithLabelValues("not_found").Inc()
	return domain.ErrNotFound
}

// ListSeats returns the current snapshot, served from the cache when one
// is configured and warm.
func (c *Coordinator) ListSeats(ctx context.Context) ([]domain.Seat, error) {
	if c.cache != nil {
		if seats, ok := c.cache.Get(ctx); ok {
			return seats, nil
		}
	}
	seats, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, seats)
	}
	return seats, nil
}

func (c *Coordinator) invalidate(ctx context.Context) {
	if c.cache != nil {
		c.cache.Invalidate(ctx)
	}
}
