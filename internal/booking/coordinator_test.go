package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmaksimov/seat-sync/internal/adapters/memory"
	"github.com/rmaksimov/seat-sync/internal/booking"
	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SeatEvent
}

func (p *recordingPublisher) Publish(event domain.SeatEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) all() []domain.SeatEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SeatEvent(nil), p.events...)
}

type stubIssuer struct{}

func (stubIssuer) Issue(seatNo string, userID uuid.UUID, issuedAt time.Time) domain.Credential {
	return domain.NewCredential(seatNo, userID, issuedAt)
}

func newCoordinator(t *testing.T, seatNos ...string) (*booking.Coordinator, *recordingPublisher) {
	t.Helper()
	store := memory.NewSeatStore()
	if err := store.Create(context.Background(), seatNos...); err != nil {
		t.Fatal(err)
	}
	pub := &recordingPublisher{}
	return booking.NewCoordinator(store, pub, stubIssuer{}, nil, observability.NewLogger()), pub
}

func TestCoordinator_BookIssuesCredentialAndPublishes(t *testing.T) {
	ctx := context.Background()
	c, pub := newCoordinator(t, "A5")
	user := uuid.New()

	res, err := c.Book(ctx, "A5", user)
	if err != nil {
		t.Fatalf("expected booking to succeed, got %v", err)
	}
	if !res.Seat.Booked || res.Seat.Holder == nil || *res.Seat.Holder != user {
		t.Errorf("unexpected seat snapshot: %+v", res.Seat)
	}
	if res.Credential == nil || res.Credential.SeatNo != "A5" || res.Credential.UserID != user {
		t.Fatalf("unexpected credential: %+v", res.Credential)
	}
	if res.Credential.Code == "" || res.Credential.BookingID == uuid.Nil {
		t.Errorf("credential missing server-generated fields: %+v", res.Credential)
	}

	events := pub.all()
	if len(events) != 1 || events[0].Name != domain.EventSeatBooked || events[0].SeatNo != "A5" {
		t.Errorf("expected one seat-booked event, got %+v", events)
	}
}

func TestCoordinator_RepeatBookReturnsAlreadyHeld(t *testing.T) {
	ctx := context.Background()
	c, _ := newCoordinator(t, "A1", "A2")
	user := uuid.New()

	if _, err := c.Book(ctx, "A1", user); err != nil {
		t.Fatal(err)
	}
	// Same seat, same user: no duplicate booking.
	if _, err := c.Book(ctx, "A1", user); !errors.Is(err, domain.ErrAlreadyHolding) {
		t.Errorf("expected already-holding for repeat book, got %v", err)
	}
	// Different free seat, same user: one seat per user.
	if _, err := c.Book(ctx, "A2", user); !errors.Is(err, domain.ErrAlreadyHolding) {
		t.Errorf("expected already-holding for second seat, got %v", err)
	}
}

func TestCoordinator_BookConflictAndNotFound(t *testing.T) {
	ctx := context.Background()
	c, _ := newCoordinator(t, "A1")

	if _, err := c.Book(ctx, "A1", uuid.New()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Book(ctx, "A1", uuid.New()); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if _, err := c.Book(ctx, "Z9", uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCoordinator_CancelAuthorization(t *testing.T) {
	ctx := context.Background()
	c, pub := newCoordinator(t, "A1")
	holder := uuid.New()
	stranger := uuid.New()

	if _, err := c.Cancel(ctx, "A1", holder); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for free seat, got %v", err)
	}
	if _, err := c.Book(ctx, "A1", holder); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Cancel(ctx, "A1", stranger); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected unauthorized for non-holder, got %v", err)
	}

	res, err := c.Cancel(ctx, "A1", holder)
	if err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}
	if res.Seat.Booked {
		t.Errorf("expected freed seat, got %+v", res.Seat)
	}

	events := pub.all()
	if len(events) != 2 || events[1].Name != domain.EventSeatCancelled {
		t.Errorf("expected seat-cancelled event, got %+v", events)
	}

	// No stale lock: another user books immediately after the cancel.
	if _, err := c.Book(ctx, "A1", stranger); err != nil {
		t.Errorf("expected rebook after cancel to succeed, got %v", err)
	}
}

func TestCoordinator_ConcurrentBookersSingleWinner(t *testing.T) {
	ctx := context.Background()
	c, pub := newCoordinator(t, "A1")

	const callers = 25
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.Book(ctx, "A1", uuid.New())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if events := pub.all(); len(events) != 1 {
		t.Errorf("expected exactly one published event, got %d", len(events))
	}
}

func TestCoordinator_SameUserConcurrentSeats(t *testing.T) {
	ctx := context.Background()
	seatNos := []string{"A1", "A2", "A3", "A4", "A5"}
	c, _ := newCoordinator(t, seatNos...)
	user := uuid.New()

	var wg sync.WaitGroup
	results := make([]error, len(seatNos))
	for i, no := range seatNos {
		wg.Add(1)
		go func(i int, no string) {
			defer wg.Done()
			_, results[i] = c.Book(ctx, no, user)
		}(i, no)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, domain.ErrAlreadyHolding) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected the user to win exactly one seat, got %d", wins)
	}
}

type fakeCache struct {
	mu    sync.Mutex
	seats []domain.Seat
	warm  bool
}

func (f *fakeCache) Get(ctx context.Context) ([]domain.Seat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats, f.warm
}

func (f *fakeCache) Set(ctx context.Context, seats []domain.Seat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seats, f.warm = seats, true
}

func (f *fakeCache) Invalidate(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seats, f.warm = nil, false
}

func TestCoordinator_ListSeatsCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeatStore()
	if err := store.Create(ctx, "A1"); err != nil {
		t.Fatal(err)
	}
	cache := &fakeCache{}
	c := booking.NewCoordinator(store, &recordingPublisher{}, stubIssuer{}, cache, observability.NewLogger())

	seats, err := c.ListSeats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(seats) != 1 || seats[0].Booked {
		t.Fatalf("unexpected snapshot: %+v", seats)
	}
	if !cache.warm {
		t.Error("expected cache to be warmed by the first list")
	}

	if _, err := c.Book(ctx, "A1", uuid.New()); err != nil {
		t.Fatal(err)
	}
	if cache.warm {
		t.Error("expected booking to invalidate the snapshot cache")
	}

	seats, err = c.ListSeats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !seats[0].Booked {
		t.Errorf("expected refreshed snapshot to show the booking, got %+v", seats[0])
	}
}
