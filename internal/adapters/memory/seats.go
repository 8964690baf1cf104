// Package memory is an in-process seat store with the same conditional
// transition semantics as the postgres adapter. It backs the unit tests
// and local development when no POSTGRES_DSN is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmaksimov/seat-sync/internal/domain"
)

type record struct {
	booked   bool
	holder   uuid.UUID
	bookedAt time.Time
	version  int64
}

type SeatStore struct {
	mu    sync.Mutex
	seats map[string]*record
}

func NewSeatStore() *SeatStore {
	return &SeatStore{seats: make(map[string]*record)}
}

// Create adds free seats with the given labels. Existing labels are left
// untouched.
func (s *SeatStore) Create(ctx context.Context, seatNos ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, no := range seatNos {
		if _, ok := s.seats[no]; !ok {
			s.seats[no] = &record{}
		}
	}
	return nil
}

// Transition applies next to seatNo only while the record still matches
// expect. The single mutex makes the read-check-write sequence atomic;
// the one-seat-per-user scan happens under the same lock, so a holder
// can never end up with two active seats.
func (s *SeatStore) Transition(ctx context.Context, seatNo string, expect domain.Expectation, next domain.SeatState) (domain.Seat, error) {
	if next.Booked && next.Holder == nil {
		return domain.Seat{}, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.seats[seatNo]
	if !ok {
		return domain.Seat{}, domain.ErrNotFound
	}
	if rec.booked != expect.Booked {
		return domain.Seat{}, domain.ErrConflict
	}
	if expect.Holder != nil && (!rec.booked || rec.holder != *expect.Holder) {
		return domain.Seat{}, domain.ErrConflict
	}
	if next.Booked {
		for no, other := range s.seats {
			if no != seatNo && other.booked && other.holder == *next.Holder {
				return domain.Seat{}, domain.ErrAlreadyHolding
			}
		}
	}

	if next.Booked {
		rec.booked = true
		rec.holder = *next.Holder
		if next.BookedAt != nil {
			rec.bookedAt = next.BookedAt.UTC()
		} else {
			rec.bookedAt = time.Now().UTC()
		}
	} else {
		rec.booked = false
		rec.holder = uuid.UUID{}
		rec.bookedAt = time.Time{}
	}
	rec.version++
	return snapshot(seatNo, rec), nil
}

func (s *SeatStore) Find(ctx context.Context, seatNo string) (domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.seats[seatNo]
	if !ok {
		return domain.Seat{}, domain.ErrNotFound
	}
	return snapshot(seatNo, rec), nil
}

func (s *SeatStore) FindByHolder(ctx context.Context, userID uuid.UUID) (domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for no, rec := range s.seats {
		if rec.booked && rec.holder == userID {
			return snapshot(no, rec), nil
		}
	}
	return domain.Seat{}, domain.ErrNotFound
}

func (s *SeatStore) List(ctx context.Context) ([]domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats := make([]domain.Seat, 0, len(s.seats))
	for no, rec := range s.seats {
		seats = append(seats, snapshot(no, rec))
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNo < seats[j].SeatNo })
	return seats, nil
}

func snapshot(seatNo string, rec *record) domain.Seat {
	seat := domain.Seat{SeatNo: seatNo, Booked: rec.booked, Version: rec.version}
	if rec.booked {
		holder := rec.holder
		bookedAt := rec.bookedAt
		seat.Holder = &holder
		seat.BookedAt = &bookedAt
	}
	return seat
}
