// Package postgres is the durable seat store. A seat transition is a
// single conditional UPDATE guarded on the current booked/holder state,
// so the check and the write commit atomically. The partial unique index
// on (holder) WHERE booked enforces one active seat per user inside the
// same statement.
package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmaksimov/seat-sync/internal/domain"
)

const uniqueViolationCode = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS seats (
	seat_no   TEXT PRIMARY KEY,
	booked    BOOLEAN NOT NULL DEFAULT FALSE,
	holder    UUID,
	booked_at TIMESTAMPTZ,
	version   BIGINT NOT NULL DEFAULT 0,
	CHECK (booked OR (holder IS NULL AND booked_at IS NULL))
);
CREATE UNIQUE INDEX IF NOT EXISTS seats_active_holder ON seats (holder) WHERE booked;
`

type SeatStore struct {
	pool *pgxpool.Pool
}

func NewSeatStore(pool *pgxpool.Pool) *SeatStore {
	return &SeatStore{pool: pool}
}

// EnsureSchema creates the seats table and its indexes.
func (s *SeatStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "ensure seats schema")
}

// Create inserts free seats with the given labels, skipping labels that
// already exist.
func (s *SeatStore) Create(ctx context.Context, seatNos ...string) error {
	for _, no := range seatNos {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO seats (seat_no) VALUES ($1)
			ON CONFLICT (seat_no) DO NOTHING
		`, no)
		if err != nil {
			return errors.Wrapf(err, "create seat %s", no)
		}
	}
	return nil
}

// Transition applies next to seatNo only while the row still matches
// expect. Zero rows updated means another writer got there first; the
// follow-up read distinguishes a missing seat from a lost race. A
// violation of the active-holder index surfaces as ErrAlreadyHolding.
func (s *SeatStore) Transition(ctx context.Context, seatNo string, expect domain.Expectation, next domain.SeatState) (domain.Seat, error) {
	if next.Booked && next.Holder == nil {
		return domain.Seat{}, domain.ErrInvalidInput
	}

	query := `
		UPDATE seats
		SET booked = $1, holder = $2, booked_at = $3, version = version + 1
		WHERE seat_no = $4 AND booked = $5
	`
	args := []interface{}{next.Booked, next.Holder, next.BookedAt, seatNo, expect.Booked}
	if expect.Holder != nil {
		query += ` AND holder = $6`
		args = append(args, *expect.Holder)
	}
	query += ` RETURNING seat_no, booked, holder, booked_at, version`

	var seat domain.Seat
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&seat.SeatNo, &seat.Booked, &seat.Holder, &seat.BookedAt, &seat.Version)
	if err == nil {
		return seat, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.Seat{}, domain.ErrAlreadyHolding
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if _, findErr := s.Find(ctx, seatNo); errors.Is(findErr, domain.ErrNotFound) {
			return domain.Seat{}, domain.ErrNotFound
		}
		return domain.Seat{}, domain.ErrConflict
	}
	return domain.Seat{}, errors.Wrapf(err, "transition seat %s", seatNo)
}

func (s *SeatStore) Find(ctx context.Context, seatNo string) (domain.Seat, error) {
	var seat domain.Seat
	err := s.pool.QueryRow(ctx, `
		SELECT seat_no, booked, holder, booked_at, version
		FROM seats WHERE seat_no = $1
	`, seatNo).Scan(&seat.SeatNo, &seat.Booked, &seat.Holder, &seat.BookedAt, &seat.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Seat{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Seat{}, errors.Wrapf(err, "find seat %s", seatNo)
	}
	return seat, nil
}

func (s *SeatStore) FindByHolder(ctx context.Context, userID uuid.UUID) (domain.Seat, error) {
	var seat domain.Seat
	err := s.pool.QueryRow(ctx, `
		SELECT seat_no, booked, holder, booked_at, version
		FROM seats WHERE booked AND holder = $1
	`, userID).Scan(&seat.SeatNo, &seat.Booked, &seat.Holder, &seat.BookedAt, &seat.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Seat{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Seat{}, errors.Wrap(err, "find seat by holder")
	}
	return seat, nil
}

func (s *SeatStore) List(ctx context.Context) ([]domain.Seat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seat_no, booked, holder, booked_at, version
		FROM seats ORDER BY seat_no
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list seats")
	}
	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var seat domain.Seat
		if err := rows.Scan(&seat.SeatNo, &seat.Booked, &seat.Holder, &seat.BookedAt, &seat.Version); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}
