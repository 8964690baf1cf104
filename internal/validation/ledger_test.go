package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

type fakeSeats map[string]domain.Seat

func (f fakeSeats) Find(ctx context.Context, seatNo string) (domain.Seat, error) {
	if seat, ok := f[seatNo]; ok {
		return seat, nil
	}
	return domain.Seat{}, domain.ErrNotFound
}

type fakeAudit struct {
	recs []domain.AuditRecord
	fail error
}

func (f *fakeAudit) Append(ctx context.Context, rec domain.AuditRecord) error {
	if f.fail != nil {
		return f.fail
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeAudit) History(ctx context.Context, bookingID string) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for _, rec := range f.recs {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func bookedSeat(seatNo string, holder uuid.UUID, bookedAt time.Time) domain.Seat {
	return domain.Seat{SeatNo: seatNo, Booked: true, Holder: &holder, BookedAt: &bookedAt, Version: 1}
}

func newTestLedger(seats fakeSeats, audit *fakeAudit, now time.Time) *Ledger {
	l := NewLedger(seats, audit, 24*time.Hour, observability.NewLogger())
	l.now = func() time.Time { return now }
	return l
}

func TestLedger_Issue(t *testing.T) {
	user := uuid.New()
	at := time.Now().UTC()
	l := newTestLedger(fakeSeats{}, &fakeAudit{}, at)

	cred := l.Issue("A5", user, at)
	if cred.SeatNo != "A5" || cred.UserID != user || !cred.IssuedAt.Equal(at) {
		t.Errorf("unexpected credential: %+v", cred)
	}
	if cred.BookingID == uuid.Nil || len(cred.Code) != 24 {
		t.Errorf("expected server-generated booking id and code, got %+v", cred)
	}
}

func TestLedger_ValidateWindow(t *testing.T) {
	user := uuid.New()
	bookedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		now    time.Time
		valid  bool
		reason string
	}{
		{"one hour in", bookedAt.Add(time.Hour), true, ReasonValid},
		{"just inside", bookedAt.Add(24*time.Hour - time.Minute), true, ReasonValid},
		{"at the boundary", bookedAt.Add(24 * time.Hour), true, ReasonValid},
		{"just past", bookedAt.Add(24*time.Hour + time.Minute), false, ReasonExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audit := &fakeAudit{}
			seats := fakeSeats{"A5": bookedSeat("A5", user, bookedAt)}
			l := newTestLedger(seats, audit, tc.now)

			res, err := l.Validate(context.Background(), "bk-1", "A5", user, "deadbeef", RequestMeta{})
			if err != nil {
				t.Fatal(err)
			}
			if res.Valid != tc.valid || res.Reason != tc.reason {
				t.Errorf("expected valid=%v reason=%q, got valid=%v reason=%q", tc.valid, tc.reason, res.Valid, res.Reason)
			}
			if len(audit.recs) != 1 {
				t.Fatalf("expected exactly one audit record, got %d", len(audit.recs))
			}
			if audit.recs[0].Valid != tc.valid || audit.recs[0].Reason != tc.reason {
				t.Errorf("audit record disagrees with the result: %+v", audit.recs[0])
			}
		})
	}
}

func TestLedger_ValidateWrongHolder(t *testing.T) {
	holder := uuid.New()
	now := time.Now().UTC()
	audit := &fakeAudit{}
	seats := fakeSeats{
		"A5": bookedSeat("A5", holder, now.Add(-time.Hour)),
		"B1": {SeatNo: "B1"},
	}
	l := newTestLedger(seats, audit, now)

	for _, tc := range []struct {
		name   string
		seatNo string
		user   uuid.UUID
	}{
		{"different holder", "A5", uuid.New()},
		{"free seat", "B1", holder},
		{"unknown seat", "Z9", holder},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := l.Validate(context.Background(), "bk-1", tc.seatNo, tc.user, "deadbeef", RequestMeta{})
			if err != nil {
				t.Fatal(err)
			}
			if res.Valid || res.Reason != ReasonNotHeld {
				t.Errorf("expected not-held rejection, got %+v", res)
			}
		})
	}

	if len(audit.recs) != 3 {
		t.Errorf("expected one audit record per attempt, got %d", len(audit.recs))
	}
}

func TestLedger_AuditFailureSurfaces(t *testing.T) {
	user := uuid.New()
	now := time.Now().UTC()
	audit := &fakeAudit{fail: errors.New("mongo down")}
	seats := fakeSeats{"A5": bookedSeat("A5", user, now.Add(-time.Hour))}
	l := newTestLedger(seats, audit, now)

	res, err := l.Validate(context.Background(), "bk-1", "A5", user, "deadbeef", RequestMeta{})
	if err == nil {
		t.Fatal("expected the audit failure to fail the validation")
	}
	if res.Valid {
		t.Errorf("expected no classification on audit failure, got %+v", res)
	}
}

func TestLedger_AuditCapturesRequestMeta(t *testing.T) {
	user := uuid.New()
	now := time.Now().UTC()
	audit := &fakeAudit{}
	seats := fakeSeats{"A5": bookedSeat("A5", user, now.Add(-time.Hour))}
	l := newTestLedger(seats, audit, now)

	meta := RequestMeta{RemoteAddr: "203.0.113.9:4711", UserAgent: "gate-scanner/2.1"}
	if _, err := l.Validate(context.Background(), "bk-1", "A5", user, "deadbeef", meta); err != nil {
		t.Fatal(err)
	}

	rec := audit.recs[0]
	if rec.RemoteAddr != meta.RemoteAddr || rec.UserAgent != meta.UserAgent {
		t.Errorf("expected requester metadata in the audit record, got %+v", rec)
	}
	if rec.ValidatorID != defaultValidatorID || rec.Code != "deadbeef" {
		t.Errorf("unexpected audit fields: %+v", rec)
	}
}
