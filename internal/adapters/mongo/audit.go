// Package mongo keeps the validation audit trail. The collection is
// append-only: documents are inserted once and never updated or removed.
package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

type AuditStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditStore(db *mongo.Database, logger observability.Logger) *AuditStore {
	return &AuditStore{
		coll:   db.Collection("validation_audit"),
		logger: logger,
	}
}

type auditDoc struct {
	ID          uuid.UUID `bson:"_id"`
	BookingID   string    `bson:"booking_id"`
	SeatNo      string    `bson:"seat_no"`
	UserID      uuid.UUID `bson:"user_id"`
	Code        string    `bson:"code"`
	Valid       bool      `bson:"valid"`
	Reason      string    `bson:"reason"`
	ValidatorID string    `bson:"validator_id"`
	RemoteAddr  string    `bson:"remote_addr,omitempty"`
	UserAgent   string    `bson:"user_agent,omitempty"`
	ValidatedAt time.Time `bson:"validated_at"`
}

// EnsureIndexes creates the lookup indexes used by History and
// SeatHistory.
func (a *AuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "validated_at", Value: -1}}},
		{Keys: bson.D{{Key: "seat_no", Value: 1}, {Key: "validated_at", Value: -1}}},
	})
	return errors.Wrap(err, "ensure audit indexes")
}

// Append inserts one audit record. Failures propagate to the caller:
// validation responses must not outrun their audit trail.
func (a *AuditStore) Append(ctx context.Context, rec domain.AuditRecord) error {
	_, err := a.coll.InsertOne(ctx, fromRecord(rec))
	if err != nil {
		a.logger.WithError(err).Error("failed to append audit record")
		return errors.Wrap(err, "append audit record")
	}
	return nil
}

// History returns all validation attempts for a booking, newest first.
func (a *AuditStore) History(ctx context.Context, bookingID string) ([]domain.AuditRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "validated_at", Value: -1}})
	cur, err := a.coll.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "audit history")
	}
	return decodeAll(ctx, cur)
}

// SeatHistory returns validation attempts for a seat since the given
// time, newest first.
func (a *AuditStore) SeatHistory(ctx context.Context, seatNo string, since time.Time) ([]domain.AuditRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "validated_at", Value: -1}})
	filter := bson.M{"seat_no": seatNo, "validated_at": bson.M{"$gte": since}}
	cur, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "audit seat history")
	}
	return decodeAll(ctx, cur)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.AuditRecord, error) {
	defer cur.Close(ctx)
	var recs []domain.AuditRecord
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		recs = append(recs, toRecord(doc))
	}
	return recs, cur.Err()
}

func fromRecord(rec domain.AuditRecord) auditDoc {
	return auditDoc{
		ID:          rec.ID,
		BookingID:   rec.BookingID,
		SeatNo:      rec.SeatNo,
		UserID:      rec.UserID,
		Code:        rec.Code,
		Valid:       rec.Valid,
		Reason:      rec.Reason,
		ValidatorID: rec.ValidatorID,
		RemoteAddr:  rec.RemoteAddr,
		UserAgent:   rec.UserAgent,
		ValidatedAt: rec.ValidatedAt,
	}
}

func toRecord(doc auditDoc) domain.AuditRecord {
	return domain.AuditRecord{
		ID:          doc.ID,
		BookingID:   doc.BookingID,
		SeatNo:      doc.SeatNo,
		UserID:      doc.UserID,
		Code:        doc.Code,
		Valid:       doc.Valid,
		Reason:      doc.Reason,
		ValidatorID: doc.ValidatorID,
		RemoteAddr:  doc.RemoteAddr,
		UserAgent:   doc.UserAgent,
		ValidatedAt: doc.ValidatedAt,
	}
}
