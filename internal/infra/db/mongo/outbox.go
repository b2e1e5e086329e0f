package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/infra/outbox"
)

type eventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Aggregate   string            `bson:"aggregate"`
	Key         string            `bson:"key"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Seq         int64             `bson:"seq"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by,omitempty"`
	ClaimedAt   time.Time         `bson:"claimed_at,omitempty"`
	SentAt      time.Time         `bson:"sent_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

func newEventDocument(rec appoutbox.EventRecord, seq int64) eventDocument {
	now := time.Now().UTC()
	return eventDocument{
		ID:          rec.ID,
		Name:        rec.Name,
		Aggregate:   rec.Aggregate,
		Key:         rec.Key,
		Payload:     rec.Payload,
		OccurredAt:  rec.OccurredAt.UTC(),
		Headers:     rec.Headers,
		State:       outbox.StateNew,
		Seq:         seq,
		NextAttempt: now,
		CreatedAt:   now,
	}
}

func (d eventDocument) message() *outbox.Message {
	return &outbox.Message{
		ID:         d.ID,
		Name:       d.Name,
		Aggregate:  d.Aggregate,
		Key:        d.Key,
		Payload:    d.Payload,
		OccurredAt: d.OccurredAt.UTC(),
		Headers:    d.Headers,
		Attempts:   d.Attempts,
	}
}

// OutboxStore is the relay side of the app_outbox collection. Records are
// written by the unit of work inside its transaction.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection(outboxCollection)}
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*outbox.Message, error) {
	now := time.Now().UTC()
	filter := bson.M{"state": bson.M{"$in": []string{outbox.StateNew, outbox.StateFailed}}, "next_attempt_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"state": outbox.StateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetSort(bson.D{{Key: "seq", Value: 1}})
	var doc eventDocument
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.message(), nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"state": outbox.StateSent, "sent_at": time.Now().UTC()}})
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.update(ctx, id, bson.M{
		"$set": bson.M{
			"state":           outbox.StateFailed,
			"next_attempt_at": next.UTC(),
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	})
}

func (s *OutboxStore) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return outbox.ErrMessageNotFound
	}
	return nil
}

var _ outbox.Store = (*OutboxStore)(nil)
