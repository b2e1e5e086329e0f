package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostdesk/internal/app/middleware"
)

// IdempotencyStore keeps replay records in app_idempotency. A TTL index on
// expires_at removes them eventually; Get also hides records already past it.
type IdempotencyStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewIdempotencyStore(db *mongo.Database) *IdempotencyStore {
	return &IdempotencyStore{col: db.Collection(idempotencyCollection), now: time.Now}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	if doc.ExpiresAt != nil && !s.now().Before(*doc.ExpiresAt) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return doc.toRecord(), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := newIdempotencyDocument(rec)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// Reserve upserts only over an expired record. A live one makes the upsert
// collide on _id, which means the key is taken.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec middleware.IdempotencyRecord) (bool, error) {
	doc := newIdempotencyDocument(rec)
	filter := bson.M{"_id": doc.ID, "expires_at": bson.M{"$lte": s.now().UTC()}}
	_, err := s.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": key, "pending": true})
	return err
}

type idempotencyDocument struct {
	ID         string     `bson:"_id"`
	Command    string     `bson:"command"`
	Payload    []byte     `bson:"payload"`
	Error      string     `bson:"error,omitempty"`
	ErrorKind  string     `bson:"error_kind,omitempty"`
	Pending    bool       `bson:"pending,omitempty"`
	OccurredAt time.Time  `bson:"occurred_at"`
	ExpiresAt  *time.Time `bson:"expires_at,omitempty"`
}

func newIdempotencyDocument(rec middleware.IdempotencyRecord) idempotencyDocument {
	doc := idempotencyDocument{
		ID:         rec.Key,
		Command:    rec.Command,
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  rec.ErrorKind,
		Pending:    rec.Pending,
		OccurredAt: rec.OccurredAt.UTC(),
	}
	if !rec.ExpiresAt.IsZero() {
		at := rec.ExpiresAt.UTC()
		doc.ExpiresAt = &at
	}
	return doc
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	rec := middleware.IdempotencyRecord{
		Key:        d.ID,
		Command:    d.Command,
		Payload:    d.Payload,
		Error:      d.Error,
		ErrorKind:  d.ErrorKind,
		Pending:    d.Pending,
		OccurredAt: d.OccurredAt.UTC(),
	}
	if d.ExpiresAt != nil {
		rec.ExpiresAt = d.ExpiresAt.UTC()
	}
	return rec
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
