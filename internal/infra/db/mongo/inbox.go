package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Inbox records consumed event ids per consumer. The unique index on
// (event_id, consumer) makes marking twice a no-op.
type Inbox struct {
	col      *mongo.Collection
	consumer string
}

func NewInbox(db *mongo.Database, consumer string) *Inbox {
	return &Inbox{col: db.Collection(inboxCollection), consumer: consumer}
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := i.col.CountDocuments(ctx, bson.M{"event_id": eventID, "consumer": i.consumer})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (i *Inbox) Mark(ctx context.Context, eventID string) error {
	doc := bson.M{"event_id": eventID, "consumer": i.consumer, "received_at": time.Now().UTC()}
	if _, err := i.col.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}
