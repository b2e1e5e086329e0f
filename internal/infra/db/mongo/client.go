// Package mongo is the document storage driver. Units of work run inside
// multi-document transactions, so the server must be a replica set.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	propertiesCollection  = "agg_property"
	bookingsCollection    = "agg_booking"
	cleaningCollection    = "agg_cleaning_task"
	maintenanceCollection = "agg_maintenance_task"
	outboxCollection      = "app_outbox"
	idempotencyCollection = "app_idempotency"
	inboxCollection       = "app_inbox"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. Collections
// are created up front because transactions cannot create them on older servers.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	existing, err := c.DB.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	for _, name := range []string{propertiesCollection, bookingsCollection, cleaningCollection, maintenanceCollection, outboxCollection, idempotencyCollection, inboxCollection} {
		if have[name] {
			continue
		}
		if err := c.DB.CreateCollection(ctx, name); err != nil {
			return err
		}
	}
	indexes := map[string][]mongo.IndexModel{
		bookingsCollection:    {{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "stay.check_in", Value: 1}}}},
		cleaningCollection:    {{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "window.start", Value: 1}}}},
		maintenanceCollection: {{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "window.start", Value: 1}}}},
		outboxCollection:      {{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}}},
		idempotencyCollection: {{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)}},
		inboxCollection:       {{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}
	for name, models := range indexes {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
