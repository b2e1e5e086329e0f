package outbox

import (
	"context"
	"errors"
	"time"

	appoutbox "hostdesk/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

var ErrMessageNotFound = errors.New("outbox: message not found")

// Message is a committed event record as the relay sees it.
type Message struct {
	ID         string
	Name       string
	Aggregate  string
	Key        string
	Payload    []byte
	OccurredAt time.Time
	Headers    map[string]string
	Attempts   int
}

// Store is the relay side of a driver's outbox table.
type Store interface {
	Claim(ctx context.Context, workerID string) (*Message, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

func FromRecord(rec appoutbox.EventRecord) Message {
	return Message{
		ID:         rec.ID,
		Name:       rec.Name,
		Aggregate:  rec.Aggregate,
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt,
		Headers:    rec.Headers,
	}
}
