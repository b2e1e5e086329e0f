package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hostdesk/internal/domain/shared/events"
)

// EventRecord is a serialized domain event waiting to be relayed.
type EventRecord struct {
	ID         string
	Name       string
	Aggregate  string
	Key        string
	Payload    []byte
	OccurredAt time.Time
	Headers    map[string]string
}

// Outbox stages records inside a unit of work. Flush writes the staged
// records through the unit's transaction.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Aggregate:  ev.AggregateID(),
		Key:        events.PartitionKey(ev),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

// Record drains every source and stages its events on box.
func Record(ctx context.Context, box Outbox, encoder EventEncoder, sources ...events.Source) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, ev := range src.DrainEvents() {
			rec, err := encoder.Encode(ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Staged is an Outbox buffer drivers embed; Flush hands the buffer to write.
type Staged struct {
	records []EventRecord
	write   func(ctx context.Context, records []EventRecord) error
}

func NewStaged(write func(ctx context.Context, records []EventRecord) error) *Staged {
	return &Staged{write: write}
}

func (s *Staged) Add(ctx context.Context, record EventRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *Staged) Flush(ctx context.Context) error {
	if len(s.records) == 0 {
		return nil
	}
	if err := s.write(ctx, s.records); err != nil {
		return err
	}
	s.records = nil
	return nil
}

func (s *Staged) Pending() []EventRecord {
	out := make([]EventRecord, len(s.records))
	copy(out, s.records)
	return out
}
