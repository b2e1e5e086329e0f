package events

import "time"

// DomainEvent is a fact recorded by an aggregate and relayed through the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// PropertyScoped events name the property whose calendar they affect; the
// outbox uses it as the partition key so a property's events stay ordered.
type PropertyScoped interface {
	PropertyKey() string
}

// Recorder collects events until the unit of work drains them.
type Recorder struct {
	pending []DomainEvent
}

func (r *Recorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *Recorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

// DrainEvents returns the pending events and resets the recorder.
func (r *Recorder) DrainEvents() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

// Source is implemented by anything embedding a Recorder.
type Source interface {
	PendingEvents() []DomainEvent
	DrainEvents() []DomainEvent
}

// PartitionKey picks the property key when present, the aggregate id otherwise.
func PartitionKey(evt DomainEvent) string {
	if scoped, ok := evt.(PropertyScoped); ok && scoped.PropertyKey() != "" {
		return scoped.PropertyKey()
	}
	return evt.AggregateID()
}
