package booking

import (
	"time"

	"hostdesk/internal/domain/property"
)

type Created struct {
	BookingID  ID          `json:"booking_id"`
	PropertyID property.ID `json:"property_id"`
	CheckIn    time.Time   `json:"check_in"`
	CheckOut   time.Time   `json:"check_out"`
	GuestName  string      `json:"guest_name"`
	At         time.Time   `json:"at"`
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }
func (e Created) PropertyKey() string   { return string(e.PropertyID) }

type Confirmed struct {
	BookingID  ID          `json:"booking_id"`
	PropertyID property.ID `json:"property_id"`
	At         time.Time   `json:"at"`
}

func (e Confirmed) EventName() string     { return "booking.confirmed" }
func (e Confirmed) AggregateID() string   { return string(e.BookingID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }
func (e Confirmed) PropertyKey() string   { return string(e.PropertyID) }

type Cancelled struct {
	BookingID  ID          `json:"booking_id"`
	PropertyID property.ID `json:"property_id"`
	Reason     string      `json:"reason,omitempty"`
	At         time.Time   `json:"at"`
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }
func (e Cancelled) PropertyKey() string   { return string(e.PropertyID) }

type Completed struct {
	BookingID  ID          `json:"booking_id"`
	PropertyID property.ID `json:"property_id"`
	At         time.Time   `json:"at"`
}

func (e Completed) EventName() string     { return "booking.completed" }
func (e Completed) AggregateID() string   { return string(e.BookingID) }
func (e Completed) OccurredAt() time.Time { return e.At }
func (e Completed) PropertyKey() string   { return string(e.PropertyID) }
