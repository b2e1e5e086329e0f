package property

import "time"

type Created struct {
	PropertyID ID        `json:"property_id"`
	Name       string    `json:"name"`
	At         time.Time `json:"at"`
}

func (e Created) EventName() string     { return "property.created" }
func (e Created) AggregateID() string   { return string(e.PropertyID) }
func (e Created) OccurredAt() time.Time { return e.At }
func (e Created) PropertyKey() string   { return string(e.PropertyID) }

type StatusChanged struct {
	PropertyID ID           `json:"property_id"`
	From       Status       `json:"from"`
	To         Status       `json:"to"`
	Source     StatusSource `json:"source"`
	At         time.Time    `json:"at"`
}

func (e StatusChanged) EventName() string     { return "property.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.PropertyID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }
func (e StatusChanged) PropertyKey() string   { return string(e.PropertyID) }

type ListingChanged struct {
	PropertyID         ID         `json:"property_id"`
	Active             bool       `json:"active"`
	Platforms          []Platform `json:"platforms"`
	Dropped            []Platform `json:"dropped,omitempty"`
	AutoListWhenVacant bool       `json:"auto_list_when_vacant"`
	At                 time.Time  `json:"at"`
}

func (e ListingChanged) EventName() string     { return "property.listing_changed" }
func (e ListingChanged) AggregateID() string   { return string(e.PropertyID) }
func (e ListingChanged) OccurredAt() time.Time { return e.At }
func (e ListingChanged) PropertyKey() string   { return string(e.PropertyID) }

type ListingAutoActivated struct {
	PropertyID ID         `json:"property_id"`
	Platforms  []Platform `json:"platforms"`
	At         time.Time  `json:"at"`
}

func (e ListingAutoActivated) EventName() string     { return "property.listing_auto_activated" }
func (e ListingAutoActivated) AggregateID() string   { return string(e.PropertyID) }
func (e ListingAutoActivated) OccurredAt() time.Time { return e.At }
func (e ListingAutoActivated) PropertyKey() string   { return string(e.PropertyID) }

type Deleted struct {
	PropertyID ID        `json:"property_id"`
	Cascade    bool      `json:"cascade"`
	At         time.Time `json:"at"`
}

func (e Deleted) EventName() string     { return "property.deleted" }
func (e Deleted) AggregateID() string   { return string(e.PropertyID) }
func (e Deleted) OccurredAt() time.Time { return e.At }
func (e Deleted) PropertyKey() string   { return string(e.PropertyID) }
