// Package calendar projects bookings and tasks into one ordered stream of
// typed events. Nothing here is persisted.
package calendar

import (
	"errors"
	"strings"
	"time"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/fault"
	"hostdesk/internal/domain/tasks"
)

var (
	ErrUnknownKind  = fault.Validation("calendar: unknown event type")
	ErrInvalidRange = fault.Validation("calendar: from must be before to")
	errNotAStay     = errors.New("calendar: events do not form a stay")
)

type Kind string

const (
	KindCheckIn     Kind = "check_in"
	KindCheckOut    Kind = "check_out"
	KindCleaning    Kind = "cleaning"
	KindMaintenance Kind = "maintenance"
)

func ParseKind(raw string) (Kind, error) {
	if raw == "" {
		return "", nil
	}
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	switch Kind(norm) {
	case KindCheckIn, KindCheckOut, KindCleaning, KindMaintenance:
		return Kind(norm), nil
	case "checkin":
		return KindCheckIn, nil
	case "checkout":
		return KindCheckOut, nil
	}
	return "", ErrUnknownKind
}

// precedence orders events sharing a start: guests leave, the unit is turned
// over, then the next guest arrives.
func (k Kind) precedence() int {
	switch k {
	case KindCheckOut:
		return 0
	case KindCleaning:
		return 1
	case KindMaintenance:
		return 2
	case KindCheckIn:
		return 3
	}
	return 4
}

// Point events have start == end.
func (k Kind) Point() bool {
	return k == KindCheckIn || k == KindCheckOut
}

// Editable kinds are changed through the task endpoints; stay events follow their booking.
func (k Kind) Editable() bool {
	return k == KindCleaning || k == KindMaintenance
}

type Event struct {
	ID         string
	Kind       Kind
	PropertyID property.ID
	Start      time.Time
	End        time.Time
	AllDay     bool
	Title      string
	Payload    Payload
}

// Payload is one of StayPayload, CleaningPayload or MaintenancePayload.
type Payload interface {
	payload()
}

type StayPayload struct {
	BookingID     booking.ID
	GuestName     string
	Adults        int
	Children      int
	PaymentStatus booking.PaymentStatus
	BookingStatus booking.Status
}

type CleaningPayload struct {
	TaskID tasks.ID
	Staff  string
	Notes  string
	Status tasks.Status
}

type MaintenancePayload struct {
	TaskID      tasks.ID
	Staff       string
	Description string
	Priority    tasks.Priority
	Kind        tasks.Kind
	Status      tasks.Status
}

func (StayPayload) payload()        {}
func (CleaningPayload) payload()    {}
func (MaintenancePayload) payload() {}

func checkInID(id booking.ID) string  { return string(id) + ":check_in" }
func checkOutID(id booking.ID) string { return string(id) + ":check_out" }

// FromBooking materialises the check-in and check-out point events of a booking.
func FromBooking(b *booking.Booking) (Event, Event) {
	payload := StayPayload{
		BookingID:     b.ID,
		GuestName:     b.Guest.Name,
		Adults:        b.Adults,
		Children:      b.Children,
		PaymentStatus: b.PaymentStatus,
		BookingStatus: b.Status,
	}
	in := Event{
		ID:         checkInID(b.ID),
		Kind:       KindCheckIn,
		PropertyID: b.PropertyID,
		Start:      b.Stay.Start,
		End:        b.Stay.Start,
		AllDay:     true,
		Title:      "Check-in: " + b.Guest.Name,
		Payload:    payload,
	}
	out := Event{
		ID:         checkOutID(b.ID),
		Kind:       KindCheckOut,
		PropertyID: b.PropertyID,
		Start:      b.Stay.End,
		End:        b.Stay.End,
		AllDay:     true,
		Title:      "Check-out: " + b.Guest.Name,
		Payload:    payload,
	}
	return in, out
}

func FromTask(t *tasks.Task) Event {
	evt := Event{
		ID:         string(t.ID),
		PropertyID: t.PropertyID,
		Start:      t.Window.Start,
		End:        t.Window.End,
	}
	switch t.Type {
	case tasks.TypeCleaning:
		evt.Kind = KindCleaning
		evt.Title = "Cleaning"
		if t.Staff != "" {
			evt.Title += ": " + t.Staff
		}
		evt.Payload = CleaningPayload{TaskID: t.ID, Staff: t.Staff, Notes: t.Notes, Status: t.Status}
	default:
		evt.Kind = KindMaintenance
		evt.Title = "Maintenance"
		if t.Kind == tasks.KindRenovation {
			evt.Title = "Renovation"
		}
		if t.Description != "" {
			evt.Title += ": " + t.Description
		}
		evt.Payload = MaintenancePayload{
			TaskID:      t.ID,
			Staff:       t.Staff,
			Description: t.Description,
			Priority:    t.Priority,
			Kind:        t.Kind,
			Status:      t.Status,
		}
	}
	return evt
}

// Interval recovers a booking's stay from its check-in and check-out events.
func Interval(checkIn, checkOut Event) (daterange.DateRange, error) {
	if checkIn.Kind != KindCheckIn || checkOut.Kind != KindCheckOut {
		return daterange.DateRange{}, errNotAStay
	}
	in, okIn := checkIn.Payload.(StayPayload)
	out, okOut := checkOut.Payload.(StayPayload)
	if !okIn || !okOut || in.BookingID != out.BookingID {
		return daterange.DateRange{}, errNotAStay
	}
	return daterange.New(checkIn.Start, checkOut.Start)
}
