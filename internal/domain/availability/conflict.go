package availability

import (
	"fmt"
	"strings"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/fault"
	"hostdesk/internal/domain/tasks"
)

var ErrSchedulingConflict = fault.New(fault.KindConflict, "availability: scheduling conflict")

type ConflictKind string

const (
	ConflictBooking     ConflictKind = "booking"
	ConflictCleaning    ConflictKind = "cleaning"
	ConflictMaintenance ConflictKind = "maintenance"
)

// Conflict names a commitment overlapping a proposed interval.
type Conflict struct {
	Kind     ConflictKind
	ID       string
	Interval daterange.DateRange
	Title    string
}

// ConflictError rejects a mutation and carries what it collided with.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		ids[i] = fmt.Sprintf("%s %s", c.Kind, c.ID)
	}
	return fmt.Sprintf("%s with %s", ErrSchedulingConflict.Error(), strings.Join(ids, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrSchedulingConflict }

func (e *ConflictError) FaultKind() fault.Kind { return fault.KindConflict }

// Snapshot is every commitment of one property, loaded under its write lock.
type Snapshot struct {
	PropertyID  property.ID
	Bookings    []*booking.Booking
	Cleaning    []*tasks.Task
	Maintenance []*tasks.Task
}

// CheckConflict lists the non-cancelled bookings and active tasks overlapping
// interval. excludingID skips the booking or task being edited. It never
// rejects; callers decide what a conflict means.
func CheckConflict(s Snapshot, interval daterange.DateRange, excludingID string) []Conflict {
	var out []Conflict
	for _, b := range s.Bookings {
		if string(b.ID) == excludingID || !b.Blocks() || !b.Stay.Overlaps(interval) {
			continue
		}
		out = append(out, Conflict{Kind: ConflictBooking, ID: string(b.ID), Interval: b.Stay, Title: "Booking: " + b.Guest.Name})
	}
	for _, t := range s.Cleaning {
		if c, ok := taskConflict(t, ConflictCleaning, interval, excludingID); ok {
			out = append(out, c)
		}
	}
	for _, t := range s.Maintenance {
		if c, ok := taskConflict(t, ConflictMaintenance, interval, excludingID); ok {
			out = append(out, c)
		}
	}
	return out
}

func taskConflict(t *tasks.Task, kind ConflictKind, interval daterange.DateRange, excludingID string) (Conflict, bool) {
	if string(t.ID) == excludingID || !t.Active() || !t.Window.Overlaps(interval) {
		return Conflict{}, false
	}
	title := "Cleaning"
	if kind == ConflictMaintenance {
		title = "Maintenance"
		if t.IsRenovation() {
			title = "Renovation"
		}
	}
	if t.Staff != "" {
		title += ": " + t.Staff
	}
	return Conflict{Kind: kind, ID: string(t.ID), Interval: t.Window, Title: title}, true
}

func ConflictIDs(conflicts []Conflict) []string {
	ids := make([]string, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.ID
	}
	return ids
}
