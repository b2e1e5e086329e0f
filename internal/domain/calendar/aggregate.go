package calendar

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

// Filter narrows the projection. Zero values leave a dimension open.
type Filter struct {
	PropertyID property.ID
	Kind       Kind
	From       time.Time
	To         time.Time
}

func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return ErrInvalidRange
	}
	return nil
}

// Matches applies the property, kind and window rules to one event. Point
// events are in the window when from <= start < to; interval events when
// [start,end) overlaps [from,to).
func (f Filter) Matches(e Event) bool {
	if f.PropertyID != "" && e.PropertyID != f.PropertyID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if e.Kind.Point() {
		if !f.From.IsZero() && e.Start.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && !e.Start.Before(f.To) {
			return false
		}
		return true
	}
	if !f.To.IsZero() && !e.Start.Before(f.To) {
		return false
	}
	if !f.From.IsZero() && !f.From.Before(e.End) {
		return false
	}
	return true
}

// Source is the raw material of the projection.
type Source struct {
	Bookings    []*booking.Booking
	Cleaning    []*tasks.Task
	Maintenance []*tasks.Task
}

// Aggregate returns the filtered events ordered by start, then kind
// precedence, then id. Cancelled bookings and tasks are skipped. The sequence
// does its work on each iteration and can be ranged over repeatedly.
func Aggregate(src Source, f Filter) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		out := make([]Event, 0, 2*len(src.Bookings)+len(src.Cleaning)+len(src.Maintenance))
		keep := func(e Event) {
			if f.Matches(e) {
				out = append(out, e)
			}
		}
		for _, b := range src.Bookings {
			if b == nil || b.Status == booking.StatusCancelled {
				continue
			}
			in, outEvt := FromBooking(b)
			keep(in)
			keep(outEvt)
		}
		for _, list := range [][]*tasks.Task{src.Cleaning, src.Maintenance} {
			for _, t := range list {
				if t == nil || t.Status == tasks.StatusCancelled {
					continue
				}
				keep(FromTask(t))
			}
		}
		slices.SortFunc(out, Compare)
		for _, e := range out {
			if !yield(e) {
				return
			}
		}
	}
}

func Compare(a, b Event) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind.precedence(), b.Kind.precedence()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Collect drains a sequence into a slice.
func Collect(seq iter.Seq[Event]) []Event {
	return slices.Collect(seq)
}
