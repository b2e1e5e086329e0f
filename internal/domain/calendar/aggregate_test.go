package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/tasks"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func mustBooking(t *testing.T, id booking.ID, in, out time.Time) *booking.Booking {
	t.Helper()
	b, err := booking.New(booking.CreateParams{
		ID:         id,
		PropertyID: "prop-1",
		Guest:      booking.Guest{Name: "Guest " + string(id)},
		CheckIn:    in,
		CheckOut:   out,
		Adults:     1,
		MaxGuests:  2,
		CreatedAt:  in,
	})
	require.NoError(t, err)
	return b
}

func mustCleaning(t *testing.T, id tasks.ID, start, end time.Time) *tasks.Task {
	t.Helper()
	task, err := tasks.NewCleaning(tasks.CleaningParams{ID: id, PropertyID: "prop-1", Start: start, End: end})
	require.NoError(t, err)
	return task
}

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestAggregateOrdersByStartThenPrecedence(t *testing.T) {
	first := mustBooking(t, "b1", date(time.April, 20), date(time.April, 24))
	second := mustBooking(t, "b2", date(time.April, 24), date(time.April, 28))
	clean := mustCleaning(t, "c1", date(time.April, 24), date(time.April, 24).Add(3*time.Hour))
	repair, err := tasks.NewMaintenance(tasks.MaintenanceParams{
		ID: "m1", PropertyID: "prop-1", Start: date(time.April, 24), End: date(time.April, 25),
	})
	require.NoError(t, err)

	src := Source{
		Bookings:    []*booking.Booking{second, first},
		Cleaning:    []*tasks.Task{clean},
		Maintenance: []*tasks.Task{repair},
	}
	got := Collect(Aggregate(src, Filter{}))
	assert.Equal(t, []Kind{KindCheckIn, KindCheckOut, KindCleaning, KindMaintenance, KindCheckIn, KindCheckOut}, kinds(got))
	assert.Equal(t, "b1:check_out", got[1].ID)
	assert.Equal(t, "b2:check_in", got[4].ID)
}

func TestAggregateSkipsCancelled(t *testing.T) {
	b := mustBooking(t, "b1", date(time.April, 20), date(time.April, 24))
	require.NoError(t, b.Cancel("", date(time.April, 19)))
	c := mustCleaning(t, "c1", date(time.April, 21), date(time.April, 22))
	require.NoError(t, c.Cancel(date(time.April, 19)))
	done := mustCleaning(t, "c2", date(time.April, 22), date(time.April, 23))
	require.NoError(t, done.Complete(date(time.April, 23)))

	got := Collect(Aggregate(Source{Bookings: []*booking.Booking{b}, Cleaning: []*tasks.Task{c, done}}, Filter{}))
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)
}

func TestWindowSemantics(t *testing.T) {
	b := mustBooking(t, "b1", date(time.April, 28), date(time.May, 2))
	c := mustCleaning(t, "c1", date(time.April, 30), date(time.May, 1))
	src := Source{Bookings: []*booking.Booking{b}, Cleaning: []*tasks.Task{c}}
	may := Filter{From: date(time.May, 1), To: date(time.June, 1)}

	got := Collect(Aggregate(src, may))
	assert.Equal(t, []Kind{KindCheckOut}, kinds(got), "cleaning ending on the bound and check-in before it are excluded")

	april := Filter{From: date(time.April, 1), To: date(time.May, 1)}
	got = Collect(Aggregate(src, april))
	assert.Equal(t, []Kind{KindCheckIn, KindCleaning}, kinds(got))

	got = Collect(Aggregate(src, Filter{Kind: KindCleaning, PropertyID: "prop-1"}))
	assert.Equal(t, []Kind{KindCleaning}, kinds(got))

	got = Collect(Aggregate(src, Filter{PropertyID: "other"}))
	assert.Empty(t, got)
}

func TestAggregateIsRestartable(t *testing.T) {
	src := Source{Bookings: []*booking.Booking{mustBooking(t, "b1", date(time.April, 1), date(time.April, 3))}}
	seq := Aggregate(src, Filter{})
	assert.Len(t, Collect(seq), 2)
	assert.Len(t, Collect(seq), 2)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestIntervalRoundTrip(t *testing.T) {
	b := mustBooking(t, "b1", date(time.April, 24), date(time.April, 28))
	in, out := FromBooking(b)
	assert.True(t, in.AllDay)
	assert.Equal(t, in.Start, in.End)

	stay, err := Interval(in, out)
	require.NoError(t, err)
	assert.True(t, stay.Equal(b.Stay))

	_, err = Interval(out, in)
	assert.Error(t, err)
	other := mustBooking(t, "b2", date(time.May, 1), date(time.May, 2))
	_, otherOut := FromBooking(other)
	_, err = Interval(in, otherOut)
	assert.Error(t, err)
}

func TestMaintenancePayload(t *testing.T) {
	m, err := tasks.NewMaintenance(tasks.MaintenanceParams{
		ID: "m1", PropertyID: "prop-1", Start: date(time.May, 1), End: date(time.May, 3),
		Priority: tasks.PriorityHigh, Description: "Boiler",
	})
	require.NoError(t, err)
	evt := FromTask(m)
	payload, ok := evt.Payload.(MaintenancePayload)
	require.True(t, ok)
	assert.Equal(t, tasks.PriorityHigh, payload.Priority)
	assert.Equal(t, "Maintenance: Boiler", evt.Title)
	assert.True(t, evt.Kind.Editable())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("check-in")
	require.NoError(t, err)
	assert.Equal(t, KindCheckIn, k)
	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Kind(""), k)
	_, err = ParseKind("party")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFilterValidate(t *testing.T) {
	assert.ErrorIs(t, Filter{From: date(time.May, 2), To: date(time.May, 1)}.Validate(), ErrInvalidRange)
	assert.NoError(t, Filter{From: date(time.May, 2)}.Validate())
}
