package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/bookings"
	appcalendar "hostdesk/internal/app/handlers/calendar"
	"hostdesk/internal/app/handlers/properties"
	"hostdesk/internal/app/handlers/support"
	apptasks "hostdesk/internal/app/handlers/tasks"
	"hostdesk/internal/app/queries"
	"hostdesk/internal/app/service"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/fault"
	domaintasks "hostdesk/internal/domain/tasks"
	"hostdesk/internal/infra/storage/memory"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	svc   *service.Service
	store *memory.Store
	mu    sync.Mutex
	now   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: memory.NewStore(), now: day(time.April, 25).Add(12 * time.Hour)}
	h.svc = service.New(service.Deps{
		Factory:        memory.Factory{Store: h.store},
		Idempotency:    memory.NewIdempotencyStore(),
		IdempotencyTTL: time.Hour,
		Catalog:        property.DefaultCatalog(),
		Clock:          h.clock,
	})
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) setClock(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = at
}

func (h *harness) createProperty(t *testing.T, autoList bool) dto.Property {
	t.Helper()
	p, err := commands.Dispatch[properties.CreatePropertyCommand, *dto.Property](context.Background(), h.svc.Commands, properties.CreatePropertyCommand{
		Name:               "Harbour Loft",
		Location:           "Lisbon",
		DailyRate:          15000,
		MaxGuests:          4,
		AutoListWhenVacant: autoList,
	})
	require.NoError(t, err)
	return *p
}

func (h *harness) book(ctx context.Context, propertyID string, in, out time.Time) (*dto.BookingResult, error) {
	return commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](ctx, h.svc.Commands, bookings.CreateBookingCommand{
		PropertyID: propertyID,
		GuestName:  "Ada Lovelace",
		CheckIn:    in,
		CheckOut:   out,
		Adults:     2,
	})
}

func (h *harness) get(t *testing.T, id string) dto.Property {
	t.Helper()
	p, err := queries.Ask[properties.GetPropertyQuery, *dto.Property](context.Background(), h.svc.Queries, properties.GetPropertyQuery{PropertyID: id})
	require.NoError(t, err)
	return *p
}

func TestBookingOccupiesAndCancellationAutoLists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, true)
	assert.Equal(t, "Available", p.Status)
	assert.False(t, p.IsActivelyListed)

	res, err := h.book(ctx, p.ID, day(time.April, 24), day(time.April, 28))
	require.NoError(t, err)
	assert.Equal(t, "Occupied", res.Property.Status)
	assert.False(t, res.Property.IsActivelyListed)

	view := h.get(t, p.ID)
	assert.Equal(t, "Occupied", view.DerivedStatus)
	assert.Empty(t, view.Warnings)

	cancelled, err := commands.Dispatch[bookings.CancelBookingCommand, *dto.BookingResult](ctx, h.svc.Commands, bookings.CancelBookingCommand{BookingID: res.Booking.ID, Reason: "guest request"})
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", cancelled.Booking.Status)
	assert.Equal(t, "Available", cancelled.Property.Status)
	assert.True(t, cancelled.Property.IsActivelyListed)
	assert.Equal(t, []string{"Airbnb", "Booking.com", "VRBO", "Expedia", "TripAdvisor", "Agoda"}, cancelled.Property.ListedOn)

	names := make([]string, 0)
	for _, rec := range h.store.Outbox().Records() {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, "booking.created")
	assert.Contains(t, names, "booking.cancelled")
	assert.Contains(t, names, "property.listing_auto_activated")
}

func TestOverlappingBookingIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, false)

	first, err := h.book(ctx, p.ID, day(time.April, 24), day(time.April, 28))
	require.NoError(t, err)
	_, err = commands.Dispatch[bookings.ConfirmBookingCommand, *dto.BookingResult](ctx, h.svc.Commands, bookings.ConfirmBookingCommand{BookingID: first.Booking.ID})
	require.NoError(t, err)

	conflicts, err := queries.Ask[appcalendar.CheckConflictsQuery, []dto.Conflict](ctx, h.svc.Queries, appcalendar.CheckConflictsQuery{
		PropertyID: p.ID,
		Start:      day(time.April, 26),
		End:        day(time.April, 30),
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, first.Booking.ID, conflicts[0].ID)

	_, err = h.book(ctx, p.ID, day(time.April, 26), day(time.April, 30))
	require.ErrorIs(t, err, availability.ErrSchedulingConflict)
	var conflict *availability.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.Booking.ID, conflict.Conflicts[0].ID)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))

	list, err := queries.Ask[bookings.ListBookingsQuery, []dto.Booking](ctx, h.svc.Queries, bookings.ListBookingsQuery{PropertyID: p.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Back-to-back stays share only the boundary day.
	_, err = h.book(ctx, p.ID, day(time.April, 28), day(time.May, 1))
	require.NoError(t, err)
}

func TestToggleOnInactiveListingFails(t *testing.T) {
	h := newHarness(t)
	p := h.createProperty(t, false)

	_, err := commands.Dispatch[properties.TogglePlatformCommand, *dto.Property](context.Background(), h.svc.Commands, properties.TogglePlatformCommand{PropertyID: p.ID, Platform: "Airbnb"})
	require.ErrorIs(t, err, property.ErrListingInactive)
	assert.Equal(t, fault.KindInvalidOperation, fault.KindOf(err))
	assert.Empty(t, h.get(t, p.ID).ListedOn)
}

func TestMaintenanceTaskDrivesStatusAndCalendar(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, false)

	res, err := commands.Dispatch[apptasks.CreateMaintenanceTaskCommand, *dto.TaskResult](ctx, h.svc.Commands, apptasks.CreateMaintenanceTaskCommand{
		PropertyID:  p.ID,
		Start:       day(time.May, 1),
		End:         day(time.May, 3),
		Description: "Replace boiler",
		Priority:    "High",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)

	h.setClock(day(time.May, 2))
	assert.Equal(t, "Maintenance", h.get(t, p.ID).DerivedStatus)

	cal, err := queries.Ask[appcalendar.GetCalendarQuery, *dto.Calendar](ctx, h.svc.Queries, appcalendar.GetCalendarQuery{
		PropertyID: p.ID,
		From:       day(time.May, 1),
		To:         day(time.June, 1),
	})
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.Equal(t, "maintenance", cal.Events[0].Type)
	require.NotNil(t, cal.Events[0].Maintenance)
	assert.Equal(t, "High", cal.Events[0].Maintenance.Priority)
}

func TestTaskConflictPolicy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, false)
	stay, err := h.book(ctx, p.ID, day(time.April, 24), day(time.April, 28))
	require.NoError(t, err)

	cmd := apptasks.CreateCleaningTaskCommand{
		PropertyID: p.ID,
		Start:      day(time.April, 27).Add(10 * time.Hour),
		End:        day(time.April, 27).Add(12 * time.Hour),
	}
	_, err = commands.Dispatch[apptasks.CreateCleaningTaskCommand, *dto.TaskResult](ctx, h.svc.Commands, cmd)
	require.ErrorIs(t, err, availability.ErrSchedulingConflict)

	cmd.AllowConflict = true
	res, err := commands.Dispatch[apptasks.CreateCleaningTaskCommand, *dto.TaskResult](ctx, h.svc.Commands, cmd)
	require.NoError(t, err)
	assert.True(t, res.Task.ConflictFlagged)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, stay.Booking.ID, res.Conflicts[0].ID)

	moved, err := commands.Dispatch[apptasks.RescheduleTaskCommand, *dto.TaskResult](ctx, h.svc.Commands, apptasks.RescheduleTaskCommand{
		Type:   domaintasks.TypeCleaning,
		TaskID: res.Task.ID,
		Start:  day(time.April, 28).Add(11 * time.Hour),
		End:    day(time.April, 28).Add(13 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, moved.Task.ConflictFlagged)
	assert.Empty(t, moved.Conflicts)

	done, err := commands.Dispatch[apptasks.TransitionTaskCommand, *dto.TaskResult](ctx, h.svc.Commands, apptasks.TransitionTaskCommand{
		Type:   domaintasks.TypeCleaning,
		TaskID: res.Task.ID,
		Action: apptasks.ActionComplete,
	})
	require.NoError(t, err)
	assert.Equal(t, "Completed", done.Task.Status)

	_, err = commands.Dispatch[apptasks.TransitionTaskCommand, *dto.TaskResult](ctx, h.svc.Commands, apptasks.TransitionTaskCommand{
		Type:   domaintasks.TypeCleaning,
		TaskID: res.Task.ID,
		Action: "archive",
	})
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestConcurrentOverlappingBookingsAdmitOne(t *testing.T) {
	h := newHarness(t)
	p := h.createProperty(t, false)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			in := day(time.June, 10).AddDate(0, 0, offset%2)
			_, err := h.book(context.Background(), p.ID, in, in.AddDate(0, 0, 3))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, availability.ErrSchedulingConflict):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)
}

func TestIdempotentCreateReplaysResult(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cmd := properties.CreatePropertyCommand{
		Name:        "Dune House",
		DailyRate:   9900,
		MaxGuests:   2,
		Idempotency: support.Idempotency{IdempotencyToken: "create-dune"},
	}
	first, err := commands.Dispatch[properties.CreatePropertyCommand, *dto.Property](ctx, h.svc.Commands, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[properties.CreatePropertyCommand, *dto.Property](ctx, h.svc.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := queries.Ask[properties.ListPropertiesQuery, []dto.Property](ctx, h.svc.Queries, properties.ListPropertiesQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = commands.Dispatch[properties.SetStatusCommand, *dto.Property](ctx, h.svc.Commands, properties.SetStatusCommand{
		PropertyID:  first.ID,
		Status:      "Maintenance",
		Idempotency: support.Idempotency{IdempotencyToken: "create-dune"},
	})
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestCancelledIdempotentRequestCanBeRetried(t *testing.T) {
	h := newHarness(t)
	p := h.createProperty(t, false)
	cmd := bookings.CreateBookingCommand{
		PropertyID:  p.ID,
		GuestName:   "Ada Lovelace",
		CheckIn:     day(time.May, 2),
		CheckOut:    day(time.May, 5),
		Adults:      2,
		Idempotency: support.Idempotency{IdempotencyToken: "retry-me"},
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](cancelled, h.svc.Commands, cmd)
	require.ErrorIs(t, err, context.Canceled)

	result, err := commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](context.Background(), h.svc.Commands, cmd)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Booking.ID)

	replayed, err := commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](context.Background(), h.svc.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, result.Booking.ID, replayed.Booking.ID)
}

func TestIdempotentConflictReplaysConflictList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, false)
	first, err := h.book(ctx, p.ID, day(time.May, 2), day(time.May, 6))
	require.NoError(t, err)

	cmd := bookings.CreateBookingCommand{
		PropertyID:  p.ID,
		GuestName:   "Grace Hopper",
		CheckIn:     day(time.May, 4),
		CheckOut:    day(time.May, 8),
		Adults:      1,
		Idempotency: support.Idempotency{IdempotencyToken: "overlap"},
	}
	for range 2 {
		_, err = commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](ctx, h.svc.Commands, cmd)
		require.ErrorIs(t, err, availability.ErrSchedulingConflict)
		var conflict *availability.ConflictError
		require.True(t, errors.As(err, &conflict))
		require.Len(t, conflict.Conflicts, 1)
		assert.Equal(t, first.Booking.ID, conflict.Conflicts[0].ID)
		assert.Equal(t, availability.ConflictBooking, conflict.Conflicts[0].Kind)
		assert.True(t, conflict.Conflicts[0].Interval.Start.Equal(day(time.May, 2)))
	}
}

func TestManualOverrideIsReportedAndReconciled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, false)

	overridden, err := commands.Dispatch[properties.SetStatusCommand, *dto.Property](ctx, h.svc.Commands, properties.SetStatusCommand{PropertyID: p.ID, Status: "Renovation"})
	require.NoError(t, err)
	assert.Equal(t, "Renovation", overridden.Status)
	assert.Equal(t, "manual", overridden.StatusSource)
	require.Len(t, overridden.Warnings, 1)
	assert.Equal(t, "Available", overridden.Warnings[0].Derived)

	report, err := commands.Dispatch[properties.ReconcileCommand, *dto.ReconcileReport](ctx, h.svc.Commands, properties.ReconcileCommand{PropertyID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Corrected)
	require.NotNil(t, report.Entries[0].Warning)
	assert.Equal(t, "Renovation", h.get(t, p.ID).Status)

	report, err = commands.Dispatch[properties.ReconcileCommand, *dto.ReconcileReport](ctx, h.svc.Commands, properties.ReconcileCommand{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Corrected)
	view := h.get(t, p.ID)
	assert.Equal(t, "Available", view.Status)
	assert.Empty(t, view.Warnings)
}

func TestDeleteRequiresCascadeWhenReferenced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createProperty(t, false)
	_, err := h.book(ctx, p.ID, day(time.July, 1), day(time.July, 4))
	require.NoError(t, err)

	_, err = commands.Dispatch[properties.DeletePropertyCommand, *dto.DeleteResult](ctx, h.svc.Commands, properties.DeletePropertyCommand{PropertyID: p.ID})
	require.ErrorIs(t, err, property.ErrReferenced)

	res, err := commands.Dispatch[properties.DeletePropertyCommand, *dto.DeleteResult](ctx, h.svc.Commands, properties.DeletePropertyCommand{PropertyID: p.ID, Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Bookings)

	_, err = queries.Ask[properties.GetPropertyQuery, *dto.Property](ctx, h.svc.Queries, properties.GetPropertyQuery{PropertyID: p.ID})
	assert.ErrorIs(t, err, property.ErrNotFound)
	list, err := queries.Ask[bookings.ListBookingsQuery, []dto.Booking](ctx, h.svc.Queries, bookings.ListBookingsQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPortfolioCalendarOrdersEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createProperty(t, false)
	b := h.createProperty(t, false)
	_, err := h.book(ctx, a.ID, day(time.May, 10), day(time.May, 12))
	require.NoError(t, err)
	_, err = h.book(ctx, b.ID, day(time.May, 12), day(time.May, 14))
	require.NoError(t, err)

	cal, err := queries.Ask[appcalendar.GetCalendarQuery, *dto.Calendar](ctx, h.svc.Queries, appcalendar.GetCalendarQuery{})
	require.NoError(t, err)
	require.Len(t, cal.Events, 4)
	assert.Equal(t, "check_in", cal.Events[0].Type)
	// On May 12 the check-out sorts before the check-in.
	assert.Equal(t, "check_out", cal.Events[1].Type)
	assert.Equal(t, "check_in", cal.Events[2].Type)

	only, err := queries.Ask[appcalendar.GetCalendarQuery, *dto.Calendar](ctx, h.svc.Queries, appcalendar.GetCalendarQuery{Type: "check-out"})
	require.NoError(t, err)
	assert.Len(t, only.Events, 2)
}
