package feeds

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/bookings"
	appcalendar "hostdesk/internal/app/handlers/calendar"
	"hostdesk/internal/app/handlers/properties"
	"hostdesk/internal/app/service"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/infra/storage/memory"
)

type fakeObjects struct {
	puts    map[string]string
	removed []string
	// failures makes the next n calls fail.
	failures int
}

var errUnavailable = errors.New("s3 unavailable")

func (f *fakeObjects) fail() bool {
	if f.failures > 0 {
		f.failures--
		return true
	}
	return false
}

func (f *fakeObjects) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if f.fail() {
		return "", errUnavailable
	}
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[key] = string(body)
	return "http://cdn/" + key, nil
}

func (f *fakeObjects) Remove(ctx context.Context, key string) error {
	if f.fail() {
		return errUnavailable
	}
	f.removed = append(f.removed, key)
	return nil
}

var stamp = time.Date(2025, 4, 25, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*service.Service, string) {
	t.Helper()
	svc := service.New(service.Deps{
		Factory: memory.Factory{Store: memory.NewStore()},
		Catalog: property.DefaultCatalog(),
		Clock:   func() time.Time { return stamp },
	})
	ctx := context.Background()
	p, err := commands.Dispatch[properties.CreatePropertyCommand, *dto.Property](ctx, svc.Commands, properties.CreatePropertyCommand{Name: "Casa Azul, Porto", DailyRate: 8000, MaxGuests: 3})
	require.NoError(t, err)
	_, err = commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](ctx, svc.Commands, bookings.CreateBookingCommand{
		PropertyID: p.ID,
		GuestName:  "Grace Hopper",
		CheckIn:    time.Date(2025, 4, 24, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC),
		Adults:     1,
	})
	require.NoError(t, err)
	return svc, p.ID
}

func TestPublishRendersFeed(t *testing.T) {
	svc, id := setup(t)
	objects := &fakeObjects{}
	pub := &Publisher{Queries: svc.Queries, Store: objects, Prefix: "feeds", Clock: func() time.Time { return stamp }}

	require.NoError(t, pub.Publish(context.Background(), id))
	body, ok := objects.puts["feeds/"+id+".ics"]
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20250424\r\n")
	assert.Contains(t, body, "DTEND;VALUE=DATE:20250429\r\n")
	assert.Contains(t, body, `X-WR-CALNAME:Casa Azul\, Porto`)
	assert.Contains(t, body, "DTSTAMP:20250425T120000Z")
}

func TestHandleEventDeduplicatesAndRemoves(t *testing.T) {
	svc, id := setup(t)
	objects := &fakeObjects{}
	pub := &Publisher{Queries: svc.Queries, Store: objects, Inbox: memory.NewInbox()}
	ctx := context.Background()

	evt := []byte(`{"id":"evt-1","type":"booking.created.v1","data":{"property_id":"` + id + `"}}`)
	require.NoError(t, pub.HandleEvent(ctx, evt))
	require.Len(t, objects.puts, 1)

	objects.puts = nil
	require.NoError(t, pub.HandleEvent(ctx, evt))
	assert.Empty(t, objects.puts)

	gone := []byte(`{"id":"evt-2","type":"property.deleted.v1","data":{"property_id":"` + id + `"}}`)
	require.NoError(t, pub.HandleEvent(ctx, gone))
	assert.Equal(t, []string{"calendars/" + id + ".ics"}, objects.removed)

	missing := []byte(`{"id":"evt-3","type":"property.status_changed.v1","data":{"property_id":"nope"}}`)
	require.NoError(t, pub.HandleEvent(ctx, missing))
	assert.Contains(t, objects.removed, "calendars/nope.ics")

	assert.NoError(t, pub.HandleEvent(ctx, []byte("not json")))
	assert.NoError(t, pub.HandleEvent(ctx, []byte(`{"id":"evt-4","type":"x","data":{}}`)))
}

func TestFailedWriteIsRetriedOnRedelivery(t *testing.T) {
	svc, id := setup(t)
	objects := &fakeObjects{failures: 1}
	pub := &Publisher{Queries: svc.Queries, Store: objects, Inbox: memory.NewInbox()}
	ctx := context.Background()

	evt := []byte(`{"id":"evt-1","type":"booking.created.v1","data":{"property_id":"` + id + `"}}`)
	assert.ErrorIs(t, pub.HandleEvent(ctx, evt), errUnavailable)
	assert.Empty(t, objects.puts)

	require.NoError(t, pub.HandleEvent(ctx, evt))
	assert.Len(t, objects.puts, 1)

	gone := []byte(`{"id":"evt-2","type":"property.deleted.v1","data":{"property_id":"` + id + `"}}`)
	objects.failures = 1
	assert.ErrorIs(t, pub.HandleEvent(ctx, gone), errUnavailable)
	assert.Empty(t, objects.removed)

	require.NoError(t, pub.HandleEvent(ctx, gone))
	assert.Equal(t, []string{"calendars/" + id + ".ics"}, objects.removed)

	require.NoError(t, pub.HandleEvent(ctx, gone))
	assert.Len(t, objects.removed, 1)
}

func TestHandleEventRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&Publisher{}).HandleEvent(context.Background(), []byte(`{}`)), ErrPublisherNotConfigured)
}

func TestRenderFoldsLongLines(t *testing.T) {
	feed := &appcalendar.Feed{
		Property: dto.Property{Name: "Loft"},
		Events: []dto.CalendarEvent{{
			ID:    "m-1",
			Type:  "maintenance",
			Start: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 5, 3, 17, 0, 0, 0, time.UTC),
			Title: strings.Repeat("Repaint the hallway; ", 6),
			Maintenance: &dto.MaintenanceDetails{
				Priority: "High",
				Kind:     "maintenance",
			},
		}},
	}
	out := string(Render(feed, stamp))
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 75, line)
	}
	assert.Contains(t, out, "DTSTART:20250501T090000Z")
	assert.Contains(t, out, "DESCRIPTION:High priority maintenance")
	assert.Contains(t, out, `\;`)
}
