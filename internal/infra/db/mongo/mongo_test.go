package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"hostdesk/internal/app/middleware"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/fault"
	"hostdesk/internal/domain/shared/money"
	"hostdesk/internal/domain/tasks"
)

var created = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func TestPropertyDocumentKeepsListingState(t *testing.T) {
	p, err := property.New(property.CreateParams{
		ID:        "p-1",
		Name:      "Harbour Loft",
		DailyRate: money.Must(15000, "EUR"),
		MaxGuests: 4,
		CreatedAt: created,
	})
	require.NoError(t, err)
	p.SetActive(true, created)
	require.NoError(t, p.SelectAllPlatforms(property.DefaultCatalog(), created))
	p.Version = 3

	got := newPropertyDocument(p).toAggregate()
	assert.Equal(t, p.ListedOn, got.ListedOn)
	assert.Equal(t, "EUR", got.DailyRate.Currency)
	assert.True(t, got.IsActivelyListed)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, int64(3), got.Version)
	assert.Empty(t, got.PendingEvents())
}

func TestBookingDocumentKeepsStay(t *testing.T) {
	b, err := booking.New(booking.CreateParams{
		ID:         "b-1",
		PropertyID: "p-1",
		Guest:      booking.Guest{Name: "Ada Lovelace", Email: "ada@example.com"},
		CheckIn:    time.Date(2025, 4, 24, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC),
		Adults:     2,
		MaxGuests:  4,
		CreatedAt:  created,
	})
	require.NoError(t, err)

	got := newBookingDocument(b).toAggregate()
	assert.True(t, b.Stay.Start.Equal(got.Stay.Start))
	assert.True(t, b.Stay.End.Equal(got.Stay.End))
	assert.Equal(t, b.Guest, got.Guest)
	assert.Equal(t, booking.StatusPending, got.Status)
}

func TestTaskDocumentTakesTypeFromCollection(t *testing.T) {
	task, err := tasks.NewCleaning(tasks.CleaningParams{
		ID:         "c-1",
		PropertyID: "p-1",
		Start:      time.Date(2025, 4, 28, 11, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 4, 28, 14, 0, 0, 0, time.UTC),
		Staff:      "Rui",
		CreatedAt:  created,
	})
	require.NoError(t, err)

	got := newTaskDocument(task).toAggregate(tasks.TypeCleaning)
	assert.Equal(t, tasks.TypeCleaning, got.Type)
	assert.True(t, task.Window.Start.Equal(got.Window.Start))
	assert.True(t, task.Window.End.Equal(got.Window.End))
	assert.Equal(t, "Rui", got.Staff)
}

func TestTranslateWriteConflicts(t *testing.T) {
	err := translate(mongo.CommandError{Code: writeConflictCode, Message: "WriteConflict"})
	assert.ErrorIs(t, err, property.ErrConcurrentUpdate)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))

	err = translate(mongo.CommandError{Code: 251, Labels: []string{transientTransactionLabel}})
	assert.ErrorIs(t, err, property.ErrConcurrentUpdate)

	plain := errors.New("boom")
	assert.Same(t, plain, translate(plain))
	assert.NoError(t, translate(nil))
}

func TestIdempotencyDocumentExpiry(t *testing.T) {
	at := created.Add(time.Hour)
	rec := idempotencyDocument{ID: "k-1", Command: "property.create", ExpiresAt: &at}.toRecord()
	assert.Equal(t, "k-1", rec.Key)
	assert.True(t, rec.ExpiresAt.Equal(at))

	forever := idempotencyDocument{ID: "k-2"}.toRecord()
	assert.True(t, forever.ExpiresAt.IsZero())
}

func TestIdempotencyDocumentKeepsReservations(t *testing.T) {
	at := created.Add(time.Minute)
	doc := newIdempotencyDocument(middleware.IdempotencyRecord{Key: "k-1", Command: "booking.create", Pending: true, OccurredAt: created, ExpiresAt: at})
	assert.Equal(t, "k-1", doc.ID)
	assert.True(t, doc.Pending)
	require.NotNil(t, doc.ExpiresAt)
	assert.True(t, doc.ExpiresAt.Equal(at))

	rec := doc.toRecord()
	assert.True(t, rec.Pending)
	assert.Equal(t, "booking.create", rec.Command)

	forever := newIdempotencyDocument(middleware.IdempotencyRecord{Key: "k-2"})
	assert.Nil(t, forever.ExpiresAt)
	assert.False(t, forever.toRecord().Pending)
}
