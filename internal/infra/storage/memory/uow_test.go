package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/app/middleware"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/money"
	"hostdesk/internal/domain/tasks"
	"hostdesk/internal/infra/outbox"
)

var created = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func newProperty(t *testing.T, id string) *property.Property {
	t.Helper()
	p, err := property.New(property.CreateParams{
		ID:        property.ID(id),
		Name:      "Harbour Loft",
		DailyRate: money.Must(120, "USD"),
		MaxGuests: 4,
		CreatedAt: created,
	})
	require.NoError(t, err)
	return p
}

func begin(t *testing.T, f Factory, opts uow.TxOptions) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), opts)
	require.NoError(t, err)
	return unit
}

func TestUnitStagesWritesUntilCommit(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	writer := begin(t, f, uow.TxOptions{})
	require.NoError(t, writer.Properties().Save(ctx, newProperty(t, "p-1")))

	got, err := writer.Properties().ByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	reader := begin(t, f, uow.TxOptions{ReadOnly: true})
	_, err = reader.Properties().ByID(ctx, "p-1")
	assert.ErrorIs(t, err, property.ErrNotFound)

	require.NoError(t, writer.Commit(ctx))
	got, err = reader.Properties().ByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Harbour Loft", got.Name)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	unit := begin(t, f, uow.TxOptions{})
	require.NoError(t, unit.Properties().Save(ctx, newProperty(t, "p-1")))
	require.NoError(t, unit.Rollback(ctx))

	after := begin(t, f, uow.TxOptions{ReadOnly: true})
	list, err := after.Properties().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	seed := begin(t, f, uow.TxOptions{})
	require.NoError(t, seed.Properties().Save(ctx, newProperty(t, "p-1")))
	require.NoError(t, seed.Commit(ctx))

	first := begin(t, f, uow.TxOptions{})
	second := begin(t, f, uow.TxOptions{})
	a, err := first.Properties().ByID(ctx, "p-1")
	require.NoError(t, err)
	b, err := second.Properties().ByID(ctx, "p-1")
	require.NoError(t, err)

	a.SetStatus(property.StatusMaintenance, property.SourceManual, created)
	require.NoError(t, first.Properties().Save(ctx, a))
	b.SetStatus(property.StatusRenovation, property.SourceManual, created)
	require.NoError(t, second.Properties().Save(ctx, b))

	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), property.ErrConcurrentUpdate)

	stale := begin(t, f, uow.TxOptions{})
	old := newProperty(t, "p-1")
	assert.ErrorIs(t, stale.Properties().Save(ctx, old), property.ErrConcurrentUpdate)
}

func TestLockSerializesUnits(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	holder := begin(t, f, uow.TxOptions{})
	require.NoError(t, holder.Lock(ctx, "p-1"))
	require.NoError(t, holder.Lock(ctx, "p-1"))

	waiter := begin(t, f, uow.TxOptions{})
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, waiter.Lock(short, "p-1"), context.DeadlineExceeded)

	require.NoError(t, waiter.Lock(ctx, "p-2"))

	require.NoError(t, holder.Rollback(ctx))
	require.NoError(t, waiter.Lock(ctx, "p-1"))
	require.NoError(t, waiter.Commit(ctx))
}

func TestDeleteByPropertyRemovesOwnedRows(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	unit := begin(t, f, uow.TxOptions{})
	for _, id := range []string{"b-1", "b-2"} {
		b, err := booking.New(booking.CreateParams{
			ID:         booking.ID(id),
			PropertyID: "p-1",
			Guest:      booking.Guest{Name: "Ada"},
			CheckIn:    created,
			CheckOut:   created.AddDate(0, 0, 2),
			Adults:     1,
			MaxGuests:  2,
			CreatedAt:  created,
		})
		require.NoError(t, err)
		require.NoError(t, unit.Bookings().Save(ctx, b))
	}
	task, err := tasks.NewCleaning(tasks.CleaningParams{ID: "c-1", PropertyID: "p-2", Start: created, End: created.Add(2 * time.Hour), CreatedAt: created})
	require.NoError(t, err)
	require.NoError(t, unit.Cleaning().Save(ctx, task))
	require.NoError(t, unit.Commit(ctx))

	cleanup := begin(t, f, uow.TxOptions{})
	require.NoError(t, cleanup.Bookings().DeleteByProperty(ctx, "p-1"))
	left, err := cleanup.Bookings().List(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, left)
	require.NoError(t, cleanup.Commit(ctx))

	check := begin(t, f, uow.TxOptions{ReadOnly: true})
	all, err := check.Bookings().List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
	cleaning, err := check.Cleaning().List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cleaning, 1)
	maintenance, err := check.Maintenance().List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, maintenance)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	ctx := context.Background()
	unit := begin(t, Factory{Store: NewStore()}, uow.TxOptions{ReadOnly: true})
	assert.ErrorIs(t, unit.Properties().Save(ctx, newProperty(t, "p-1")), ErrReadOnly)
}

func TestOutboxRecordsAppearOnCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	f := Factory{Store: store}

	unit := begin(t, f, uow.TxOptions{})
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "property.created", Key: "p-1"}))
	require.NoError(t, unit.Outbox().Flush(ctx))
	assert.Empty(t, store.Outbox().Records())
	require.NoError(t, unit.Commit(ctx))

	records := store.Outbox().Records()
	require.Len(t, records, 1)
	assert.Equal(t, "p-1", records[0].Key)

	msg, err := store.Outbox().Claim(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, outbox.StateClaimed, store.Outbox().State("evt-1"))

	next, err := store.Outbox().Claim(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, next)

	require.NoError(t, store.Outbox().MarkSent(ctx, "evt-1"))
	assert.Equal(t, outbox.StateSent, store.Outbox().State("evt-1"))
	assert.ErrorIs(t, store.Outbox().MarkSent(ctx, "missing"), outbox.ErrMessageNotFound)
}

func TestIdempotencyStoreExpiresRecords(t *testing.T) {
	ctx := context.Background()
	now := created
	s := NewIdempotencyStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, middlewareRecord("k-1", now.Add(time.Hour))))
	_, found, err := s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(2 * time.Hour)
	_, found, err = s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStoreReservations(t *testing.T) {
	ctx := context.Background()
	now := created
	s := NewIdempotencyStore()
	s.now = func() time.Time { return now }

	pending := middleware.IdempotencyRecord{Key: "k-1", Command: "booking.create", Pending: true, ExpiresAt: now.Add(time.Minute)}
	ok, err := s.Reserve(ctx, pending)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Reserve(ctx, pending)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "k-1"))
	ok, err = s.Reserve(ctx, pending)
	require.NoError(t, err)
	assert.True(t, ok, "a released key can be reserved again")

	require.NoError(t, s.Save(ctx, middlewareRecord("k-1", time.Time{})))
	require.NoError(t, s.Release(ctx, "k-1"))
	rec, found, err := s.Get(ctx, "k-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, rec.Pending)

	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "k-2", Pending: true, ExpiresAt: now.Add(time.Minute)}))
	now = now.Add(2 * time.Minute)
	ok, err = s.Reserve(ctx, middleware.IdempotencyRecord{Key: "k-2", Pending: true, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.True(t, ok, "an expired reservation is taken over")
}

func TestInboxSeen(t *testing.T) {
	ctx := context.Background()
	in := NewInbox()
	seen, err := in.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = in.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "checking does not mark")

	require.NoError(t, in.Mark(ctx, "evt-1"))
	require.NoError(t, in.Mark(ctx, "evt-1"))
	seen, err = in.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func middlewareRecord(key string, expires time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Command: "property.create", ExpiresAt: expires}
}
