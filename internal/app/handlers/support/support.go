// Package support holds what every handler shares: the clock, id source,
// event encoder and the status refresh that follows calendar mutations.
package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hostdesk/internal/app/outbox"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/events"
)

type Base struct {
	Catalog property.Catalog
	Clock   func() time.Time
	NewID   func() string
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (b Base) Now() time.Time {
	if b.Clock != nil {
		return b.Clock().UTC()
	}
	return time.Now().UTC()
}

func (b Base) ID() string {
	if b.NewID != nil {
		return b.NewID()
	}
	return uuid.NewString()
}

func (b Base) Log() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Unit returns the unit of work opened by the transaction middleware.
func Unit(ctx context.Context) (uow.UnitOfWork, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	return unit, nil
}

// LockProperty takes the property write lock and loads the property.
func LockProperty(ctx context.Context, unit uow.UnitOfWork, id property.ID) (*property.Property, error) {
	if err := unit.Lock(ctx, id); err != nil {
		return nil, err
	}
	return unit.Properties().ByID(ctx, id)
}

// LoadSnapshot reads every commitment of one property through unit.
func LoadSnapshot(ctx context.Context, unit uow.UnitOfWork, id property.ID) (availability.Snapshot, error) {
	bookings, err := unit.Bookings().List(ctx, id)
	if err != nil {
		return availability.Snapshot{}, err
	}
	cleaning, err := unit.Cleaning().List(ctx, id)
	if err != nil {
		return availability.Snapshot{}, err
	}
	maintenance, err := unit.Maintenance().List(ctx, id)
	if err != nil {
		return availability.Snapshot{}, err
	}
	return availability.Snapshot{PropertyID: id, Bookings: bookings, Cleaning: cleaning, Maintenance: maintenance}, nil
}

// Refresh sets the stored status to what the calendar implies now, runs the
// vacancy hook and saves p. Used after every calendar-fact mutation.
func (b Base) Refresh(ctx context.Context, unit uow.UnitOfWork, p *property.Property, snap availability.Snapshot) (availability.Transition, error) {
	derived := availability.DeriveStatus(snap, b.Now())
	tr := availability.ApplyStatusChange(p, derived, property.SourceDerived, b.Catalog, b.Now())
	if err := unit.Properties().Save(ctx, p); err != nil {
		return tr, err
	}
	b.LogTransition(ctx, p, tr)
	return tr, nil
}

func (b Base) LogTransition(ctx context.Context, p *property.Property, tr availability.Transition) {
	if tr.Changed {
		b.Log().InfoContext(ctx, "property status changed",
			slog.String("property_id", string(p.ID)),
			slog.String("from", string(tr.From)),
			slog.String("to", string(tr.To)),
			slog.String("source", string(p.StatusSource)))
	}
	if tr.AutoListed {
		b.Log().InfoContext(ctx, "listing auto-activated",
			slog.String("property_id", string(p.ID)),
			slog.Int("platforms", len(p.ListedOn)))
	}
}

func (b Base) LogWarning(ctx context.Context, w *availability.IntegrityWarning) {
	if w == nil {
		return
	}
	b.Log().WarnContext(ctx, "integrity warning",
		slog.String("property_id", string(w.PropertyID)),
		slog.String("stored", string(w.Stored)),
		slog.String("derived", string(w.Derived)),
		slog.String("source", string(w.Source)))
}

// Persist stages the pending events of every source on the unit's outbox.
func (b Base) Persist(ctx context.Context, unit uow.UnitOfWork, sources ...events.Source) error {
	return outbox.Record(ctx, unit.Outbox(), b.Encoder, sources...)
}

// View computes the derived status of p and the warning when it disagrees.
func (b Base) View(ctx context.Context, unit uow.UnitOfWork, p *property.Property) (property.Status, *availability.IntegrityWarning, error) {
	snap, err := LoadSnapshot(ctx, unit, p.ID)
	if err != nil {
		return "", nil, err
	}
	derived := availability.DeriveStatus(snap, b.Now())
	warning := availability.Check(p, derived)
	b.LogWarning(ctx, warning)
	return derived, warning, nil
}

// Idempotency is embedded by commands that accept an Idempotency-Key header.
type Idempotency struct {
	IdempotencyToken string
}

func (i Idempotency) IdempotencyKey() string { return i.IdempotencyToken }
