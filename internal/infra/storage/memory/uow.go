package memory

import (
	"context"
	"errors"
	"slices"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
	ErrReadOnly             = errors.New("memory: write in read-only unit of work")
)

// Factory opens units of work over one Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := f.Store
	u := &Unit{
		store:       s,
		readOnly:    opts.ReadOnly,
		properties:  newStaged(&s.mu, s.properties, propertySchema),
		bookings:    newStaged(&s.mu, s.bookings, bookingSchema),
		cleaning:    newStaged(&s.mu, s.cleaning, taskSchema),
		maintenance: newStaged(&s.mu, s.maintenance, taskSchema),
	}
	u.outbox = appoutbox.NewStaged(u.stageRecords)
	return u, nil
}

type Unit struct {
	store    *Store
	readOnly bool
	done     bool

	properties  *staged[property.ID, *property.Property]
	bookings    *staged[booking.ID, *booking.Booking]
	cleaning    *staged[tasks.ID, *tasks.Task]
	maintenance *staged[tasks.ID, *tasks.Task]

	outbox  *appoutbox.Staged
	records []appoutbox.EventRecord
	held    []property.ID
}

func (u *Unit) Properties() property.Repository { return propertyRepo{u} }
func (u *Unit) Bookings() booking.Repository    { return bookingRepo{u} }
func (u *Unit) Cleaning() tasks.Repository      { return taskRepo{u, u.cleaning} }
func (u *Unit) Maintenance() tasks.Repository   { return taskRepo{u, u.maintenance} }
func (u *Unit) Outbox() appoutbox.Outbox        { return u.outbox }

// Lock is reentrant within the unit.
func (u *Unit) Lock(ctx context.Context, id property.ID) error {
	if u.done {
		return ErrUnitClosed
	}
	if slices.Contains(u.held, id) {
		return nil
	}
	if err := u.store.acquire(ctx, id); err != nil {
		return err
	}
	u.held = append(u.held, id)
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	defer u.finish()
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.readOnly {
		return nil
	}
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, verify := range []func() error{u.properties.verify, u.bookings.verify, u.cleaning.verify, u.maintenance.verify} {
		if err := verify(); err != nil {
			return err
		}
	}
	u.properties.apply()
	u.bookings.apply()
	u.cleaning.apply()
	u.maintenance.apply()
	s.outbox.append(u.records...)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *Unit) finish() {
	u.done = true
	for _, id := range u.held {
		u.store.release(id)
	}
	u.held = nil
}

func (u *Unit) stageRecords(ctx context.Context, records []appoutbox.EventRecord) error {
	if err := u.writable(); err != nil {
		return err
	}
	u.records = append(u.records, records...)
	return nil
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

var _ uow.Factory = Factory{}
