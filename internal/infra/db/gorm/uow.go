package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

var (
	ErrFactoryMisconfigured = errors.New("gorm: unit of work factory missing database")
	ErrUnitClosed           = errors.New("gorm: unit of work already finished")
	ErrReadOnly             = errors.New("gorm: write in read-only unit of work")
)

// Factory opens one database transaction per unit of work.
type Factory struct {
	DB *gorm.DB
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrFactoryMisconfigured
	}
	tx := f.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	u := &Unit{tx: tx, readOnly: opts.ReadOnly, rowLocks: f.DB.Dialector.Name() != "sqlite"}
	u.outbox = appoutbox.NewStaged(u.writeOutbox)
	return u, nil
}

type Unit struct {
	tx       *gorm.DB
	readOnly bool
	rowLocks bool
	done     bool
	outbox   *appoutbox.Staged
}

func (u *Unit) Properties() property.Repository { return propertyRepo{u} }
func (u *Unit) Bookings() booking.Repository    { return bookingRepo{u} }
func (u *Unit) Cleaning() tasks.Repository {
	return taskRepo{u: u, table: cleaningTable, typ: tasks.TypeCleaning}
}
func (u *Unit) Maintenance() tasks.Repository {
	return taskRepo{u: u, table: maintenanceTable, typ: tasks.TypeMaintenance}
}
func (u *Unit) Outbox() appoutbox.Outbox { return u.outbox }

// Lock takes a row lock on the property. sqlite already runs one
// transaction at a time, so there it is a no-op.
func (u *Unit) Lock(ctx context.Context, id property.ID) error {
	if u.done {
		return ErrUnitClosed
	}
	if !u.rowLocks {
		return ctx.Err()
	}
	var ids []string
	return u.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&propertyModel{}).
		Where("id = ?", string(id)).
		Limit(1).
		Pluck("id", &ids).Error
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if err := ctx.Err(); err != nil {
		u.tx.Rollback()
		return err
	}
	return u.tx.Commit().Error
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	err := u.tx.Rollback().Error
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return nil
	}
	return err
}

func (u *Unit) db(ctx context.Context) *gorm.DB {
	return u.tx.WithContext(ctx)
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

func (u *Unit) writeOutbox(ctx context.Context, records []appoutbox.EventRecord) error {
	if err := u.writable(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	base := time.Now().UnixNano()
	rows := make([]outboxModel, 0, len(records))
	for i, rec := range records {
		rows = append(rows, newOutboxModel(rec, base+int64(i)))
	}
	return u.db(ctx).Create(&rows).Error
}

var _ uow.Factory = Factory{}
