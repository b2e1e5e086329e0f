package uow

import (
	"context"
	"errors"

	"hostdesk/internal/app/outbox"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork groups the stores touched by one operation. Nothing written
// through it is visible to other units before Commit.
type UnitOfWork interface {
	Properties() property.Repository
	Bookings() booking.Repository
	Cleaning() tasks.Repository
	Maintenance() tasks.Repository
	Outbox() outbox.Outbox

	// Lock serializes writers on one property until Commit or Rollback.
	Lock(ctx context.Context, id property.ID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units whose driver needs a session on
// the context, such as a Mongo transaction.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}

// Run executes fn inside a fresh unit, committing on success. An outer unit
// already on ctx is reused and left for its owner to commit.
func Run(ctx context.Context, factory Factory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	execCtx := ContextWithUnitOfWork(ctx, unit)
	if err := fn(execCtx, unit); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	if opts.ReadOnly {
		return unit.Rollback(execCtx)
	}
	return unit.Commit(execCtx)
}
